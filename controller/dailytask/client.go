/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dailytask

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	dynamicclientset "openebs.io/dailytask/dynamic/clientset"
)

// Client abstracts the cluster API operations needed to reconcile
// DailyTask resources. The resource kind is bound to the client.
type Client interface {
	// List lists all resources in the namespace that are at least
	// as recent as the given resource version
	List(ctx context.Context, namespace, resourceVersion string) (*unstructured.UnstructuredList, error)

	// Watch streams the changes after the given resource version
	Watch(ctx context.Context, namespace, resourceVersion string) (watch.Interface, error)

	// Get fetches the latest state of the named resource
	Get(ctx context.Context, namespace, name string) (*unstructured.Unstructured, error)

	// PatchStatus applies a JSON merge patch against the status
	// subresource
	PatchStatus(ctx context.Context, namespace, name string, patch []byte) (*unstructured.Unstructured, error)

	// Patch applies a JSON merge patch against the resource
	Patch(ctx context.Context, namespace, name string, patch []byte) (*unstructured.Unstructured, error)
}

// dynamicClient implements Client based on a dynamic resource client
type dynamicClient struct {
	resource *dynamicclientset.ResourceClient
}

// NewClient returns a Client that talks to the cluster via the
// given dynamic resource client
func NewClient(rc *dynamicclientset.ResourceClient) Client {
	return &dynamicClient{resource: rc}
}

func (c *dynamicClient) List(
	ctx context.Context, namespace, resourceVersion string,
) (*unstructured.UnstructuredList, error) {
	return c.resource.Namespace(namespace).ListSince(ctx, resourceVersion)
}

func (c *dynamicClient) Watch(
	ctx context.Context, namespace, resourceVersion string,
) (watch.Interface, error) {
	return c.resource.Namespace(namespace).WatchSince(ctx, resourceVersion)
}

func (c *dynamicClient) Get(
	ctx context.Context, namespace, name string,
) (*unstructured.Unstructured, error) {
	return c.resource.Namespace(namespace).GetByName(ctx, name)
}

func (c *dynamicClient) PatchStatus(
	ctx context.Context, namespace, name string, patch []byte,
) (*unstructured.Unstructured, error) {
	return c.resource.Namespace(namespace).MergePatchStatus(ctx, name, patch)
}

func (c *dynamicClient) Patch(
	ctx context.Context, namespace, name string, patch []byte,
) (*unstructured.Unstructured, error) {
	return c.resource.Namespace(namespace).MergePatch(ctx, name, patch)
}
