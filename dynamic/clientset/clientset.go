/*
Copyright 2017 Google Inc.
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

package clientset

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

// Clientset hands out dynamic clients for specific resources
type Clientset struct {
	dynamicClient dynamic.Interface
}

// New returns a new instance of Clientset
func New(config *rest.Config) (*Clientset, error) {
	dc, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrapf(err, "New clientset failed")
	}
	return NewForDynamic(dc), nil
}

// NewForDynamic returns a new instance of Clientset based on the
// given dynamic client
func NewForDynamic(dc dynamic.Interface) *Clientset {
	return &Clientset{dynamicClient: dc}
}

// Resource returns the client of the given resource
//
// NOTE:
//	The returned client instance is specific to the given resource
func (cs *Clientset) Resource(gvr schema.GroupVersionResource) *ResourceClient {
	client := cs.dynamicClient.Resource(gvr)
	return &ResourceClient{
		ResourceInterface: client,
		gvr:               gvr,
		rootClient:        client,
	}
}

// ResourceClient is a dynamic client bound to one resource.
//
// It exposes list, watch, get & JSON merge patch operations with
// the resource version & subresource handling needed by a
// List-Watch controller. Call Namespace() to return a client that's
// scoped down to a given namespace.
type ResourceClient struct {
	dynamic.ResourceInterface

	gvr        schema.GroupVersionResource
	namespace  string
	rootClient dynamic.NamespaceableResourceInterface
}

// String implements Stringer interface
func (rc *ResourceClient) String() string {
	if rc.namespace == "" {
		return rc.gvr.String()
	}
	return fmt.Sprintf("%s in %q", rc.gvr.String(), rc.namespace)
}

// Namespace returns a copy of the ResourceClient with the client
// namespace set.
//
// Pass "" to return a client with the namespace cleared.
func (rc *ResourceClient) Namespace(namespace string) *ResourceClient {
	ri := dynamic.ResourceInterface(rc.rootClient)
	if namespace != "" {
		ri = rc.rootClient.Namespace(namespace)
	}
	return &ResourceClient{
		ResourceInterface: ri,
		gvr:               rc.gvr,
		namespace:         namespace,
		rootClient:        rc.rootClient,
	}
}

// GroupVersionResource returns the resource served by this client
func (rc *ResourceClient) GroupVersionResource() schema.GroupVersionResource {
	return rc.gvr
}

// ListSince lists all resources that are at least as recent as the
// given resource version. An empty resource version lists the most
// recent state.
func (rc *ResourceClient) ListSince(
	ctx context.Context, resourceVersion string,
) (*unstructured.UnstructuredList, error) {
	glog.V(4).Infof("Listing %s since resource version %q", rc, resourceVersion)
	return rc.List(ctx, metav1.ListOptions{ResourceVersion: resourceVersion})
}

// WatchSince opens a watch stream that delivers changes after the
// given resource version. Bookmarks are requested to keep the
// resource version moving on idle streams.
func (rc *ResourceClient) WatchSince(
	ctx context.Context, resourceVersion string,
) (watch.Interface, error) {
	glog.V(4).Infof("Watching %s since resource version %q", rc, resourceVersion)
	return rc.Watch(ctx, metav1.ListOptions{
		ResourceVersion:     resourceVersion,
		AllowWatchBookmarks: true,
	})
}

// GetByName fetches the latest state of the named resource
func (rc *ResourceClient) GetByName(
	ctx context.Context, name string,
) (*unstructured.Unstructured, error) {
	return rc.Get(ctx, name, metav1.GetOptions{})
}

// MergePatchStatus applies the given JSON merge patch against the
// status subresource of the named resource
func (rc *ResourceClient) MergePatchStatus(
	ctx context.Context, name string, patch []byte,
) (*unstructured.Unstructured, error) {
	return rc.Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{}, "status")
}

// MergePatch applies the given JSON merge patch against the named
// resource
func (rc *ResourceClient) MergePatch(
	ctx context.Context, name string, patch []byte,
) (*unstructured.Unstructured, error) {
	return rc.Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
}
