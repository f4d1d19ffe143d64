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

package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/discovery"
)

// APIResource wraps the server API resource with the names of
// its subresources
type APIResource struct {
	metav1.APIResource

	// group version as served
	APIVersion string

	hasSubresource map[string]bool
}

// GroupVersionResource returns the GroupVersionResource of this
// resource
func (r *APIResource) GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: r.Group, Version: r.Version, Resource: r.Name}
}

// HasSubresource flags if the provided subresource is served
func (r *APIResource) HasSubresource(subresource string) bool {
	return r.hasSubresource[subresource]
}

// Get discovers the given resource. It returns nil without error
// if the group version is served but the resource is not.
func Get(
	client discovery.DiscoveryInterface, gvr schema.GroupVersionResource,
) (*APIResource, error) {
	gv := gvr.GroupVersion().String()
	list, err := client.ServerResourcesForGroupVersion(gv)
	if err != nil {
		return nil, err
	}

	var found *APIResource
	subresources := map[string]bool{}
	for i := range list.APIResources {
		res := list.APIResources[i]
		if name, sub, ok := strings.Cut(res.Name, "/"); ok {
			if name == gvr.Resource {
				subresources[sub] = true
			}
			continue
		}
		if res.Name != gvr.Resource {
			continue
		}
		// materialize defaults from the list
		if res.Group == "" {
			res.Group = gvr.Group
		}
		if res.Version == "" {
			res.Version = gvr.Version
		}
		found = &APIResource{APIResource: res, APIVersion: gv}
	}
	if found != nil {
		found.hasSubresource = subresources
	}
	return found, nil
}

// WaitFor polls discovery till the given resource is served
func WaitFor(
	ctx context.Context,
	client discovery.DiscoveryInterface,
	gvr schema.GroupVersionResource,
	interval, timeout time.Duration,
) (*APIResource, error) {
	var found *APIResource
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true,
		func(ctx context.Context) (bool, error) {
			res, err := Get(client, gvr)
			if apierrors.IsNotFound(err) {
				glog.V(4).Infof("Waiting for %s to be served: %v", gvr, err)
				return false, nil
			}
			if err != nil {
				glog.Warningf("API resource discovery failed for %s: %v", gvr, err)
				return false, nil
			}
			found = res
			return res != nil, nil
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "%s is not served", gvr)
	}
	return found, nil
}
