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
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	clienttesting "k8s.io/client-go/testing"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
	dynamicclientset "openebs.io/dailytask/dynamic/clientset"
)

func newDynamicClient(objects ...runtime.Object) (*dynamicfake.FakeDynamicClient, Client) {
	fake := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			v1.GroupVersionResource(): v1.ListKind,
		},
		objects...,
	)
	cs := dynamicclientset.NewForDynamic(fake)
	return fake, NewClient(cs.Resource(v1.GroupVersionResource()))
}

func TestDynamicClientListAndGet(t *testing.T) {
	_, client := newDynamicClient(
		newTaskObject("task-a", "100", int64(1)),
		newTaskObject("task-b", "100", int64(2)),
	)

	list, err := client.List(context.Background(), DefaultNamespace, "")
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("Expected 2 items got %d", len(list.Items))
	}

	list, err = client.List(context.Background(), "other", "")
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("Expected no items in other namespace got %d", len(list.Items))
	}

	got, err := client.Get(context.Background(), DefaultNamespace, "task-b")
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	if got.GetName() != "task-b" {
		t.Fatalf("Expected task-b got %q", got.GetName())
	}

	_, err = client.Get(context.Background(), DefaultNamespace, "task-c")
	if !apierrors.IsNotFound(err) {
		t.Fatalf("Expected not found got %v", err)
	}
}

func TestDynamicClientWatch(t *testing.T) {
	_, client := newDynamicClient()

	w, err := client.Watch(context.Background(), DefaultNamespace, "100")
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	if w == nil {
		t.Fatalf("Expected watch got nil")
	}
	w.Stop()
}

func TestDynamicClientPatches(t *testing.T) {
	fake, client := newDynamicClient(newTaskObject("task-a", "100", int64(1)))
	// the object tracker has no notion of subresources
	fake.PrependReactor(
		"patch", v1.Resource,
		func(action clienttesting.Action) (bool, runtime.Object, error) {
			if action.GetSubresource() != v1.StatusSubresource {
				return false, nil, nil
			}
			return true, newTaskObject("task-a", "101", int64(1)), nil
		},
	)
	patch := []byte(`{"status":{"today":{"time":"09:05:07","day":"Wednesday","rating":"Good"}}}`)

	if _, err := client.PatchStatus(context.Background(), DefaultNamespace, "task-a", patch); err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	patched, err := client.Patch(context.Background(), DefaultNamespace, "task-a", patch)
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	rating, _, _ := unstructured.NestedString(patched.Object, "status", "today", "rating")
	if rating != "Good" {
		t.Fatalf("Expected rating Good got %q", rating)
	}

	var subresources []string
	for _, action := range fake.Actions() {
		if action.GetVerb() == "patch" {
			subresources = append(subresources, action.GetSubresource())
		}
	}
	if len(subresources) != 2 || subresources[0] != "status" || subresources[1] != "" {
		t.Fatalf("Expected status & main resource patches got %v", subresources)
	}
}
