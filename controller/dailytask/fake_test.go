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
	"sort"
	"sync"

	jsonpatch "gopkg.in/evanphx/json-patch.v4"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/apimachinery/pkg/watch"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
)

// patchCall is a patch received by fakeClient
type patchCall struct {
	Name        string
	Subresource string
	Body        []byte
}

// fakeClient is an in memory Client. List, Get & the patches work
// against the stored objects unless overridden.
type fakeClient struct {
	mutex sync.Mutex

	objects map[string]*unstructured.Unstructured
	listRV  string

	// overrides; call starts from 1
	onList  func(call int, rv string) (*unstructured.UnstructuredList, error)
	onWatch func(call int, rv string) (watch.Interface, error)

	getErr    error
	statusErr error
	patchErr  error

	listCalls  []string
	watchCalls []string
	gets       int
	patches    []patchCall
}

func newFakeClient(listRV string, objects ...*unstructured.Unstructured) *fakeClient {
	f := &fakeClient{
		objects: map[string]*unstructured.Unstructured{},
		listRV:  listRV,
	}
	for _, obj := range objects {
		f.objects[obj.GetNamespace()+"/"+obj.GetName()] = obj
	}
	return f
}

func (f *fakeClient) List(
	ctx context.Context, namespace, rv string,
) (*unstructured.UnstructuredList, error) {
	f.mutex.Lock()
	f.listCalls = append(f.listCalls, rv)
	call := len(f.listCalls)
	onList := f.onList
	f.mutex.Unlock()

	if onList != nil {
		return onList(call, rv)
	}
	return f.storedList(namespace), nil
}

func (f *fakeClient) storedList(namespace string) *unstructured.UnstructuredList {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	list := &unstructured.UnstructuredList{Object: map[string]interface{}{}}
	list.SetAPIVersion(v1.SchemeGroupVersion.String())
	list.SetKind(v1.ListKind)
	list.SetResourceVersion(f.listRV)

	var keys []string
	for key, obj := range f.objects {
		if obj.GetNamespace() == namespace {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		list.Items = append(list.Items, *f.objects[key].DeepCopy())
	}
	return list
}

func (f *fakeClient) Watch(
	ctx context.Context, namespace, rv string,
) (watch.Interface, error) {
	f.mutex.Lock()
	f.watchCalls = append(f.watchCalls, rv)
	call := len(f.watchCalls)
	onWatch := f.onWatch
	f.mutex.Unlock()

	if onWatch != nil {
		return onWatch(call, rv)
	}
	// a silent stream
	return watch.NewFake(), nil
}

func (f *fakeClient) Get(
	ctx context.Context, namespace, name string,
) (*unstructured.Unstructured, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	obj, found := f.objects[namespace+"/"+name]
	if !found {
		return nil, apierrors.NewNotFound(v1.GroupVersionResource().GroupResource(), name)
	}
	return obj.DeepCopy(), nil
}

func (f *fakeClient) PatchStatus(
	ctx context.Context, namespace, name string, patch []byte,
) (*unstructured.Unstructured, error) {
	return f.patch(namespace, name, v1.StatusSubresource, patch, f.statusErr)
}

func (f *fakeClient) Patch(
	ctx context.Context, namespace, name string, patch []byte,
) (*unstructured.Unstructured, error) {
	return f.patch(namespace, name, "", patch, f.patchErr)
}

func (f *fakeClient) patch(
	namespace, name, subresource string, patch []byte, failWith error,
) (*unstructured.Unstructured, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.patches = append(f.patches, patchCall{
		Name:        name,
		Subresource: subresource,
		Body:        append([]byte(nil), patch...),
	})
	if failWith != nil {
		return nil, failWith
	}
	key := namespace + "/" + name
	obj, found := f.objects[key]
	if !found {
		return nil, apierrors.NewNotFound(v1.GroupVersionResource().GroupResource(), name)
	}
	current, err := obj.MarshalJSON()
	if err != nil {
		return nil, err
	}
	patched, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return nil, apierrors.NewBadRequest(err.Error())
	}
	content := map[string]interface{}{}
	if err := json.Unmarshal(patched, &content); err != nil {
		return nil, err
	}
	updated := &unstructured.Unstructured{Object: content}
	f.objects[key] = updated
	return updated.DeepCopy(), nil
}

// stored returns a copy of the stored object
func (f *fakeClient) stored(namespace, name string) *unstructured.Unstructured {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	obj, found := f.objects[namespace+"/"+name]
	if !found {
		return nil
	}
	return obj.DeepCopy()
}

func (f *fakeClient) patchCalls() []patchCall {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]patchCall(nil), f.patches...)
}

func (f *fakeClient) listedWith() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.listCalls...)
}

func (f *fakeClient) watchedWith() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.watchCalls...)
}

func (f *fakeClient) getCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.gets
}

// newTaskObject returns a DailyTask in the default namespace as
// sent by the API server
func newTaskObject(name, rv string, priority interface{}) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": v1.SchemeGroupVersion.String(),
		"kind":       v1.Kind,
		"metadata": map[string]interface{}{
			"name":            name,
			"namespace":       DefaultNamespace,
			"resourceVersion": rv,
			"uid":             "uid-" + name,
		},
		"spec": map[string]interface{}{
			"taskName":    "x",
			"description": "task " + name,
			"priority":    priority,
		},
	}}
	return obj
}
