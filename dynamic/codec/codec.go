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

// Package codec converts DailyTask resources between their wire
// form & their typed form.
//
// Decoding happens in two passes. The first pass reads the
// envelope i.e. identity & resource version of an object without
// assuming anything about its spec or status. The second pass
// decodes the object into the typed DailyTask. This lets callers
// advance their version token even when an object turns out to be
// malformed.
package codec

import (
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/json"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
)

// Envelope is the result of the first decoding pass
type Envelope struct {
	Namespace       string
	Name            string
	ResourceVersion string
}

// String implements Stringer interface
func (e Envelope) String() string {
	return fmt.Sprintf("%s/%s@%s", e.Namespace, e.Name, e.ResourceVersion)
}

// EnvelopeOf reads the envelope of the given object
func EnvelopeOf(obj runtime.Object) (Envelope, error) {
	if obj == nil {
		return Envelope{}, errors.Errorf("Can't read envelope: Nil object")
	}
	accessor, err := meta.Accessor(obj)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "Can't read envelope of %T", obj)
	}
	return Envelope{
		Namespace:       accessor.GetNamespace(),
		Name:            accessor.GetName(),
		ResourceVersion: accessor.GetResourceVersion(),
	}, nil
}

// Decode decodes the given JSON document into a DailyTask
func Decode(data []byte) (*v1.DailyTask, error) {
	task := &v1.DailyTask{}
	if err := json.Unmarshal(data, task); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %s", v1.Kind)
	}
	if err := verifyTypeMeta(task); err != nil {
		return nil, err
	}
	return task, nil
}

// verifyTypeMeta rejects documents of some other kind. Documents
// without type information are accepted since items of a list
// may omit it.
func verifyTypeMeta(task *v1.DailyTask) error {
	if task.Kind != "" && task.Kind != v1.Kind {
		return errors.Errorf("Failed to decode %s: Got kind %q", v1.Kind, task.Kind)
	}
	if task.APIVersion != "" && task.APIVersion != v1.SchemeGroupVersion.String() {
		return errors.Errorf(
			"Failed to decode %s: Got apiVersion %q", v1.Kind, task.APIVersion,
		)
	}
	return nil
}

// Encode encodes the given DailyTask into its JSON document
func Encode(task *v1.DailyTask) ([]byte, error) {
	if task == nil {
		return nil, errors.Errorf("Failed to encode %s: Nil instance", v1.Kind)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode %s %s/%s", v1.Kind, task.Namespace, task.Name)
	}
	return data, nil
}

// FromUnstructured decodes the given unstructured instance into a
// DailyTask
func FromUnstructured(u *unstructured.Unstructured) (*v1.DailyTask, error) {
	if u == nil {
		return nil, errors.Errorf("Failed to decode %s: Nil unstructured", v1.Kind)
	}
	data, err := u.MarshalJSON()
	if err != nil {
		return nil, errors.Wrapf(
			err, "Failed to decode %s %s/%s", v1.Kind, u.GetNamespace(), u.GetName(),
		)
	}
	task, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s/%s", u.GetNamespace(), u.GetName())
	}
	return task, nil
}

// FromObject decodes the given runtime object into a DailyTask
func FromObject(obj runtime.Object) (*v1.DailyTask, error) {
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		return nil, errors.Errorf("Failed to decode %s: Unsupported type %T", v1.Kind, obj)
	}
	return FromUnstructured(u)
}

// ToUnstructured encodes the given DailyTask into an unstructured
// instance. Type information is filled in when missing.
func ToUnstructured(task *v1.DailyTask) (*unstructured.Unstructured, error) {
	data, err := Encode(task)
	if err != nil {
		return nil, err
	}
	obj := map[string]interface{}{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrapf(err, "Failed to convert %s to unstructured", v1.Kind)
	}
	u := &unstructured.Unstructured{Object: obj}
	if u.GetAPIVersion() == "" {
		u.SetAPIVersion(v1.SchemeGroupVersion.String())
	}
	if u.GetKind() == "" {
		u.SetKind(v1.Kind)
	}
	return u, nil
}

// statusPatch is the merge patch document that sets the status
type statusPatch struct {
	Status v1.DailyTaskStatus `json:"status"`
}

// StatusMergePatch returns the JSON merge patch that sets the given
// status. The document only carries the status field & is hence
// valid against both the status subresource & the main resource.
// Equal statuses produce byte identical patches.
func StatusMergePatch(status v1.DailyTaskStatus) ([]byte, error) {
	data, err := json.Marshal(statusPatch{Status: status})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to build status merge patch")
	}
	return data, nil
}
