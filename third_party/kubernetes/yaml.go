/*
Copyright 2019 The Kubernetes Authors.
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

// Package kubernetes has helpers to read Kubernetes style yaml
// documents into unstructured instances
package kubernetes

import (
	"bytes"

	"github.com/pkg/errors"
	goyaml "gopkg.in/yaml.v2"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/yaml"
)

const yamlSeparator = "\n---\n"

// docList is a Kubernetes List that holds the documents of a
// multi document yaml. Items are unstructured objects.
type docList struct {
	APIVersion string                   `yaml:"apiVersion"`
	Kind       string                   `yaml:"kind"`
	Items      []map[string]interface{} `yaml:"items"`
}

// JSONToUnstructured converts a json document into an
// unstructured instance. The document must have a kind.
func JSONToUnstructured(in []byte) (unstructured.Unstructured, error) {
	obj := unstructured.Unstructured{}
	err := obj.UnmarshalJSON(in)
	if err != nil {
		return unstructured.Unstructured{}, errors.Wrapf(err, "Failed to unmarshal JSON")
	}
	return obj, nil
}

// YAMLToUnstructured converts one or more yaml documents into an
// unstructured instance. More than one document results in a List.
func YAMLToUnstructured(in []byte) (unstructured.Unstructured, error) {
	docs := splitYAML(in)
	if len(docs) == 0 {
		return unstructured.Unstructured{}, errors.Errorf("Failed to load yaml: No documents")
	}

	data := docs[0]
	if len(docs) > 1 {
		var err error
		data, err = toList(docs)
		if err != nil {
			return unstructured.Unstructured{},
				errors.Wrapf(err, "Failed to split yaml docs: Len %d", len(docs))
		}
	}
	raw, err := yaml.ToJSON(data)
	if err != nil {
		return unstructured.Unstructured{}, errors.Wrapf(err, "Failed to convert YAML to JSON")
	}
	return JSONToUnstructured(raw)
}

// YAMLToUnstructuredSlice converts one or more yaml documents into
// unstructured instances; one per document
func YAMLToUnstructuredSlice(in []byte) ([]unstructured.Unstructured, error) {
	u, err := YAMLToUnstructured(in)
	if err != nil {
		return nil, err
	}
	if !u.IsList() {
		return []unstructured.Unstructured{u}, nil
	}
	var result []unstructured.Unstructured
	err = u.EachListItem(func(obj runtime.Object) error {
		item, ok := obj.(*unstructured.Unstructured)
		if !ok {
			return errors.Errorf("Unsupported list item %T", obj)
		}
		result = append(result, *item)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to convert yaml docs to unstructured instances")
	}
	return result, nil
}

// splitYAML splits the given yaml on the document separator &
// drops the blank documents
func splitYAML(in []byte) [][]byte {
	var out [][]byte
	for _, doc := range bytes.Split(in, []byte(yamlSeparator)) {
		trimmed := bytes.TrimSpace(doc)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("---")) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// toList wraps the given yaml documents in a List
func toList(docs [][]byte) ([]byte, error) {
	items := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		item := make(map[string]interface{})
		if err := goyaml.Unmarshal(doc, item); err != nil {
			return nil, errors.Wrapf(err, "Failed to unmarshal")
		}
		items = append(items, item)
	}
	return goyaml.Marshal(&docList{
		APIVersion: "v1",
		Kind:       "List",
		Items:      items,
	})
}
