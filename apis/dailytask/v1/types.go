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

// Package v1 contains API Schema definitions for the DailyTask
// custom resource
// +groupName=example.com
package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// GroupName is the API group of DailyTask
	GroupName = "example.com"

	// Version is the API version of DailyTask
	Version = "v1"

	// Kind of the resource reconciled by this controller
	Kind = "DailyTask"

	// ListKind is the kind of a DailyTask collection
	ListKind = "DailyTaskList"

	// Resource is the plural name of DailyTask
	Resource = "dailytasks"

	// StatusSubresource is the name of the status endpoint
	StatusSubresource = "status"
)

// SchemeGroupVersion is the group version of DailyTask
var SchemeGroupVersion = schema.GroupVersion{Group: GroupName, Version: Version}

// GroupVersionResource returns the resource coordinates of DailyTask
func GroupVersionResource() schema.GroupVersionResource {
	return SchemeGroupVersion.WithResource(Resource)
}

// GroupVersionKind returns the kind coordinates of DailyTask
func GroupVersionKind() schema.GroupVersionKind {
	return SchemeGroupVersion.WithKind(Kind)
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced
type DailyTask struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DailyTaskSpec `json:"spec"`
	// +optional
	Status *DailyTaskStatus `json:"status,omitempty"`
}

// DailyTaskSpec is the user provided task. It is opaque to the
// controller.
type DailyTaskSpec struct {
	TaskName    string `json:"taskName"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// DailyTaskStatus is computed by the controller
type DailyTaskStatus struct {
	Today DayInfo `json:"today"`
}

// DayInfo describes the moment a DailyTask was last reconciled
type DayInfo struct {
	// Time is the wall clock time formatted as HH:MM:SS
	Time string `json:"time"`

	// Day is the name of the weekday
	Day string `json:"day"`

	Rating Rating `json:"rating"`
}

// NewDailyTask returns a DailyTask with its type information set
func NewDailyTask(namespace, name string) *DailyTask {
	return &DailyTask{
		TypeMeta: metav1.TypeMeta{
			APIVersion: SchemeGroupVersion.String(),
			Kind:       Kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      name,
		},
	}
}
