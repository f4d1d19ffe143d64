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
	"fmt"

	"k8s.io/apimachinery/pkg/watch"
)

// ListError is returned when the resync stage could not list the
// resources. The run loop retries after a delay.
type ListError struct {
	Namespace       string
	ResourceVersion string
	Err             error
}

func (e *ListError) Error() string {
	return fmt.Sprintf(
		"List in %q since resource version %q failed: %v",
		e.Namespace, e.ResourceVersion, e.Err,
	)
}

// Unwrap returns the underlying error
func (e *ListError) Unwrap() error { return e.Err }

// WatchError is returned when the watch stream could not be opened
// or delivered an error. The run loop retries with a fresh resync
// after a delay.
type WatchError struct {
	Namespace       string
	ResourceVersion string
	Err             error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf(
		"Watch in %q since resource version %q failed: %v",
		e.Namespace, e.ResourceVersion, e.Err,
	)
}

// Unwrap returns the underlying error
func (e *WatchError) Unwrap() error { return e.Err }

// WriteAbortedError is returned when the resource could not be
// fetched before writing its status. No write was attempted.
type WriteAbortedError struct {
	Namespace string
	Name      string
	Err       error
}

func (e *WriteAbortedError) Error() string {
	return fmt.Sprintf(
		"Status write aborted for %s/%s: Existence check failed: %v",
		e.Namespace, e.Name, e.Err,
	)
}

// Unwrap returns the underlying error
func (e *WriteAbortedError) Unwrap() error { return e.Err }

// WriteFailedError is returned when both the status subresource
// patch & the fallback patch failed
type WriteFailedError struct {
	Namespace string
	Name      string
	StatusErr error
	PatchErr  error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf(
		"Status write failed for %s/%s: Status patch: %v: Fallback patch: %v",
		e.Namespace, e.Name, e.StatusErr, e.PatchErr,
	)
}

// Unwrap returns both underlying errors
func (e *WriteFailedError) Unwrap() []error {
	return []error{e.StatusErr, e.PatchErr}
}

// DecodeError flags a listed or streamed object that could not be
// decoded. The object is skipped.
type DecodeError struct {
	EventType watch.EventType
	Object    string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.EventType == "" {
		return fmt.Sprintf("Decode of listed object %s failed: %v", e.Object, e.Err)
	}
	return fmt.Sprintf("Decode of %s event for %s failed: %v", e.EventType, e.Object, e.Err)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error { return e.Err }
