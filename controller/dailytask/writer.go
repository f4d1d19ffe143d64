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

	"github.com/golang/glog"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/tools/record"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
	"openebs.io/dailytask/dynamic/codec"
)

// Reasons of the events recorded against a DailyTask
const (
	ReasonStatusUpdated           = "StatusUpdated"
	ReasonStatusUpdatedByFallback = "StatusUpdatedViaFallback"
	ReasonStatusUpdateFailed      = "StatusUpdateFailed"
)

// Outcome of a successful status write
type Outcome int

const (
	// OutcomeStatusPatched implies the status subresource was
	// patched
	OutcomeStatusPatched Outcome = iota + 1

	// OutcomeFallbackPatched implies the resource itself was
	// patched after the status subresource patch failed
	OutcomeFallbackPatched
)

// String implements Stringer interface
func (o Outcome) String() string {
	switch o {
	case OutcomeStatusPatched:
		return "StatusPatched"
	case OutcomeFallbackPatched:
		return "FallbackPatched"
	default:
		return "Unknown"
	}
}

// StatusWriter writes the status of a DailyTask
type StatusWriter struct {
	Client Client

	// Recorder is optional
	Recorder record.EventRecorder
}

// Write sets the given status against the identified DailyTask.
//
// The resource is fetched first & nothing is written when that
// fails. The status is then merge patched via the status
// subresource. If that fails the same merge patch is applied once
// against the resource itself.
func (w *StatusWriter) Write(
	ctx context.Context, namespace, name string, status v1.DailyTaskStatus,
) (Outcome, error) {
	current, err := w.Client.Get(ctx, namespace, name)
	if err != nil {
		return 0, &WriteAbortedError{Namespace: namespace, Name: name, Err: err}
	}
	glog.V(4).Infof("%s %s/%s exists: Will update status", v1.Kind, namespace, name)

	patch, err := codec.StatusMergePatch(status)
	if err != nil {
		return 0, errors.Wrapf(err, "Status write failed for %s/%s", namespace, name)
	}
	glog.V(4).Infof("Status patch for %s/%s: %s", namespace, name, patch)

	_, statusErr := w.Client.PatchStatus(ctx, namespace, name, patch)
	if statusErr == nil {
		w.event(current, corev1.EventTypeNormal, ReasonStatusUpdated,
			"Status set to %s at %s", status.Today.Rating, status.Today.Time)
		return OutcomeStatusPatched, nil
	}
	glog.Warningf(
		"Status subresource patch failed for %s/%s: Will try regular patch as fallback: %v",
		namespace, name, statusErr,
	)

	_, patchErr := w.Client.Patch(ctx, namespace, name, patch)
	if patchErr == nil {
		w.event(current, corev1.EventTypeNormal, ReasonStatusUpdatedByFallback,
			"Status set to %s at %s without status subresource: %v",
			status.Today.Rating, status.Today.Time, statusErr)
		return OutcomeFallbackPatched, nil
	}

	failed := &WriteFailedError{
		Namespace: namespace,
		Name:      name,
		StatusErr: statusErr,
		PatchErr:  patchErr,
	}
	w.event(current, corev1.EventTypeWarning, ReasonStatusUpdateFailed, "%v", failed)
	return 0, failed
}

func (w *StatusWriter) event(
	obj *unstructured.Unstructured, eventType, reason, messageFmt string, args ...interface{},
) {
	if w.Recorder == nil || obj == nil {
		return
	}
	w.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}
