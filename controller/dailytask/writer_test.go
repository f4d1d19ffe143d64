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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/tools/record"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
)

var testStatus = v1.DailyTaskStatus{
	Today: v1.DayInfo{Time: "09:05:07", Day: "Wednesday", Rating: v1.RatingGood},
}

func statusOf(t *testing.T, obj *unstructured.Unstructured) map[string]interface{} {
	t.Helper()
	if obj == nil {
		t.Fatalf("Expected stored object got none")
	}
	status, found, err := unstructured.NestedMap(obj.Object, "status")
	if err != nil || !found {
		t.Fatalf("Expected status got found %t: err %v", found, err)
	}
	return status
}

func TestStatusWriterWrite(t *testing.T) {
	var statusErr = apierrors.NewNotFound(v1.GroupVersionResource().GroupResource(), "status")
	var patchErr = apierrors.NewForbidden(v1.GroupVersionResource().GroupResource(), "task-a", errors.New("denied"))

	var tests = map[string]struct {
		statusErr      error
		patchErr       error
		expectOutcome  Outcome
		expectPatches  []string
		expectReason   string
		expectFailed   bool
		expectStatusIn bool
	}{
		"status subresource patched": {
			expectOutcome:  OutcomeStatusPatched,
			expectPatches:  []string{"status"},
			expectReason:   ReasonStatusUpdated,
			expectStatusIn: true,
		},
		"fallback patch after status failure": {
			statusErr:      statusErr,
			expectOutcome:  OutcomeFallbackPatched,
			expectPatches:  []string{"status", ""},
			expectReason:   ReasonStatusUpdatedByFallback,
			expectStatusIn: true,
		},
		"both patches fail": {
			statusErr:     statusErr,
			patchErr:      patchErr,
			expectPatches: []string{"status", ""},
			expectReason:  ReasonStatusUpdateFailed,
			expectFailed:  true,
		},
	}
	for name, mock := range tests {
		name := name
		mock := mock
		t.Run(name, func(t *testing.T) {
			client := newFakeClient("100", newTaskObject("task-a", "100", int64(1)))
			client.statusErr = mock.statusErr
			client.patchErr = mock.patchErr
			recorder := record.NewFakeRecorder(10)
			w := &StatusWriter{Client: client, Recorder: recorder}

			outcome, err := w.Write(context.Background(), DefaultNamespace, "task-a", testStatus)
			if mock.expectFailed {
				var failed *WriteFailedError
				if !errors.As(err, &failed) {
					t.Fatalf("Expected WriteFailedError got %v", err)
				}
				if !errors.Is(err, statusErr) || !errors.Is(err, patchErr) {
					t.Fatalf("Expected both causes got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Expected no error got %v", err)
			}
			if outcome != mock.expectOutcome {
				t.Fatalf("Expected outcome %s got %s", mock.expectOutcome, outcome)
			}

			var subresources []string
			for _, call := range client.patchCalls() {
				subresources = append(subresources, call.Subresource)
				if call.Name != "task-a" {
					t.Fatalf("Expected patch of task-a got %q", call.Name)
				}
			}
			if diff := cmp.Diff(mock.expectPatches, subresources); diff != "" {
				t.Fatalf("Expected no diff in patch calls got:\n%s", diff)
			}

			select {
			case event := <-recorder.Events:
				if !strings.Contains(event, mock.expectReason) {
					t.Fatalf("Expected event with reason %s got %q", mock.expectReason, event)
				}
			default:
				t.Fatalf("Expected event with reason %s got none", mock.expectReason)
			}

			_, found, _ := unstructured.NestedMap(client.stored(DefaultNamespace, "task-a").Object, "status")
			if found != mock.expectStatusIn {
				t.Fatalf("Expected status present %t got %t", mock.expectStatusIn, found)
			}
		})
	}
}

func TestStatusWriterAbortsWithoutPatching(t *testing.T) {
	var tests = map[string]struct {
		objects    []*unstructured.Unstructured
		getErr     error
		isNotFound bool
	}{
		"resource deleted before write": {
			isNotFound: true,
		},
		"transport error on get": {
			objects: []*unstructured.Unstructured{newTaskObject("task-a", "100", int64(1))},
			getErr:  apierrors.NewServiceUnavailable("unavailable"),
		},
	}
	for name, mock := range tests {
		name := name
		mock := mock
		t.Run(name, func(t *testing.T) {
			client := newFakeClient("100", mock.objects...)
			client.getErr = mock.getErr
			recorder := record.NewFakeRecorder(10)
			w := &StatusWriter{Client: client, Recorder: recorder}

			_, err := w.Write(context.Background(), DefaultNamespace, "task-a", testStatus)
			var aborted *WriteAbortedError
			if !errors.As(err, &aborted) {
				t.Fatalf("Expected WriteAbortedError got %v", err)
			}
			if mock.isNotFound && !apierrors.IsNotFound(err) {
				t.Fatalf("Expected not found cause got %v", err)
			}
			if calls := client.patchCalls(); len(calls) != 0 {
				t.Fatalf("Expected no patch calls got %d", len(calls))
			}
			if len(recorder.Events) != 0 {
				t.Fatalf("Expected no events got %d", len(recorder.Events))
			}
		})
	}
}

func TestStatusWriterIsIdempotent(t *testing.T) {
	client := newFakeClient("100", newTaskObject("task-a", "100", int64(1)))
	w := &StatusWriter{Client: client}

	if _, err := w.Write(context.Background(), DefaultNamespace, "task-a", testStatus); err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	first, err := client.stored(DefaultNamespace, "task-a").MarshalJSON()
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}

	if _, err := w.Write(context.Background(), DefaultNamespace, "task-a", testStatus); err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	second, err := client.stored(DefaultNamespace, "task-a").MarshalJSON()
	if err != nil {
		t.Fatalf("Expected no error got %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("Expected identical resource got\n%s\n%s", first, second)
	}

	expect := map[string]interface{}{
		"today": map[string]interface{}{
			"time":   "09:05:07",
			"day":    "Wednesday",
			"rating": "Good",
		},
	}
	if diff := cmp.Diff(expect, statusOf(t, client.stored(DefaultNamespace, "task-a"))); diff != "" {
		t.Fatalf("Expected no diff in status got:\n%s", diff)
	}

	calls := client.patchCalls()
	if len(calls) != 2 || string(calls[0].Body) != string(calls[1].Body) {
		t.Fatalf("Expected 2 identical patches got %+v", calls)
	}
}
