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

package hooks

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/go-jsonnet"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/json"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
	"openebs.io/dailytask/dynamic/codec"
)

// JsonnetStatus computes the status by evaluating a jsonnet
// snippet. The snippet can refer to:
//
//	std.extVar('task')	the observed DailyTask as an object
//	std.extVar('time')	the observation time formatted as HH:MM:SS
//	std.extVar('day')	the observation weekday name
//
// & must evaluate to the "today" object of the status e.g.
//
//	local task = std.extVar('task');
//	{ rating: if task.spec.priority > 3 then 'Bad' else 'Good' }
//
// Missing time & day fields are filled from the observation time.
type JsonnetStatus struct {
	// Name is used as the snippet file name in evaluation errors
	Name string

	// Snippet is the jsonnet source
	Snippet string

	// Fallback is invoked when evaluation fails to keep this
	// status computer total
	Fallback StatusFunc
}

// JsonnetStatusOption is a typed function that helps in building
// up the JsonnetStatus instance
//
// NOTE:
//	This follows "functional options" pattern
type JsonnetStatusOption func(*JsonnetStatus)

// WithJsonnetName sets the name of the snippet
func WithJsonnetName(name string) JsonnetStatusOption {
	return func(j *JsonnetStatus) {
		j.Name = name
	}
}

// WithJsonnetFallback sets the fallback status function
func WithJsonnetFallback(fn StatusFunc) JsonnetStatusOption {
	return func(j *JsonnetStatus) {
		j.Fallback = fn
	}
}

// NewJsonnetStatus returns a new instance of JsonnetStatus after
// verifying the snippet parses
func NewJsonnetStatus(snippet string, opts ...JsonnetStatusOption) (*JsonnetStatus, error) {
	j := &JsonnetStatus{
		Name:     "status.jsonnet",
		Snippet:  snippet,
		Fallback: DefaultStatus,
	}
	for _, o := range opts {
		o(j)
	}
	if j.Snippet == "" {
		return nil, errors.Errorf("%s: Snippet can't be empty", j)
	}
	if _, err := jsonnet.SnippetToAST(j.Name, j.Snippet); err != nil {
		return nil, errors.Wrapf(err, "%s: Invalid snippet", j)
	}
	return j, nil
}

// String implements Stringer interface
func (j *JsonnetStatus) String() string {
	return fmt.Sprintf("JsonnetStatus %s", j.Name)
}

// Compute implements StatusFunc
func (j *JsonnetStatus) Compute(task *v1.DailyTask, now time.Time) v1.DailyTaskStatus {
	today, err := j.evaluate(task, now)
	if err != nil {
		glog.Warningf(
			"%s: Will use fallback status for %s/%s: %v",
			j, task.Namespace, task.Name, err,
		)
		return j.Fallback(task, now)
	}
	return v1.DailyTaskStatus{Today: today}
}

func (j *JsonnetStatus) evaluate(task *v1.DailyTask, now time.Time) (v1.DayInfo, error) {
	data, err := codec.Encode(task)
	if err != nil {
		return v1.DayInfo{}, err
	}
	defaults := NewDayInfo(now, v1.RatingGood)

	// a vm is not safe for concurrent use
	vm := jsonnet.MakeVM()
	vm.ExtCode("task", string(data))
	vm.ExtVar("time", defaults.Time)
	vm.ExtVar("day", defaults.Day)

	out, err := vm.EvaluateAnonymousSnippet(j.Name, j.Snippet)
	if err != nil {
		return v1.DayInfo{}, errors.Wrapf(err, "Evaluation failed")
	}
	glog.V(6).Infof("%s: Evaluated %s/%s to %s", j, task.Namespace, task.Name, out)

	today := v1.DayInfo{}
	if err := json.Unmarshal([]byte(out), &today); err != nil {
		return v1.DayInfo{}, errors.Wrapf(err, "Invalid evaluation result %q", out)
	}
	if today.Time == "" {
		today.Time = defaults.Time
	}
	if today.Day == "" {
		today.Day = defaults.Day
	}
	return today, nil
}
