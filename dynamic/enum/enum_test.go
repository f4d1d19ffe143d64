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

package enum

import (
	"testing"
)

type phase int

const (
	phasePending phase = iota
	phaseRunning
	phaseDone
)

var phaseTable = NewTable(
	Member[phase]{Value: phasePending, Name: "Pending"},
	Member[phase]{Value: phaseRunning, Name: "Running", Alias: "in-progress"},
	Member[phase]{Value: phaseDone, Name: "Done"},
)

func TestTableFormat(t *testing.T) {
	var tests = map[string]struct {
		value  phase
		expect string
	}{
		"name is used without alias": {
			value:  phasePending,
			expect: "Pending",
		},
		"alias wins over name": {
			value:  phaseRunning,
			expect: "in-progress",
		},
		"undeclared value": {
			value:  phase(42),
			expect: "42",
		},
	}
	for name, mock := range tests {
		name := name
		mock := mock
		t.Run(name, func(t *testing.T) {
			got := phaseTable.Format(mock.value)
			if got != mock.expect {
				t.Fatalf("Expected %q got %q", mock.expect, got)
			}
		})
	}
}

func TestTableUnmarshalJSON(t *testing.T) {
	var tests = map[string]struct {
		data   string
		expect phase
	}{
		"exact name":          {data: `"Done"`, expect: phaseDone},
		"lower case name":     {data: `"done"`, expect: phaseDone},
		"upper case alias":    {data: `"IN-PROGRESS"`, expect: phaseRunning},
		"name of aliased one": {data: `"Running"`, expect: phasePending},
		"unknown string":      {data: `"unknown-value"`, expect: phasePending},
		"empty string":        {data: `""`, expect: phasePending},
		"null":                {data: `null`, expect: phasePending},
		"number":              {data: `2`, expect: phasePending},
		"object":              {data: `{"a":"Done"}`, expect: phasePending},
	}
	for name, mock := range tests {
		name := name
		mock := mock
		t.Run(name, func(t *testing.T) {
			got := phaseTable.UnmarshalJSON([]byte(mock.data))
			if got != mock.expect {
				t.Fatalf("Expected %v got %v", mock.expect, got)
			}
		})
	}
}

func TestTableRoundTrip(t *testing.T) {
	for _, v := range []phase{phasePending, phaseRunning, phaseDone} {
		data, err := phaseTable.MarshalJSON(v)
		if err != nil {
			t.Fatalf("Expected no error got %v", err)
		}
		got := phaseTable.UnmarshalJSON(data)
		if got != v {
			t.Fatalf("Expected %v got %v: wire %s", v, got, data)
		}
		if !phaseTable.Known(got) {
			t.Fatalf("Expected %v to be a known member", got)
		}
	}
}

func TestNewTableDuplicateWirePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("Expected panic for duplicate wire string")
		}
	}()
	NewTable(
		Member[phase]{Value: phasePending, Name: "Pending"},
		Member[phase]{Value: phaseDone, Name: "Done", Alias: "PENDING"},
	)
}
