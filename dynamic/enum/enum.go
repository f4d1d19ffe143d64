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

// Package enum maps typed enum constants to & from their wire
// representation based on a statically declared member table.
package enum

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/json"
)

// Member declares one enum constant & its wire representation
type Member[T comparable] struct {
	// Value is the typed constant
	Value T

	// Name is the symbolic name of the constant
	Name string

	// Alias is the optional wire string of the constant.
	// Name is used on the wire when Alias is empty.
	Alias string
}

// wire returns the string that represents this member on
// the wire
func (m Member[T]) wire() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Name
}

// Table holds the bidirectional mapping of an enum type. It is
// meant to be built once per enum type during package
// initialisation & is safe for concurrent reads thereafter.
type Table[T comparable] struct {
	toWire   map[T]string
	fromWire map[string]T
}

// NewTable returns a new Table built from the given members.
// It panics on duplicate values or wire strings since the
// table is a static declaration.
func NewTable[T comparable](members ...Member[T]) *Table[T] {
	t := &Table[T]{
		toWire:   make(map[T]string, len(members)),
		fromWire: make(map[string]T, len(members)),
	}
	for _, m := range members {
		if m.Name == "" {
			panic(fmt.Sprintf("enum member %#v has no name", m.Value))
		}
		key := strings.ToLower(m.wire())
		if _, dup := t.fromWire[key]; dup {
			panic(fmt.Sprintf("enum wire string %q is declared twice", m.wire()))
		}
		if _, dup := t.toWire[m.Value]; dup {
			panic(fmt.Sprintf("enum value %#v is declared twice", m.Value))
		}
		t.toWire[m.Value] = m.wire()
		t.fromWire[key] = m.Value
	}
	return t
}

// Format returns the wire string of the given value. Values that
// are not declared in the table are formatted with their Go syntax
// representation.
func (t *Table[T]) Format(v T) string {
	if s, ok := t.toWire[v]; ok {
		return s
	}
	// %#v does not call String() & hence is safe to use from
	// within a Stringer of T
	return fmt.Sprintf("%#v", v)
}

// Parse returns the member matching the given wire string
// ignoring case. Unknown strings result in the zero value.
func (t *Table[T]) Parse(s string) T {
	v, _ := t.Lookup(s)
	return v
}

// Lookup is like Parse but flags whether the string matched a
// declared member
func (t *Table[T]) Lookup(s string) (T, bool) {
	v, ok := t.fromWire[strings.ToLower(s)]
	return v, ok
}

// Known returns true if the given value is a declared member
func (t *Table[T]) Known(v T) bool {
	_, ok := t.toWire[v]
	return ok
}

// MarshalJSON encodes the given value as a JSON string
func (t *Table[T]) MarshalJSON(v T) ([]byte, error) {
	data, err := json.Marshal(t.Format(v))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to marshal enum %v", v)
	}
	return data, nil
}

// UnmarshalJSON decodes the given JSON into a member. Decoding is
// lenient: null, non string tokens & unknown strings result in the
// zero value instead of an error.
func (t *Table[T]) UnmarshalJSON(data []byte) T {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var zero T
		return zero
	}
	return t.Parse(s)
}
