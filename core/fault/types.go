// Copyright (C) 2026 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fault provides constant error kinds and error aggregation.
package fault

import "strings"

// Const is the type for constant error values.
type Const string

func (e Const) Error() string { return string(e) }

// List is a list of errors that is itself an error.
type List []error

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (l List) Unwrap() []error { return l }

// First returns the first error in the list, or nil.
func (l List) First() error {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Collect appends err to the list if it is not nil.
func (l *List) Collect(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

// Err returns the list as an error, or nil if it is empty.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return l
	}
}
