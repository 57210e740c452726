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

package api

import (
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
	"github.com/google/gfxreplay/gapis/reference"
)

// Class is how replay treats an operation.
type Class uint8

const (
	// Immediate operations are called directly on the driver.
	Immediate Class = iota
	// Create operations allocate a new object named by their first primary
	// identity.
	Create
	// Destroy operations release the object named by their first primary
	// identity.
	Destroy
	// ScopeBegin opens a recording scope on the object named by the first
	// primary identity.
	ScopeBegin
	// Scoped operations are recorded into the scope named by the first
	// primary identity and executed when the scope ends.
	Scoped
	// ScopeEnd closes the scope and executes its recorded operations.
	ScopeEnd
	// FrameBoundary operations end a frame.
	FrameBoundary
)

func (c Class) String() string {
	return [...]string{"Immediate", "Create", "Destroy", "ScopeBegin", "Scoped", "ScopeEnd", "FrameBoundary"}[c]
}

// OpInfo describes one operation of an api.
type OpInfo struct {
	Opcode chunk.Opcode
	Name   string
	Class  Class
	Flags  CmdFlags
	// Kind is the kind of object a Create operation allocates or a Destroy
	// operation releases.
	Kind identity.Kind
	// Requires lists the device capabilities the operation needs.
	Requires []Capability
	// Params is the parameter structure type, or 0 if the operation takes
	// none.
	Params patch.StructType
	// Primary is the access the operation makes to its primary objects.
	// Scope operations record Barrier against the scope object.
	Primary reference.Access
	// Skippable operations are on the default skip allow-list: replay may
	// drop them when the device lacks a required capability.
	Skippable bool
}

// OpensScope returns true if the operation opens a recording scope.
func (o *OpInfo) OpensScope() bool { return o.Class == ScopeBegin }

// InScope returns true if the operation must be issued inside a scope.
func (o *OpInfo) InScope() bool { return o.Class == Scoped || o.Class == ScopeEnd }

func (o *OpInfo) String() string { return o.Name }
