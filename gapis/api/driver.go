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
	"context"
	"sort"
	"strings"

	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
)

// ErrUnsupported is returned by drivers for calls the device cannot perform.
const ErrUnsupported = fault.Const("Unsupported on replay device")

// Capability is an optional device feature an operation may require.
type Capability string

// Capabilities is a set of device features.
type Capabilities map[Capability]bool

// NewCapabilities returns the set holding caps.
func NewCapabilities(caps ...Capability) Capabilities {
	out := make(Capabilities, len(caps))
	for _, c := range caps {
		out[c] = true
	}
	return out
}

// Has returns true if c is in the set.
func (s Capabilities) Has(c Capability) bool { return s[c] }

// Missing returns the capabilities of required not in the set.
func (s Capabilities) Missing(required []Capability) []Capability {
	var out []Capability
	for _, c := range required {
		if !s[c] {
			out = append(out, c)
		}
	}
	return out
}

// List returns the capabilities in the set, sorted.
func (s Capabilities) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c, ok := range s {
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Capabilities) String() string {
	l := s.List()
	names := make([]string, len(l))
	for i, c := range l {
		names[i] = string(c)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Requirement is a capability a log needs, with the first event needing it.
type Requirement struct {
	Capability Capability
	FirstEvent CmdID
	// Skippable is true if every operation needing the capability is on the
	// skip allow-list.
	Skippable bool
}

// Device describes a replay device.
type Device struct {
	Name         string
	Vendor       uint32
	Capabilities Capabilities
}

// Call is one real call issued to a driver: the operation, the real handles
// of its primary objects and its patched parameters.
type Call struct {
	EventID CmdID
	Info    *OpInfo
	Primary []identity.Handle
	// Params is nil if the operation takes no parameters. It may alias a
	// reused arena; drivers must not keep it past the call.
	Params *patch.Patched
}

// Driver is the real graphics API replay issues calls through.
type Driver interface {
	// Device returns the description of the device the driver runs on.
	Device() Device
	// Call issues an immediate, creating or scope-opening operation. For
	// Create operations the first primary handle is 0 and Call returns the
	// real handle of the new object.
	Call(ctx context.Context, c *Call) (identity.Handle, error)
	// Execute ends a scope, recording the real command sequence into it.
	// The calls' parameters are owned by the driver from then on.
	Execute(ctx context.Context, scope identity.Handle, cmds []*Call) error
	// Run executes a recorded scope immediately. Replay uses it to run a
	// scope truncated at the target event.
	Run(ctx context.Context, scope identity.Handle) error
	// Destroy releases the object named by the first primary handle.
	Destroy(ctx context.Context, c *Call) error
	// Reset destroys every object created through the driver.
	Reset(ctx context.Context) error
}
