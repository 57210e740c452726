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

package replay

import (
	"context"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
)

// SkipList is the explicit set of operations replay may drop when the
// replay device lacks a capability they require.
type SkipList struct {
	defaults bool
	names    map[string]bool
}

// NewSkipList returns a skip list holding the named operations and, if
// defaults is true, every operation marked Skippable by its api.
func NewSkipList(defaults bool, names ...string) *SkipList {
	l := &SkipList{defaults: defaults, names: map[string]bool{}}
	for _, n := range names {
		l.names[n] = true
	}
	return l
}

// Allows returns true if the operation may be skipped. Operations that
// create, destroy or delimit objects are never skippable, as dropping them
// would desynchronise identity rebinding.
func (l *SkipList) Allows(info *api.OpInfo) bool {
	switch info.Class {
	case api.Create, api.Destroy, api.ScopeBegin, api.ScopeEnd:
		return false
	}
	return l.names[info.Name] || (l.defaults && info.Skippable)
}

// capabilitySkip is a transform that drops allow-listed commands the device
// cannot run, and fails the pass on any other such command.
type capabilitySkip struct {
	api     *api.API
	device  api.Device
	skips   *SkipList
	metrics *instruments
	skipped []api.CmdID
}

func newCapabilitySkip(a *api.API, device api.Device, skips *SkipList, m *instruments) *capabilitySkip {
	return &capabilitySkip{api: a, device: device, skips: skips, metrics: m}
}

func (t *capabilitySkip) Name() string { return "capability_skip" }

func (t *capabilitySkip) BeginTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (t *capabilitySkip) EndTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	if len(t.skipped) > 0 {
		log.I(ctx, "Skipped %d commands unsupported on %v", len(t.skipped), t.device.Name)
	}
	return inputCommands, nil
}

func (t *capabilitySkip) ClearTransformResources(ctx context.Context) {}

func (t *capabilitySkip) TransformCommand(ctx context.Context, id api.CmdID, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	out := inputCommands[:0:0]
	for _, cmd := range inputCommands {
		info, ok := t.api.Op(cmd.Opcode)
		if !ok {
			out = append(out, cmd)
			continue
		}
		missing := t.device.Capabilities.Missing(info.Requires)
		if len(missing) == 0 {
			out = append(out, cmd)
			continue
		}
		if !t.skips.Allows(info) {
			return nil, &Error{
				Kind:    UnsupportedOnReplayDevice,
				EventID: uint64(id.Real()),
				Opcode:  cmd.Opcode,
				Cause:   errors.Wrapf(api.ErrUnsupported, "%v needs %v, missing on %v", info.Name, missing, t.device.Name),
			}
		}
		log.D(ctx, "Skipping %v at %v: %v missing on %v", info.Name, id, missing, t.device.Name)
		t.skipped = append(t.skipped, id)
		t.metrics.skipped.Add(ctx, 1)
	}
	return out, nil
}

// Names returns the names of the operations of a that the list allows.
func (l *SkipList) Names(a *api.API) []string {
	var out []string
	for _, op := range a.Ops() {
		if l.Allows(op) {
			out = append(out, op.Name)
		}
	}
	return out
}
