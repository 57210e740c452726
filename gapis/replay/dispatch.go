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
	"sort"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/transform2"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/memory"
	"github.com/google/gfxreplay/gapis/patch"
)

// pendingScope is a recording scope opened on the driver whose commands are
// still being collected.
type pendingScope struct {
	id     identity.ID
	begin  api.CmdID
	handle identity.Handle
	calls  []*api.Call
}

// dispatcher is the end of the replay transform chain: it patches each
// command and issues it to the driver, keeping the identity table in step.
type dispatcher struct {
	api     *api.API
	driver  api.Driver
	table   *identity.Table
	patcher *patch.Patcher
	metrics *instruments
	scopes  map[identity.ID]*pendingScope
	// truncated is set once a scope has been run before its end chunk.
	truncated bool
	// dispatched counts the chunks issued since the last reset.
	dispatched uint64
}

var _ transform2.Writer = (*dispatcher)(nil)

func newDispatcher(a *api.API, d api.Driver, t *identity.Table, m *instruments) *dispatcher {
	return &dispatcher{
		api:     a,
		driver:  d,
		table:   t,
		patcher: patch.NewPatcher(a.Schema(), memory.HostLayout),
		metrics: m,
		scopes:  map[identity.ID]*pendingScope{},
	}
}

func (d *dispatcher) reset() {
	d.scopes = map[identity.ID]*pendingScope{}
	d.truncated = false
	d.dispatched = 0
}

// open returns the identities of the scopes still recording, in the order
// they were opened.
func (d *dispatcher) open() []identity.ID {
	out := make([]identity.ID, 0, len(d.scopes))
	for id := range d.scopes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return d.scopes[out[i]].begin < d.scopes[out[j]].begin })
	return out
}

func (d *dispatcher) MutateAndWrite(ctx context.Context, id api.CmdID, cmd *api.Cmd) error {
	info, ok := d.api.Op(cmd.Opcode)
	if !ok {
		return &api.UnknownOpcodeError{Opcode: cmd.Opcode}
	}
	call, err := d.call(id, info, cmd)
	if err != nil {
		return err
	}
	if err := d.issue(ctx, id, call, cmd); err != nil {
		return err
	}
	if id.IsReal() {
		d.dispatched++
		d.metrics.chunks.Add(ctx, 1)
	}
	return nil
}

// call resolves the primary identities and patches the parameters of cmd.
func (d *dispatcher) call(id api.CmdID, info *api.OpInfo, cmd *api.Cmd) (*api.Call, error) {
	c := &api.Call{EventID: id, Info: info, Primary: make([]identity.Handle, len(cmd.Primary))}
	for i, p := range cmd.Primary {
		if i == 0 && info.Class == api.Create {
			continue
		}
		if p.IsNull() {
			continue
		}
		h, err := d.table.Resolve(p)
		if err != nil {
			return nil, err
		}
		c.Primary[i] = h
	}
	if cmd.Params != nil {
		p, err := d.patcher.Patch(cmd.Params, d.table)
		if err != nil {
			return nil, err
		}
		c.Params = p
	}
	return c, nil
}

func (d *dispatcher) issue(ctx context.Context, id api.CmdID, c *api.Call, cmd *api.Cmd) error {
	if c.Params != nil {
		d.metrics.patchBytes.Add(ctx, int64(len(c.Params.Data)))
	}
	switch c.Info.Class {
	case api.Create:
		obj := cmd.Primary[0]
		h, err := d.driver.Call(ctx, c)
		if err != nil {
			return err
		}
		if err := d.table.Declare(obj, c.Info.Kind); err != nil {
			return err
		}
		return d.table.Rebind(obj, h)

	case api.Destroy:
		obj := cmd.Primary[0]
		if err := d.driver.Destroy(ctx, c); err != nil {
			return err
		}
		delete(d.scopes, obj)
		d.table.Release(obj)
		return nil

	case api.ScopeBegin:
		if _, err := d.driver.Call(ctx, c); err != nil {
			return err
		}
		d.scopes[cmd.Primary[0]] = &pendingScope{id: cmd.Primary[0], begin: id, handle: c.Primary[0]}
		return nil

	case api.Scoped:
		s, ok := d.scopes[cmd.Primary[0]]
		if !ok {
			return errors.Wrapf(ErrScope, "%v on %v", c.Info.Name, cmd.Primary[0])
		}
		if c.Params != nil {
			// The patched image aliases the arena until the scope ends.
			c.Params = c.Params.Clone()
		}
		s.calls = append(s.calls, c)
		return nil

	case api.ScopeEnd:
		s, ok := d.scopes[cmd.Primary[0]]
		if !ok {
			return errors.Wrapf(ErrScope, "%v on %v", c.Info.Name, cmd.Primary[0])
		}
		delete(d.scopes, s.id)
		if err := d.driver.Execute(ctx, s.handle, s.calls); err != nil {
			return err
		}
		if id.IsReal() {
			return nil
		}
		// A scope ended by replay rather than by the log is run now.
		log.D(ctx, "Running %v truncated after %d commands", s.id, len(s.calls))
		d.truncated = true
		return d.driver.Run(ctx, s.handle)

	default:
		_, err := d.driver.Call(ctx, c)
		return err
	}
}
