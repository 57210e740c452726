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
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

// ScopeUsage is the resource usage of one recording scope, or of one frame.
type ScopeUsage struct {
	// Scope is the object recording the scope, or the null identity for a
	// frame.
	Scope identity.ID
	Begin uint64
	End   uint64
	Usage []reference.Usage
}

// Structure is what a structured pass learns about a log.
type Structure struct {
	// Events is the number of chunks in the log.
	Events uint64
	Index  *chunk.Index
	Scopes []ScopeUsage
	Frames []ScopeUsage
	// Objects counts the objects created by the log, by kind.
	Objects map[identity.Kind]int
	// InitialState lists the identities with contents that the log writes.
	InitialState []identity.ID
	Requirements []api.Requirement
	// Unknown lists the events holding chunks of the reserved unknown range.
	Unknown []uint64

	accesses []reference.Usage
}

// ResourceUsage returns the usage of every identity touched by the events
// in [from, to], one entry per identity ordered by first event.
func (s *Structure) ResourceUsage(from, to uint64) []reference.Usage {
	t := reference.NewTracker()
	i := sort.Search(len(s.accesses), func(i int) bool { return s.accesses[i].EventID >= from })
	for ; i < len(s.accesses) && s.accesses[i].EventID <= to; i++ {
		u := s.accesses[i]
		t.Observe(u.ID, u.Access, u.EventID)
	}
	return t.Drain()
}

// Requires returns the requirement for capability c, if the log has one.
func (s *Structure) Requires(c api.Capability) (api.Requirement, bool) {
	for _, r := range s.Requirements {
		if r.Capability == c {
			return r, true
		}
	}
	return api.Requirement{}, false
}

type recordingScope struct {
	begin   uint64
	tracker *reference.Tracker
}

// structurer walks a log once, learning its topology without a driver.
type structurer struct {
	api       *api.API
	skippable func(*api.OpInfo) bool
	table     *identity.Table
	kinds     map[identity.ID]identity.Kind
	index     *chunk.IndexBuilder
	open      map[identity.ID]*recordingScope
	frame     *reference.Tracker
	frameFrom uint64
	reqs      map[api.Capability]*api.Requirement
	out       *Structure
}

func structure(ctx context.Context, a *api.API, l *chunk.Log, interval uint64, skippable func(*api.OpInfo) bool) (*Structure, error) {
	s := &structurer{
		api:       a,
		skippable: skippable,
		table:     identity.NewTable(identity.SessionPrefix(l.Session())),
		kinds:     map[identity.ID]identity.Kind{},
		index:     chunk.NewIndexBuilder(interval),
		open:      map[identity.ID]*recordingScope{},
		frame:     reference.NewTracker(),
		reqs:      map[api.Capability]*api.Requirement{},
		out:       &Structure{Objects: map[identity.Kind]int{}},
	}
	declared, counted := l.Declared()
	c := chunk.Cursor{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.index.Offer(c, len(s.open))
		at := c
		ch, err := l.ReadNext(&c)
		if errors.Is(err, chunk.ErrEndOfLog) {
			if counted && c.EventID != declared {
				err = &chunk.CorruptError{
					EventID: c.EventID,
					Offset:  c.Offset,
					Reason:  fmt.Sprintf("log ends after %d of %d declared chunks", c.EventID, declared),
				}
				return nil, failure(err, chunk.Chunk{EventID: c.EventID, Offset: c.Offset})
			}
			break
		}
		if err != nil {
			return nil, failure(err, chunk.Chunk{EventID: at.EventID, Offset: at.Offset})
		}
		if counted && ch.EventID >= declared {
			err := &chunk.CorruptError{
				EventID: ch.EventID,
				Offset:  ch.Offset,
				Reason:  fmt.Sprintf("chunk beyond the %d declared", declared),
			}
			return nil, failure(err, ch)
		}
		if err := s.chunk(ctx, ch); err != nil {
			return nil, failure(err, ch)
		}
	}
	return s.finish(c), nil
}

func (s *structurer) chunk(ctx context.Context, ch chunk.Chunk) error {
	if ch.Opcode.IsReservedUnknown() {
		log.D(ctx, "Event %d: %v chunk of %d bytes", ch.EventID, ch.Opcode, len(ch.Payload))
		s.out.Unknown = append(s.out.Unknown, ch.EventID)
		return nil
	}
	cmd, info, err := s.api.Decode(ch)
	if err != nil {
		return err
	}
	event := ch.EventID
	if err := s.validate(cmd, info, event); err != nil {
		return err
	}
	for _, c := range info.Requires {
		if r, ok := s.reqs[c]; ok {
			r.Skippable = r.Skippable && s.skippable(info)
		} else {
			s.reqs[c] = &api.Requirement{Capability: c, FirstEvent: api.CmdID(event), Skippable: s.skippable(info)}
		}
	}

	var scope *recordingScope
	switch {
	case info.OpensScope():
		id := cmd.Primary[0]
		if kind := s.kinds[id]; !kind.Has(identity.RecordsCommands) {
			return errors.Wrapf(ErrScope, "%v opened on %v %v", info.Name, kind, id)
		}
		if _, ok := s.open[id]; ok {
			return errors.Wrapf(ErrScope, "%v: %v is already recording", info.Name, id)
		}
		scope = &recordingScope{begin: event, tracker: reference.NewTracker()}
		s.open[id] = scope
	case info.InScope():
		if scope = s.open[cmd.Primary[0]]; scope == nil {
			return errors.Wrapf(ErrScope, "%v on %v", info.Name, cmd.Primary[0])
		}
	}

	s.api.Accesses(cmd, func(id identity.ID, a reference.Access) {
		s.out.accesses = append(s.out.accesses, reference.Usage{ID: id, EventID: event, Access: a})
		s.frame.Observe(id, a, event)
		if scope != nil {
			scope.tracker.Observe(id, a, event)
		}
	})

	switch info.Class {
	case api.Create:
		s.out.Objects[info.Kind]++
	case api.Destroy:
		id := cmd.Primary[0]
		if _, ok := s.open[id]; ok {
			s.closeScope(id, event)
		}
		s.table.Release(id)
	case api.ScopeEnd:
		s.closeScope(cmd.Primary[0], event)
	case api.FrameBoundary:
		s.closeFrame(event)
	}
	return nil
}

// validate checks that every identity the command uses was introduced by an
// earlier chunk, and introduces the identity a creation allocates.
func (s *structurer) validate(cmd *api.Cmd, info *api.OpInfo, event uint64) error {
	if info.Class != api.Immediate && info.Class != api.FrameBoundary && len(cmd.Primary) == 0 {
		return errors.Wrapf(api.ErrBadCmd, "%v has no primary identity", info.Name)
	}
	used := cmd.Primary
	if info.Class == api.Create {
		used = used[1:]
	}
	for _, id := range used {
		if err := s.known(id, info); err != nil {
			return err
		}
	}
	if cmd.Params != nil {
		for _, id := range s.api.Schema().Identities(cmd.Params) {
			if err := s.known(id, info); err != nil {
				return err
			}
		}
	}
	if info.Class == api.Create {
		id := cmd.Primary[0]
		if id.IsNull() {
			return errors.Wrapf(api.ErrBadCmd, "%v creates the null identity", info.Name)
		}
		if err := s.table.Declare(id, info.Kind); err != nil {
			return err
		}
		// The scratch table has no real objects: bind each identity to its
		// creating event.
		if err := s.table.Rebind(id, identity.Handle(event+1)); err != nil {
			return err
		}
		s.kinds[id] = info.Kind
	}
	return nil
}

func (s *structurer) known(id identity.ID, info *api.OpInfo) error {
	if id.IsNull() {
		return nil
	}
	if _, err := s.table.Resolve(id); err != nil {
		return errors.Wrapf(ErrForwardRef, "%v uses %v", info.Name, id)
	}
	return nil
}

func (s *structurer) closeScope(id identity.ID, event uint64) {
	scope := s.open[id]
	delete(s.open, id)
	s.out.Scopes = append(s.out.Scopes, ScopeUsage{Scope: id, Begin: scope.begin, End: event, Usage: scope.tracker.Drain()})
}

func (s *structurer) closeFrame(event uint64) {
	s.out.Frames = append(s.out.Frames, ScopeUsage{Begin: s.frameFrom, End: event, Usage: s.frame.Drain()})
	s.frameFrom = event + 1
}

func (s *structurer) finish(end chunk.Cursor) *Structure {
	out := s.out
	out.Events = end.EventID
	out.Index = s.index.Build(end)

	// Scopes still recording when the log ends.
	open := make([]identity.ID, 0, len(s.open))
	for id := range s.open {
		open = append(open, id)
	}
	sort.Slice(open, func(i, j int) bool { return s.open[open[i]].begin < s.open[open[j]].begin })
	for _, id := range open {
		s.closeScope(id, end.EventID-1)
	}
	sort.SliceStable(out.Scopes, func(i, j int) bool { return out.Scopes[i].Begin < out.Scopes[j].Begin })
	if s.frame.Pending() > 0 {
		s.closeFrame(end.EventID - 1)
	}

	for _, id := range s.frame.InitialStateSet() {
		if s.kinds[id].Has(identity.HasContents) {
			out.InitialState = append(out.InitialState, id)
		}
	}

	for _, r := range s.reqs {
		out.Requirements = append(out.Requirements, *r)
	}
	sort.Slice(out.Requirements, func(i, j int) bool {
		a, b := out.Requirements[i], out.Requirements[j]
		if a.FirstEvent != b.FirstEvent {
			return a.FirstEvent < b.FirstEvent
		}
		return a.Capability < b.Capability
	})
	return out
}
