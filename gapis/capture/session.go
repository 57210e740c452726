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

// Package capture records the operations of one capture session into a
// chunk log.
package capture

import (
	"context"

	"github.com/google/uuid"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

// Session is one capture. It owns the identity table giving every wrapped
// object its logical identity, the log the operations are recorded into and
// the tracker of what those operations touch. A Session is safe for
// concurrent use: each goroutine records through its own chunk writer.
type Session struct {
	id      uuid.UUID
	api     *api.API
	table   *identity.Table
	log     *chunk.Log
	tracker *reference.Tracker
}

// New starts a session recording operations of a with a new session id.
func New(a *api.API, order endian.ByteOrder) *Session {
	return NewWithID(uuid.New(), a, order)
}

// NewWithID starts a session with the given session id.
func NewWithID(id uuid.UUID, a *api.API, order endian.ByteOrder) *Session {
	return &Session{
		id:      id,
		api:     a,
		table:   identity.NewTable(identity.SessionPrefix(id)),
		log:     chunk.New(id, order),
		tracker: reference.NewTracker(),
	}
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// API returns the api recorded by the session.
func (s *Session) API() *api.API { return s.api }

// Log returns the log the session records into.
func (s *Session) Log() *chunk.Log { return s.log }

// Table returns the identity table of the session.
func (s *Session) Table() *identity.Table { return s.table }

// NotifyCreate gives a new logical identity to a real object. It fails with
// identity.ErrAlreadyWrapped if the object already has one: callers that
// may see an object twice use Lookup first.
func (s *Session) NotifyCreate(real identity.Handle, kind identity.Kind) (identity.ID, error) {
	return s.table.Assign(real, kind)
}

// Lookup returns the identity of a wrapped real object.
func (s *Session) Lookup(real identity.Handle) (identity.ID, bool) {
	return s.table.Lookup(real)
}

// NotifyDestroy forgets a destroyed object. Destroying twice is a no-op.
func (s *Session) NotifyDestroy(id identity.ID) {
	s.table.Release(id)
}

// RecordOperation records one chunk whose payload is written by write. If
// write fails, or leaves an error on the encoder, nothing is committed.
func (s *Session) RecordOperation(op chunk.Opcode, write func(*chunk.Encoder) error) (api.CmdID, error) {
	w := s.log.BeginChunk(op)
	if err := write(w.Encoder); err != nil {
		w.Discard()
		return api.CmdNoID, err
	}
	id, err := w.End()
	if err != nil {
		return api.CmdNoID, err
	}
	return api.CmdID(id), nil
}

// Record encodes cmd as a new chunk and observes every identity it touches.
func (s *Session) Record(ctx context.Context, cmd *api.Cmd) (api.CmdID, error) {
	id, err := s.api.Write(s.log, cmd)
	if err != nil {
		log.D(ctx, "Dropped %v: %v", s.api.OpName(cmd.Opcode), err)
		return api.CmdNoID, err
	}
	s.api.Accesses(cmd, func(obj identity.ID, a reference.Access) {
		s.tracker.Observe(obj, a, uint64(id))
	})
	return id, nil
}

// EndScope returns the usage recorded since the last call, for a command
// buffer close or a frame boundary.
func (s *Session) EndScope() []reference.Usage {
	return s.tracker.Drain()
}

// NeedsInitialState returns true if the session has written to id, so its
// contents must be snapshot for replay.
func (s *Session) NeedsInitialState(id identity.ID) bool {
	return s.tracker.NeedsInitialState(id)
}

// InitialState returns every identity the session has written to.
func (s *Session) InitialState() []identity.ID {
	return s.tracker.InitialStateSet()
}

// Bytes returns the serialized log.
func (s *Session) Bytes() []byte {
	return s.log.Bytes()
}
