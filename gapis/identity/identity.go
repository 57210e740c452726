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

// Package identity maps logical object identities, which are stable across
// capture and replay, to the real handles allocated by a driver.
package identity

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/fault"
)

const (
	ErrUnknownIdentity   = fault.Const("Unknown identity")
	ErrAlreadyWrapped    = fault.Const("Real handle already has an identity")
	ErrDuplicateIdentity = fault.Const("Identity declared twice")
	ErrNullHandle        = fault.Const("Null handle")
)

// ID is a 128 bit logical identity. The high word names the capture
// session, the low word is assigned monotonically within it.
type ID struct {
	Hi, Lo uint64
}

// Null is the identity that names no object.
var Null ID

// IsNull returns true if id names no object.
func (id ID) IsNull() bool { return id == Null }

func (id ID) String() string {
	if id.IsNull() {
		return "<null>"
	}
	return fmt.Sprintf("%016x:%x", id.Hi, id.Lo)
}

// ParseID parses an identity formatted by String.
func ParseID(s string) (ID, error) {
	if s == "<null>" {
		return Null, nil
	}
	hi, lo, ok := strings.Cut(s, ":")
	if !ok {
		return Null, errors.Errorf("invalid identity %q", s)
	}
	var id ID
	var err error
	if id.Hi, err = strconv.ParseUint(hi, 16, 64); err != nil {
		return Null, errors.Wrapf(err, "invalid identity %q", s)
	}
	if id.Lo, err = strconv.ParseUint(lo, 16, 64); err != nil {
		return Null, errors.Wrapf(err, "invalid identity %q", s)
	}
	return id, nil
}

// Less orders identities by session then sequence.
func (id ID) Less(o ID) bool {
	if id.Hi != o.Hi {
		return id.Hi < o.Hi
	}
	return id.Lo < o.Lo
}

// SessionPrefix folds a session UUID into the high word of its identities.
func SessionPrefix(session uuid.UUID) uint64 {
	return binary.BigEndian.Uint64(session[:8]) ^ binary.BigEndian.Uint64(session[8:])
}

// Handle is a real, driver-allocated object handle. Zero is the null handle.
type Handle uint64

func (h Handle) String() string { return fmt.Sprintf("0x%x", uint64(h)) }

type record struct {
	kind  Kind
	real  Handle
	bound bool
}

// Table is a bidirectional map between logical identities and real handles.
// It is safe for concurrent use.
type Table struct {
	mutex   sync.RWMutex
	prefix  uint64
	next    uint64
	records map[ID]*record
	reverse map[Handle]ID
}

// NewTable returns an empty table that assigns identities under prefix.
func NewTable(prefix uint64) *Table {
	return &Table{
		prefix:  prefix,
		next:    1,
		records: map[ID]*record{},
		reverse: map[Handle]ID{},
	}
}

// Assign gives a new identity to the real handle. It fails with
// ErrAlreadyWrapped if the handle already has one.
func (t *Table) Assign(real Handle, kind Kind) (ID, error) {
	if real == 0 {
		return Null, ErrNullHandle
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if existing, ok := t.reverse[real]; ok {
		return existing, errors.Wrapf(ErrAlreadyWrapped, "%v is %v", real, existing)
	}
	id := ID{Hi: t.prefix, Lo: t.next}
	t.next++
	t.records[id] = &record{kind: kind, real: real, bound: true}
	t.reverse[real] = id
	return id, nil
}

// Declare introduces an identity read from a log, before any real object
// exists for it.
func (t *Table) Declare(id ID, kind Kind) error {
	if id.IsNull() {
		return errors.Wrap(ErrUnknownIdentity, "declaring the null identity")
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.records[id]; ok {
		return errors.Wrapf(ErrDuplicateIdentity, "%v", id)
	}
	t.records[id] = &record{kind: kind}
	if id.Hi == t.prefix && id.Lo >= t.next {
		t.next = id.Lo + 1
	}
	return nil
}

// Rebind binds a declared identity to a new real handle. It fails with
// ErrAlreadyWrapped if the handle is bound to another identity.
func (t *Table) Rebind(id ID, real Handle) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	r, ok := t.records[id]
	if !ok {
		return errors.Wrapf(ErrUnknownIdentity, "rebinding %v", id)
	}
	if other, ok := t.reverse[real]; ok && real != 0 && other != id {
		return errors.Wrapf(ErrAlreadyWrapped, "rebinding %v: %v is %v", id, real, other)
	}
	if r.bound {
		if cur, ok := t.reverse[r.real]; ok && cur == id {
			delete(t.reverse, r.real)
		}
	}
	r.real, r.bound = real, real != 0
	if r.bound {
		t.reverse[real] = id
	}
	return nil
}

// Resolve returns the real handle bound to id.
func (t *Table) Resolve(id ID) (Handle, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	r, ok := t.records[id]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownIdentity, "%v", id)
	}
	if !r.bound {
		return 0, errors.Wrapf(ErrUnknownIdentity, "%v is not bound", id)
	}
	return r.real, nil
}

// Lookup returns the identity of the real handle, if it has one.
func (t *Table) Lookup(real Handle) (ID, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	id, ok := t.reverse[real]
	return id, ok
}

// Kind returns the kind of object owning id.
func (t *Table) Kind(id ID) (Kind, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	r, ok := t.records[id]
	if !ok {
		return KindUnknown, false
	}
	return r.kind, true
}

// Contains returns true if id has a record, bound or not.
func (t *Table) Contains(id ID) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	_, ok := t.records[id]
	return ok
}

// Release removes the record for id. Releasing an unknown identity is a
// no-op.
func (t *Table) Release(id ID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	r, ok := t.records[id]
	if !ok {
		return
	}
	if r.bound {
		if cur, ok := t.reverse[r.real]; ok && cur == id {
			delete(t.reverse, r.real)
		}
	}
	delete(t.records, id)
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.records)
}

// Entry is a snapshot of one record.
type Entry struct {
	ID    ID
	Kind  Kind
	Real  Handle
	Bound bool
}

// Entries returns a snapshot of every record, ordered by identity.
func (t *Table) Entries() []Entry {
	t.mutex.RLock()
	out := make([]Entry, 0, len(t.records))
	for id, r := range t.records {
		out = append(out, Entry{ID: id, Kind: r.kind, Real: r.real, Bound: r.bound})
	}
	t.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

// Reset drops every record and restarts identity assignment.
func (t *Table) Reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.next = 1
	t.records = map[ID]*record{}
	t.reverse = map[Handle]ID{}
}
