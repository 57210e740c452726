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

// Package reference accumulates which identities a sequence of recorded
// operations touches, and how.
package reference

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/gfxreplay/gapis/identity"
)

// Access is the way an operation touches an object. Accesses are ordered by
// precedence; merging two accesses keeps the greater.
type Access uint8

const (
	// None is the zero access. It is never recorded.
	None Access = iota
	// Barrier orders other accesses without touching contents.
	Barrier
	// Read reads contents.
	Read
	// PartialWrite writes some of the contents.
	PartialWrite
	// Write writes all of the contents.
	Write
)

func (a Access) String() string {
	switch a {
	case None:
		return "None"
	case Barrier:
		return "Barrier"
	case Read:
		return "Read"
	case PartialWrite:
		return "PartialWrite"
	case Write:
		return "Write"
	default:
		return fmt.Sprintf("Access(%d)", uint8(a))
	}
}

// Merge returns the access with the higher precedence.
func (a Access) Merge(b Access) Access {
	if b > a {
		return b
	}
	return a
}

// Writes returns true for accesses that modify contents.
func (a Access) Writes() bool { return a == Write || a == PartialWrite }

// Usage records how a scope touched one identity.
type Usage struct {
	ID identity.ID
	// EventID is the first event in the scope that touched the identity.
	EventID uint64
	Access  Access
}

func (u Usage) String() string { return fmt.Sprintf("%v@%d:%v", u.ID, u.EventID, u.Access) }

// FrameRef classifies how a whole session used an identity.
type FrameRef uint8

const (
	// Unused identities were never observed.
	Unused FrameRef = iota
	// ReadOnly identities were only read.
	ReadOnly
	// ReadBeforeWrite identities were read, then later written.
	ReadBeforeWrite
	// WriteFirst identities were written before any read.
	WriteFirst
	// BarrierOnly identities only took part in barriers.
	BarrierOnly
)

func (f FrameRef) String() string {
	return [...]string{"Unused", "ReadOnly", "ReadBeforeWrite", "WriteFirst", "BarrierOnly"}[f]
}

// NeedsInitialState returns true if replaying the session must restore the
// identity's contents before the first event.
func (f FrameRef) NeedsInitialState() bool { return f == ReadBeforeWrite || f == WriteFirst }

func (f FrameRef) observe(a Access) FrameRef {
	switch {
	case a == None:
		return f
	case f == Unused || f == BarrierOnly:
		switch {
		case a == Barrier:
			return BarrierOnly
		case a == Read:
			return ReadOnly
		default:
			return WriteFirst
		}
	case f == ReadOnly && a.Writes():
		return ReadBeforeWrite
	default:
		return f
	}
}

// Tracker accumulates usages for the current scope and frame references for
// the whole session. It is safe for concurrent use.
type Tracker struct {
	mutex   sync.Mutex
	scope   map[identity.ID]*Usage
	session map[identity.ID]FrameRef
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		scope:   map[identity.ID]*Usage{},
		session: map[identity.ID]FrameRef{},
	}
}

// Observe records that the event touched id with the access.
func (t *Tracker) Observe(id identity.ID, access Access, eventID uint64) {
	if access == None || id.IsNull() {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if u, ok := t.scope[id]; ok {
		u.Access = u.Access.Merge(access)
	} else {
		t.scope[id] = &Usage{ID: id, EventID: eventID, Access: access}
	}
	t.session[id] = t.session[id].observe(access)
}

// Pending returns the number of identities observed in the current scope.
func (t *Tracker) Pending() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.scope)
}

// Drain returns the usages of the current scope, ordered by event then
// identity, and starts a new scope.
func (t *Tracker) Drain() []Usage {
	t.mutex.Lock()
	scope := t.scope
	t.scope = map[identity.ID]*Usage{}
	t.mutex.Unlock()

	out := make([]Usage, 0, len(scope))
	for _, u := range scope {
		out = append(out, *u)
	}
	SortUsages(out)
	return out
}

// FrameRef returns how the session has used id so far.
func (t *Tracker) FrameRef(id identity.ID) FrameRef {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.session[id]
}

// NeedsInitialState returns true if any write to id has been observed.
func (t *Tracker) NeedsInitialState(id identity.ID) bool {
	return t.FrameRef(id).NeedsInitialState()
}

// InitialStateSet returns every identity that needs initial state, ordered.
func (t *Tracker) InitialStateSet() []identity.ID {
	t.mutex.Lock()
	out := []identity.ID{}
	for id, f := range t.session {
		if f.NeedsInitialState() {
			out = append(out, id)
		}
	}
	t.mutex.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortUsages orders usages by event then identity.
func SortUsages(u []Usage) {
	sort.Slice(u, func(i, j int) bool {
		if u[i].EventID != u[j].EventID {
			return u[i].EventID < u[j].EventID
		}
		return u[i].ID.Less(u[j].ID)
	})
}
