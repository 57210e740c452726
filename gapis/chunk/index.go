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

package chunk

import "sort"

// DefaultCheckpointInterval is the default minimum number of events between
// two checkpoints.
const DefaultCheckpointInterval = 64

// Checkpoint is an event at which replay may resume. No recording scope is
// open at a checkpoint.
type Checkpoint struct {
	EventID uint64
	Offset  uint64
}

// Index maps event ids to byte offsets at checkpoints.
type Index struct {
	Checkpoints []Checkpoint
	// Events is the number of events in the indexed log.
	Events uint64
	// End is the size of the indexed chunk area.
	End uint64
}

// Nearest returns the last checkpoint at or before the event.
func (i *Index) Nearest(eventID uint64) Checkpoint {
	n := sort.Search(len(i.Checkpoints), func(k int) bool { return i.Checkpoints[k].EventID > eventID })
	if n == 0 {
		return Checkpoint{}
	}
	return i.Checkpoints[n-1]
}

// IsCheckpoint returns true if the event is a checkpoint.
func (i *Index) IsCheckpoint(eventID uint64) bool {
	n := sort.Search(len(i.Checkpoints), func(k int) bool { return i.Checkpoints[k].EventID >= eventID })
	return n < len(i.Checkpoints) && i.Checkpoints[n].EventID == eventID
}

// IndexBuilder accumulates checkpoints during a pass over a log.
type IndexBuilder struct {
	interval uint64
	idx      Index
}

// NewIndexBuilder returns a builder placing checkpoints at least interval
// events apart.
func NewIndexBuilder(interval uint64) *IndexBuilder {
	if interval == 0 {
		interval = DefaultCheckpointInterval
	}
	return &IndexBuilder{interval: interval}
}

// Offer proposes the cursor, positioned before a chunk, as a checkpoint.
// It is accepted only when no scope is open and the interval has elapsed.
func (b *IndexBuilder) Offer(c Cursor, openScopes int) {
	if openScopes != 0 {
		return
	}
	if n := len(b.idx.Checkpoints); n > 0 && c.EventID-b.idx.Checkpoints[n-1].EventID < b.interval {
		return
	}
	b.idx.Checkpoints = append(b.idx.Checkpoints, Checkpoint{EventID: c.EventID, Offset: c.Offset})
}

// Build returns the index for a log whose end is at the cursor.
func (b *IndexBuilder) Build(end Cursor) *Index {
	out := b.idx
	if len(out.Checkpoints) == 0 || out.Checkpoints[0].EventID != 0 {
		out.Checkpoints = append([]Checkpoint{{}}, out.Checkpoints...)
	}
	out.Events, out.End = end.EventID, end.Offset
	return &out
}
