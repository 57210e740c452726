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

package memory

import (
	eb "encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/fault"
)

const ErrScratchOverflow = fault.Const("Scratch arena overflow")

// Arena is a single contiguous scratch buffer with an explicit capacity.
// Allocations are bump allocated and never freed individually; Reset
// recycles the whole arena, keeping its backing memory.
type Arena struct {
	layout *MemoryLayout
	order  eb.ByteOrder
	buf    []byte
	used   uint64
}

// NewArena returns an empty arena for the layout.
func NewArena(layout *MemoryLayout) *Arena {
	order := eb.ByteOrder(eb.LittleEndian)
	if layout.Endian == endian.Big {
		order = eb.BigEndian
	}
	return &Arena{layout: layout, order: order}
}

// Layout returns the memory layout of the arena.
func (a *Arena) Layout() *MemoryLayout { return a.layout }

// Reset empties the arena and sets its capacity. The backing memory is
// reused when it is large enough, and zeroed.
func (a *Arena) Reset(capacity uint64) {
	if uint64(cap(a.buf)) < capacity {
		a.buf = make([]byte, capacity)
	} else {
		a.buf = a.buf[:capacity]
		for i := range a.buf {
			a.buf[i] = 0
		}
	}
	a.used = 0
}

// Capacity returns the capacity set by the last Reset.
func (a *Arena) Capacity() uint64 { return uint64(len(a.buf)) }

// Used returns the number of bytes allocated, including alignment padding.
func (a *Arena) Used() uint64 { return a.used }

// Alloc reserves size bytes aligned to align and returns their offset.
func (a *Arena) Alloc(size, align uint64) (uint64, error) {
	start := AlignUp(a.used, align)
	if size > math.MaxUint64-start || start+size > uint64(len(a.buf)) {
		return 0, errors.Wrapf(ErrScratchOverflow, "allocating %d bytes at %d of %d", size, start, len(a.buf))
	}
	a.used = start + size
	return start, nil
}

// Bytes returns the allocated region of the arena. It aliases the arena and
// is only valid until the next Reset.
func (a *Arena) Bytes() []byte { return a.buf[:a.used] }

// Slice returns size bytes at offset.
func (a *Arena) Slice(offset, size uint64) []byte { return a.buf[offset : offset+size] }

// PutUint writes the low size bytes of v at offset.
func (a *Arena) PutUint(offset, size, v uint64) {
	b := a.buf[offset : offset+size]
	switch size {
	case 1:
		b[0] = uint8(v)
	case 2:
		a.order.PutUint16(b, uint16(v))
	case 4:
		a.order.PutUint32(b, uint32(v))
	case 8:
		a.order.PutUint64(b, v)
	default:
		panic(errors.Errorf("unsupported integer size %d", size))
	}
}

// PutPointer writes a pointer-sized value at offset.
func (a *Arena) PutPointer(offset, v uint64) {
	a.PutUint(offset, a.layout.Pointer.Size, v)
}
