// Copyright (C) 2017 Google Inc.
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
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/google/gfxreplay/core/data/id"
	"github.com/google/gfxreplay/core/fault"
)

// ErrUnknownPool is returned when looking up a pool that does not exist.
const ErrUnknownPool = fault.Const("Unknown memory pool")

// Range is a span of addresses in a Pool.
type Range struct {
	Base uint64
	Size uint64
}

// End returns the address one past the last byte of the range.
func (r Range) End() uint64 { return r.Base + r.Size }

func (r Range) String() string { return fmt.Sprintf("[0x%x-0x%x]", r.Base, r.End()) }

type poolWrite struct {
	dst  uint64
	data []byte
}

func (w poolWrite) end() uint64 { return w.dst + uint64(len(w.data)) }

// Pool represents an unbounded and isolated memory space. Pool can be used
// to represent a device memory allocation or the contents of a buffer.
//
// Writes are stored as a sorted list of non-overlapping records. Bytes that
// have never been written read as zero.
type Pool struct {
	writes  []poolWrite
	OnWrite func(rng Range)
}

// Write copies src to the address dst. src is not retained.
func (m *Pool) Write(dst uint64, src []byte) {
	if len(src) == 0 {
		return
	}
	w := poolWrite{dst: dst, data: append([]byte(nil), src...)}
	end := w.end()
	out := make([]poolWrite, 0, len(m.writes)+2)
	inserted := false
	for _, o := range m.writes {
		if o.end() <= dst || o.dst >= end {
			if !inserted && o.dst >= end {
				out = append(out, w)
				inserted = true
			}
			out = append(out, o)
			continue
		}
		if o.dst < dst {
			out = append(out, poolWrite{dst: o.dst, data: o.data[:dst-o.dst]})
		}
		if !inserted {
			out = append(out, w)
			inserted = true
		}
		if o.end() > end {
			out = append(out, poolWrite{dst: end, data: o.data[end-o.dst:]})
		}
	}
	if !inserted {
		out = append(out, w)
	}
	m.writes = out
	if m.OnWrite != nil {
		m.OnWrite(Range{Base: dst, Size: uint64(len(src))})
	}
}

// Fill writes the 32 bit little-endian pattern v repeatedly over rng. A
// trailing partial word receives the low bytes of the pattern.
func (m *Pool) Fill(rng Range, v uint32) {
	buf := make([]byte, rng.Size)
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], v)
	for i := range buf {
		buf[i] = word[i%4]
	}
	m.Write(rng.Base, buf)
}

// Read returns a copy of the bytes in rng.
func (m *Pool) Read(rng Range) []byte {
	out := make([]byte, rng.Size)
	end := rng.End()
	for _, w := range m.writes {
		if w.end() <= rng.Base || w.dst >= end {
			continue
		}
		from, to := max(w.dst, rng.Base), min(w.end(), end)
		copy(out[from-rng.Base:to-rng.Base], w.data[from-w.dst:to-w.dst])
	}
	return out
}

// Copy copies rng of src into this pool at dst.
func (m *Pool) Copy(dst uint64, src *Pool, rng Range) {
	m.Write(dst, src.Read(rng))
}

// Written returns the ranges that have been written, in address order.
func (m *Pool) Written() []Range {
	out := make([]Range, len(m.writes))
	for i, w := range m.writes {
		out[i] = Range{Base: w.dst, Size: uint64(len(w.data))}
	}
	return out
}

// Clone returns an independent copy of the pool.
func (m *Pool) Clone() *Pool {
	out := &Pool{writes: make([]poolWrite, len(m.writes))}
	for i, w := range m.writes {
		out.writes[i] = poolWrite{dst: w.dst, data: append([]byte(nil), w.data...)}
	}
	return out
}

// ResourceID returns an identifier of the pool contents within rng.
func (m *Pool) ResourceID(rng Range) id.ID {
	return id.OfBytes(m.Read(rng))
}

// String returns the full history of writes performed to this pool.
func (m *Pool) String() string {
	l := make([]string, len(m.writes)+1)
	l[0] = fmt.Sprintf("Pool(%p):", m)
	for i, w := range m.writes {
		l[i+1] = fmt.Sprintf("(%d) %v <- %d bytes", i, Range{w.dst, uint64(len(w.data))}, len(w.data))
	}
	return strings.Join(l, "\n")
}

// PoolID is an identifier of a Pool.
type PoolID uint32

// Pools contains a collection of Pools identified by PoolIDs.
type Pools struct {
	pools      map[PoolID]*Pool
	nextPoolID PoolID
	OnCreate   func(PoolID, *Pool)
}

// NewPools creates and returns a new Pools instance.
func NewPools() Pools {
	return Pools{pools: map[PoolID]*Pool{}, nextPoolID: 1}
}

// NextPoolID returns the next free pool ID (but does not assign it).
// All existing pools in the set have pool ID which is less then this value.
func (m *Pools) NextPoolID() PoolID {
	return m.nextPoolID
}

// New creates and returns a new Pool and its id.
func (m *Pools) New() (id PoolID, p *Pool) {
	id, p = m.nextPoolID, &Pool{}
	m.pools[id] = p
	m.nextPoolID++
	if m.OnCreate != nil {
		m.OnCreate(id, p)
	}
	return id, p
}

// Get returns the Pool with the given id.
func (m *Pools) Get(id PoolID) (*Pool, error) {
	if p, ok := m.pools[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownPool, id)
}

// MustGet returns the Pool with the given id, or panics if it's not found.
func (m *Pools) MustGet(id PoolID) *Pool {
	p, err := m.Get(id)
	if err != nil {
		panic(err)
	}
	return p
}

// Delete removes the Pool with the given id.
func (m *Pools) Delete(id PoolID) { delete(m.pools, id) }

// Count returns the number of Pools.
func (m *Pools) Count() int {
	return len(m.pools)
}

// Clone returns a deep copy of the pools.
func (m *Pools) Clone() Pools {
	x := Pools{pools: make(map[PoolID]*Pool, len(m.pools)), nextPoolID: m.nextPoolID}
	for k, v := range m.pools {
		x.pools[k] = v.Clone()
	}
	return x
}

// WriteTo writes a description of every pool, ordered by id.
func (m *Pools) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for i := PoolID(1); i < m.nextPoolID; i++ {
		p, ok := m.pools[i]
		if !ok {
			continue
		}
		c, err := fmt.Fprintf(w, "%d: %v\n", i, p)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (m *Pools) String() string {
	sb := &strings.Builder{}
	m.WriteTo(sb)
	return sb.String()
}
