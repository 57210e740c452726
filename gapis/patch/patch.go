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

package patch

import (
	"github.com/pkg/errors"

	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/memory"
)

// Resolver maps logical identities to real handles.
// identity.Table implements Resolver.
type Resolver interface {
	Resolve(identity.ID) (identity.Handle, error)
}

// Patched is the patched image of a structure. The root structure is at
// offset 0 of Data.
type Patched struct {
	Type   StructType
	Data   []byte
	Layout *memory.MemoryLayout
	schema *Schema
}

// Clone returns a copy of p that does not alias the arena it was patched
// into.
func (p *Patched) Clone() *Patched {
	out := *p
	out.Data = append([]byte(nil), p.Data...)
	return &out
}

// Root returns a view of the root structure.
func (p *Patched) Root() View {
	return View{p: p, l: p.schema.layouts[p.Type]}
}

// Patcher patches structures into a reusable arena.
type Patcher struct {
	schema *Schema
	arena  *memory.Arena
}

// NewPatcher returns a patcher for structures of the schema.
func NewPatcher(schema *Schema, layout *memory.MemoryLayout) *Patcher {
	return &Patcher{schema: schema, arena: memory.NewArena(layout)}
}

// Patch deep-copies root and everything reachable from it into the arena,
// replacing identities with the handles returned by r. The returned image
// aliases the arena and is only valid until the next call to Patch; use
// Patched.Clone to keep it longer.
func (p *Patcher) Patch(root *Struct, r Resolver) (*Patched, error) {
	size, err := p.schema.ComputePatchSize(root)
	if err != nil {
		return nil, err
	}
	p.arena.Reset(size)
	w := writer{schema: p.schema, arena: p.arena, r: r}
	if _, err := w.chain(root, noOffset); err != nil {
		return nil, err
	}
	return &Patched{
		Type:   root.Type,
		Data:   p.arena.Bytes(),
		Layout: p.arena.Layout(),
		schema: p.schema,
	}, nil
}

// Patch patches root into a new arena of exactly ComputePatchSize bytes.
func (sc *Schema) Patch(root *Struct, r Resolver) (*Patched, error) {
	return NewPatcher(sc, memory.HostLayout).Patch(root, r)
}

const noOffset = ^uint64(0)

type writer struct {
	schema *Schema
	arena  *memory.Arena
	r      Resolver
}

// chain writes s and its next chain and returns the offset of s. If at is
// not noOffset the fixed part of s is written there instead of being
// allocated.
func (w *writer) chain(s *Struct, at uint64) (uint64, error) {
	first := uint64(0)
	prev := noOffset
	for n := s; n != nil; n = n.Next {
		l, ok := w.schema.layouts[n.Type]
		if !ok || n.opaque != nil {
			return 0, &UnsupportedError{Type: n.Type}
		}
		off := at
		if n != s || at == noOffset {
			var err error
			if off, err = w.arena.Alloc(l.size, allocAlign); err != nil {
				return 0, err
			}
		}
		if n == s {
			first = off
		} else {
			w.arena.PutPointer(prev+8, off)
		}
		if err := w.fields(l, n, off); err != nil {
			return 0, err
		}
		prev = off
	}
	return first, nil
}

func (w *writer) handle(id identity.ID) (uint64, error) {
	if id.IsNull() {
		return 0, nil
	}
	h, err := w.r.Resolve(id)
	if err != nil {
		return 0, err
	}
	return uint64(h), nil
}

func (w *writer) fields(l *Layout, s *Struct, off uint64) error {
	a := w.arena
	a.PutUint(off, 4, uint64(l.Type))
	for i, f := range l.Fields {
		v := s.Values[i]
		at := off + f.offset
		switch f.Kind {
		case Scalar:
			a.PutUint(at, f.Size, v.U)
		case Handle:
			h, err := w.handle(v.ID)
			if err != nil {
				return errors.Wrapf(err, "%v.%v", l.Name, f.Name)
			}
			a.PutUint(at, 8, h)
		case Address:
			h, err := w.handle(v.ID)
			if err != nil {
				return errors.Wrapf(err, "%v.%v", l.Name, f.Name)
			}
			a.PutUint(at, 8, h)
			a.PutUint(at+8, 8, v.Offset)
		case HandleArray:
			if err := w.array(off, f, len(v.IDs), 8, func(base uint64) error {
				for j, id := range v.IDs {
					h, err := w.handle(id)
					if err != nil {
						return errors.Wrapf(err, "%v.%v[%d]", l.Name, f.Name, j)
					}
					a.PutUint(base+uint64(j)*8, 8, h)
				}
				return nil
			}); err != nil {
				return err
			}
		case ScalarArray:
			if err := w.array(off, f, len(v.Us), f.Size, func(base uint64) error {
				for j, u := range v.Us {
					a.PutUint(base+uint64(j)*f.Size, f.Size, u)
				}
				return nil
			}); err != nil {
				return err
			}
		case Bytes:
			if err := w.array(off, f, len(v.Bytes), 1, func(base uint64) error {
				copy(a.Slice(base, uint64(len(v.Bytes))), v.Bytes)
				return nil
			}); err != nil {
				return err
			}
		case StructArray:
			el := w.schema.layouts[f.Elem]
			if err := w.array(off, f, len(v.Structs), el.size, func(base uint64) error {
				for j, e := range v.Structs {
					if _, err := w.chain(e, base+uint64(j)*el.size); err != nil {
						return err
					}
				}
				return nil
			}); err != nil {
				return err
			}
		case StructPtr:
			if v.Ptr != nil {
				p, err := w.chain(v.Ptr, noOffset)
				if err != nil {
					return err
				}
				a.PutPointer(at, p)
			}
		}
	}
	return nil
}

// array writes the count of a counted array field, allocates its elements
// and calls fill with their offset.
func (w *writer) array(off uint64, f Field, count int, elemSize uint64, fill func(base uint64) error) error {
	w.arena.PutUint(off+f.offset, 4, uint64(count))
	if count == 0 {
		return nil
	}
	base, err := w.arena.Alloc(allocSize(uint64(count)*elemSize), allocAlign)
	if err != nil {
		return err
	}
	w.arena.PutPointer(off+f.ptrOffset, base)
	return fill(base)
}
