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
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/memory"
)

// View reads one structure of a patched image.
// Accessors panic if the named field does not exist.
type View struct {
	p   *Patched
	off uint64
	l   *Layout
}

// Valid returns true if the view refers to a structure.
func (v View) Valid() bool { return v.p != nil && v.l != nil }

// Offset returns the offset of the structure in the patched image.
func (v View) Offset() uint64 { return v.off }

// Type returns the structure type.
func (v View) Type() StructType { return v.l.Type }

// Name returns the structure type's name.
func (v View) Name() string { return v.l.Name }

func (v View) decoder(at uint64) *memory.Decoder {
	return memory.NewDecoder(v.p.Data, at, v.p.Layout)
}

func (v View) uint(at, size uint64) uint64 {
	d := v.decoder(at)
	switch size {
	case 1:
		return uint64(d.U8())
	case 2:
		return uint64(d.U16())
	case 4:
		return uint64(d.U32())
	default:
		return d.U64()
	}
}

func (v View) ptr(at uint64) uint64 { return v.decoder(at).Pointer() }

func (v View) field(name string) *Field { return v.l.mustField(name) }

// U returns a scalar field.
func (v View) U(name string) uint64 {
	f := v.field(name)
	return v.uint(v.off+f.offset, f.Size)
}

// Handle returns a patched handle field.
func (v View) Handle(name string) identity.Handle {
	return identity.Handle(v.uint(v.off+v.field(name).offset, 8))
}

// Address returns a patched address field.
func (v View) Address(name string) (identity.Handle, uint64) {
	at := v.off + v.field(name).offset
	return identity.Handle(v.uint(at, 8)), v.uint(at+8, 8)
}

func (v View) counted(f *Field) (count, base uint64) {
	count = v.uint(v.off+f.offset, 4)
	if count == 0 {
		return 0, 0
	}
	return count, v.ptr(v.off + f.ptrOffset)
}

// Handles returns a patched handle array field.
func (v View) Handles(name string) []identity.Handle {
	n, base := v.counted(v.field(name))
	out := make([]identity.Handle, n)
	d := v.decoder(base)
	for i := range out {
		out[i] = identity.Handle(d.U64())
	}
	return out
}

// Scalars returns a scalar array field.
func (v View) Scalars(name string) []uint64 {
	f := v.field(name)
	n, base := v.counted(f)
	out := make([]uint64, n)
	for i := range out {
		out[i] = v.uint(base+uint64(i)*f.Size, f.Size)
	}
	return out
}

// Bytes returns a byte array field. It aliases the patched image.
func (v View) Bytes(name string) []byte {
	n, base := v.counted(v.field(name))
	if n == 0 {
		return nil
	}
	return v.p.Data[base : base+n]
}

// Structs returns the elements of a structure array field.
func (v View) Structs(name string) []View {
	f := v.field(name)
	n, base := v.counted(f)
	el := v.p.schema.layouts[f.Elem]
	out := make([]View, n)
	for i := range out {
		out[i] = View{p: v.p, off: base + uint64(i)*el.size, l: el}
	}
	return out
}

// Ptr returns the structure pointed to by a structure pointer field.
func (v View) Ptr(name string) (View, bool) {
	f := v.field(name)
	return v.at(v.ptr(v.off + f.offset))
}

// Next returns the next structure in the chain.
func (v View) Next() (View, bool) {
	return v.at(v.ptr(v.off + 8))
}

// Find returns the first structure of type t in the chain starting at v.
func (v View) Find(t StructType) (View, bool) {
	for n, ok := v, v.Valid(); ok; n, ok = n.Next() {
		if n.Type() == t {
			return n, true
		}
	}
	return View{}, false
}

func (v View) at(off uint64) (View, bool) {
	if off == 0 {
		return View{}, false
	}
	t := StructType(v.uint(off, 4))
	l, ok := v.p.schema.layouts[t]
	if !ok {
		return View{}, false
	}
	return View{p: v.p, off: off, l: l}, true
}
