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
	"bytes"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
)

// maxDepth bounds structure nesting when decoding.
const maxDepth = 32

// Value holds one field of a Struct. Only the member matching the field's
// kind is used.
type Value struct {
	U       uint64        // Scalar
	ID      identity.ID   // Handle, Address
	Offset  uint64        // Address
	IDs     []identity.ID // HandleArray
	Us      []uint64      // ScalarArray
	Bytes   []byte        // Bytes
	Structs []*Struct     // StructArray
	Ptr     *Struct       // StructPtr
}

// Struct is a structure in logical form: handles are identities.
type Struct struct {
	Type   StructType
	Values []Value
	Next   *Struct
	// opaque is the encoded body of a structure whose type was not in the
	// schema when it was decoded.
	opaque []byte
}

// Opaque returns true if the structure was decoded without a layout.
func (s *Struct) Opaque() bool { return s.opaque != nil }

// Chain appends next to the end of the structure's next chain and returns s.
func (s *Struct) Chain(next ...*Struct) *Struct {
	tail := s
	for tail.Next != nil {
		tail = tail.Next
	}
	for _, n := range next {
		tail.Next = n
		for tail.Next != nil {
			tail = tail.Next
		}
	}
	return s
}

// Find returns the first structure of type t in the chain starting at s.
func (s *Struct) Find(t StructType) *Struct {
	for n := s; n != nil; n = n.Next {
		if n.Type == t {
			return n
		}
	}
	return nil
}

// Get returns the named value of s, which must be of a known type.
func (sc *Schema) Get(s *Struct, name string) Value {
	l, ok := sc.layouts[s.Type]
	if !ok {
		return Value{}
	}
	i, ok := l.byName[name]
	if !ok || i >= len(s.Values) {
		return Value{}
	}
	return s.Values[i]
}

// New returns an empty structure of type t with the values set by name.
func (sc *Schema) New(t StructType, values map[string]Value) *Struct {
	l, ok := sc.layouts[t]
	if !ok {
		panic(errors.Errorf("unknown structure type %d", t))
	}
	s := &Struct{Type: t, Values: make([]Value, len(l.Fields))}
	for name, v := range values {
		s.Values[l.mustField(name).index(l)] = v
	}
	return s
}

func (f *Field) index(l *Layout) int { return l.byName[f.Name] }

// Encode writes s and its chain to e.
//
//	struct := type:u32 body:bytes next:(present:u8 struct)?
//
// The body is length-prefixed so readers without the type's layout can
// step over it.
func (sc *Schema) Encode(e *chunk.Encoder, s *Struct) {
	e.U32(uint32(s.Type))
	if s.opaque != nil {
		e.Bytes(s.opaque)
	} else if l, ok := sc.layouts[s.Type]; ok {
		buf := &bytes.Buffer{}
		body := e.Nested(buf)
		sc.encodeBody(body, l, s)
		if err := body.Error(); err != nil {
			e.SetError(err)
			return
		}
		e.Bytes(buf.Bytes())
	} else {
		e.SetError(&UnsupportedError{Type: s.Type})
		return
	}
	e.Present(s.Next != nil)
	if s.Next != nil {
		sc.Encode(e, s.Next)
	}
}

func (sc *Schema) encodeBody(e *chunk.Encoder, l *Layout, s *Struct) {
	if len(s.Values) != len(l.Fields) {
		e.SetError(errors.Wrapf(ErrFieldMismatch, "%v has %d fields, got %d values", l.Name, len(l.Fields), len(s.Values)))
		return
	}
	for i, f := range l.Fields {
		v := s.Values[i]
		switch f.Kind {
		case Scalar:
			encodeScalar(e, f.Size, v.U)
		case Handle:
			e.ID(v.ID)
		case Address:
			e.ID(v.ID)
			e.U64(v.Offset)
		case HandleArray:
			e.IDs(v.IDs)
		case ScalarArray:
			e.Count(len(v.Us))
			for _, u := range v.Us {
				encodeScalar(e, f.Size, u)
			}
		case Bytes:
			e.Bytes(v.Bytes)
		case StructArray:
			e.Count(len(v.Structs))
			for _, el := range v.Structs {
				if el == nil || el.Type != f.Elem {
					e.SetError(errors.Wrapf(ErrFieldMismatch, "%v.%v element is not a %v", l.Name, f.Name, sc.Name(f.Elem)))
					return
				}
				sc.Encode(e, el)
			}
		case StructPtr:
			e.Present(v.Ptr != nil)
			if v.Ptr != nil {
				if v.Ptr.Type != f.Elem {
					e.SetError(errors.Wrapf(ErrFieldMismatch, "%v.%v is not a %v", l.Name, f.Name, sc.Name(f.Elem)))
					return
				}
				sc.Encode(e, v.Ptr)
			}
		}
	}
}

func encodeScalar(e *chunk.Encoder, size, v uint64) {
	switch size {
	case 1:
		e.U8(uint8(v))
	case 2:
		e.U16(uint16(v))
	case 4:
		e.U32(uint32(v))
	default:
		e.U64(v)
	}
}

func decodeScalar(d *chunk.Decoder, size uint64) uint64 {
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

// Decode reads a structure and its chain from d. Structures of types outside
// the schema decode as opaque structures; only patching them fails.
func (sc *Schema) Decode(d *chunk.Decoder) (*Struct, error) {
	s := sc.decode(d, 0)
	if err := d.Error(); err != nil {
		return nil, err
	}
	return s, nil
}

func (sc *Schema) decode(d *chunk.Decoder, depth int) *Struct {
	if depth > maxDepth {
		d.Fail("structure nesting exceeds %d", maxDepth)
		return nil
	}
	s := &Struct{Type: StructType(d.U32())}
	body := d.Bytes()
	if d.Error() != nil {
		return nil
	}
	if l, ok := sc.layouts[s.Type]; ok {
		bd := d.Nested(body)
		sc.decodeBody(bd, l, s, depth)
		if err := bd.Finish(); err != nil {
			d.Fail("%v body: %v", l.Name, err)
			return nil
		}
	} else {
		s.opaque = body
	}
	if d.Present() {
		s.Next = sc.decode(d, depth+1)
	}
	return s
}

func (sc *Schema) decodeBody(d *chunk.Decoder, l *Layout, s *Struct, depth int) {
	s.Values = make([]Value, len(l.Fields))
	for i, f := range l.Fields {
		v := &s.Values[i]
		switch f.Kind {
		case Scalar:
			v.U = decodeScalar(d, f.Size)
		case Handle:
			v.ID = d.ID()
		case Address:
			v.ID = d.ID()
			v.Offset = d.U64()
		case HandleArray:
			v.IDs = d.IDs()
		case ScalarArray:
			n := d.Count(int(f.Size))
			v.Us = make([]uint64, n)
			for j := range v.Us {
				v.Us[j] = decodeScalar(d, f.Size)
			}
		case Bytes:
			v.Bytes = d.Bytes()
		case StructArray:
			n := d.Count(4)
			v.Structs = make([]*Struct, 0, n)
			for j := 0; j < n && d.Error() == nil; j++ {
				el := sc.decode(d, depth+1)
				if el != nil && el.Type != f.Elem {
					d.Fail("%v.%v element is type %d, expected %d", l.Name, f.Name, el.Type, f.Elem)
				}
				v.Structs = append(v.Structs, el)
			}
		case StructPtr:
			if d.Present() {
				v.Ptr = sc.decode(d, depth+1)
				if v.Ptr != nil && v.Ptr.Type != f.Elem {
					d.Fail("%v.%v is type %d, expected %d", l.Name, f.Name, v.Ptr.Type, f.Elem)
				}
			}
		}
		if d.Error() != nil {
			return
		}
	}
}
