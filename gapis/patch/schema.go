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

// Package patch rewrites parameter structures from logical identities to
// real handles.
//
// Structures are described by a closed Schema. Patching is two-pass: the
// size of the patched image is computed first, then the structure and
// everything it references is deep-copied into one contiguous arena with
// every handle resolved. Inside the image pointers are byte offsets from the
// start of the arena; the root always lives at offset 0, so 0 is null.
//
// Every patched structure starts with a 16 byte header:
//
//	type:u32 pad:u32 next:u64
package patch

import (
	"fmt"

	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/gapis/memory"
	"github.com/google/gfxreplay/gapis/reference"
)

const (
	ErrUnsupportedChainedStruct = fault.Const("Unsupported chained structure")
	ErrFieldMismatch            = fault.Const("Structure values do not match layout")
)

// StructType is the type tag of a structure.
type StructType uint32

// FieldKind is the shape of a structure field.
type FieldKind uint8

const (
	// Scalar is an integer of Size bytes.
	Scalar FieldKind = iota
	// Handle is an object identity, patched to a real handle.
	Handle
	// HandleArray is a counted array of object identities.
	HandleArray
	// ScalarArray is a counted array of integers of Size bytes.
	ScalarArray
	// Bytes is a counted array of bytes.
	Bytes
	// Address is an object identity plus a byte offset into it.
	Address
	// StructArray is a counted array of structures of type Elem.
	StructArray
	// StructPtr is an optional pointer to a structure of type Elem.
	StructPtr
)

func (k FieldKind) String() string {
	return [...]string{"Scalar", "Handle", "HandleArray", "ScalarArray", "Bytes", "Address", "StructArray", "StructPtr"}[k]
}

// Field describes one field of a structure.
type Field struct {
	Name string
	Kind FieldKind
	// Size is the byte size of a Scalar or of a ScalarArray element.
	Size uint64
	// Elem is the structure type of a StructArray or StructPtr.
	Elem StructType
	// Access is how the operation taking this structure uses the objects
	// named by a Handle, HandleArray or Address field.
	Access reference.Access

	offset    uint64
	ptrOffset uint64
}

// Offset returns the offset of the field within the patched structure.
// For counted arrays this is the offset of the u32 count.
func (f Field) Offset() uint64 { return f.offset }

// Layout describes one structure type.
type Layout struct {
	Type   StructType
	Name   string
	Fields []Field

	size   uint64
	byName map[string]int
}

// HeaderSize is the size of the type and next header of a patched structure.
const HeaderSize = 16

// Size returns the fixed size of the patched structure.
func (l *Layout) Size() uint64 { return l.size }

// Field returns the index of the named field.
func (l *Layout) Field(name string) (int, bool) {
	i, ok := l.byName[name]
	return i, ok
}

func (l *Layout) mustField(name string) *Field {
	i, ok := l.byName[name]
	if !ok {
		panic(fmt.Errorf("%v has no field %q", l.Name, name))
	}
	return &l.Fields[i]
}

func (l *Layout) compile() {
	l.byName = make(map[string]int, len(l.Fields))
	off := uint64(HeaderSize)
	for i := range l.Fields {
		f := &l.Fields[i]
		if _, dup := l.byName[f.Name]; dup {
			panic(fmt.Errorf("%v declares field %q twice", l.Name, f.Name))
		}
		l.byName[f.Name] = i
		switch f.Kind {
		case Scalar:
			if f.Size != 1 && f.Size != 2 && f.Size != 4 && f.Size != 8 {
				panic(fmt.Errorf("%v.%v: unsupported scalar size %d", l.Name, f.Name, f.Size))
			}
			f.offset = memory.AlignUp(off, f.Size)
			off = f.offset + f.Size
		case Handle, StructPtr:
			f.offset = memory.AlignUp(off, 8)
			off = f.offset + 8
		case Address:
			f.offset = memory.AlignUp(off, 8)
			off = f.offset + 16
		case HandleArray, ScalarArray, Bytes, StructArray:
			if f.Kind == ScalarArray && f.Size != 1 && f.Size != 2 && f.Size != 4 && f.Size != 8 {
				panic(fmt.Errorf("%v.%v: unsupported element size %d", l.Name, f.Name, f.Size))
			}
			f.offset = memory.AlignUp(off, 4)
			f.ptrOffset = memory.AlignUp(f.offset+4, 8)
			off = f.ptrOffset + 8
		}
	}
	l.size = memory.AlignUp(off, 8)
}

// Schema is a closed, versioned set of structure layouts.
type Schema struct {
	Version string
	layouts map[StructType]*Layout
}

// NewSchema compiles the layouts into a schema. It panics if a type is
// declared twice or a field refers to an undeclared type.
func NewSchema(version string, layouts ...Layout) *Schema {
	s := &Schema{Version: version, layouts: make(map[StructType]*Layout, len(layouts))}
	for i := range layouts {
		l := layouts[i]
		l.Fields = append([]Field(nil), l.Fields...)
		if _, dup := s.layouts[l.Type]; dup {
			panic(fmt.Errorf("structure type %d declared twice", l.Type))
		}
		l.compile()
		s.layouts[l.Type] = &l
	}
	for _, l := range s.layouts {
		for _, f := range l.Fields {
			if f.Kind == StructArray || f.Kind == StructPtr {
				if _, ok := s.layouts[f.Elem]; !ok {
					panic(fmt.Errorf("%v.%v refers to undeclared type %d", l.Name, f.Name, f.Elem))
				}
			}
		}
	}
	return s
}

// Layout returns the layout of the structure type.
func (s *Schema) Layout(t StructType) (*Layout, bool) {
	l, ok := s.layouts[t]
	return l, ok
}

// Name returns the name of the structure type.
func (s *Schema) Name(t StructType) string {
	if l, ok := s.layouts[t]; ok {
		return l.Name
	}
	return fmt.Sprintf("Struct(%d)", uint32(t))
}

// UnsupportedError is returned when a structure of a type outside the
// schema must be patched. It matches ErrUnsupportedChainedStruct.
type UnsupportedError struct {
	Type StructType
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%v: type %d", ErrUnsupportedChainedStruct, uint32(e.Type))
}

// Is makes errors.Is(err, ErrUnsupportedChainedStruct) true.
func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupportedChainedStruct }
