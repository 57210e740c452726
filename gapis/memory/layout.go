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

// Package memory holds the scratch arena that patched structures are
// written into, the decoder that reads them back, and the sparse pools that
// model device memory contents.
package memory

import "github.com/google/gfxreplay/core/data/endian"

// DataTypeLayout is the size and alignment of a primitive type.
type DataTypeLayout struct {
	Size      uint64
	Alignment uint64
}

// MemoryLayout describes the sizes, alignments and byte order of primitive
// types in patched memory.
type MemoryLayout struct {
	Endian  endian.ByteOrder
	Pointer DataTypeLayout
	I8      DataTypeLayout
	I16     DataTypeLayout
	I32     DataTypeLayout
	I64     DataTypeLayout
	F32     DataTypeLayout
	F64     DataTypeLayout
	Size    DataTypeLayout
}

// HostLayout is the layout of a little-endian 64 bit host.
var HostLayout = &MemoryLayout{
	Endian:  endian.Little,
	Pointer: DataTypeLayout{8, 8},
	I8:      DataTypeLayout{1, 1},
	I16:     DataTypeLayout{2, 2},
	I32:     DataTypeLayout{4, 4},
	I64:     DataTypeLayout{8, 8},
	F32:     DataTypeLayout{4, 4},
	F64:     DataTypeLayout{8, 8},
	Size:    DataTypeLayout{8, 8},
}

// ForSize returns the layout of the unsigned integer of the given byte size.
func (m *MemoryLayout) ForSize(size uint64) DataTypeLayout {
	switch size {
	case 1:
		return m.I8
	case 2:
		return m.I16
	case 4:
		return m.I32
	default:
		return m.I64
	}
}

// AlignUp rounds v up to the next multiple of to. to must be a power of two.
func AlignUp(v, to uint64) uint64 {
	if to <= 1 {
		return v
	}
	return (v + to - 1) &^ (to - 1)
}
