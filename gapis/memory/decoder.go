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
	"fmt"

	"github.com/google/gfxreplay/core/data/binary"
	"github.com/google/gfxreplay/core/data/endian"
)

// Decoder provides methods to read primitives from patched memory, respecting
// a given MemoryLayout.
// Decoder will automatically handle alignment and types sizes.
type Decoder struct {
	data []byte
	r    binary.Reader
	m    *MemoryLayout
	o    uint64
	err  error
}

// NewDecoder constructs and returns a new Decoder that reads data from
// offset using the memory layout m.
func NewDecoder(data []byte, offset uint64, m *MemoryLayout) *Decoder {
	d := &Decoder{data: data, m: m}
	d.Seek(offset)
	return d
}

// Seek moves the read position to the absolute offset.
func (d *Decoder) Seek(offset uint64) {
	if offset > uint64(len(d.data)) {
		d.setErr(fmt.Errorf("seek to %d past end of %d bytes", offset, len(d.data)))
		d.r = endian.ReaderForBytes(nil, d.m.Endian)
		return
	}
	d.o = offset
	d.r = endian.ReaderForBytes(d.data[offset:], d.m.Endian)
}

func (d *Decoder) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) alignAndOffset(l DataTypeLayout) {
	d.Align(l.Alignment)
	d.o += l.Size
}

// MemoryLayout returns the MemoryLayout used by the decoder.
func (d *Decoder) MemoryLayout() *MemoryLayout {
	return d.m
}

// Offset returns the absolute byte offset of the read position.
func (d *Decoder) Offset() uint64 {
	return d.o
}

// Align skips bytes until the read position is a multiple of to.
func (d *Decoder) Align(to uint64) {
	alignment := AlignUp(d.o, to)
	if pad := alignment - d.o; pad != 0 {
		d.Skip(pad)
	}
}

// Skip skips n bytes.
func (d *Decoder) Skip(n uint64) {
	d.Data(make([]byte, n))
}

func (d *Decoder) uint(l DataTypeLayout) uint64 {
	d.alignAndOffset(l)
	var v uint64
	switch l.Size {
	case 1:
		v = uint64(d.r.Uint8())
	case 2:
		v = uint64(d.r.Uint16())
	case 4:
		v = uint64(d.r.Uint32())
	case 8:
		v = d.r.Uint64()
	default:
		d.setErr(fmt.Errorf("unsupported integer size %d", l.Size))
	}
	if err := d.r.Error(); err != nil {
		d.setErr(err)
	}
	return v
}

// Pointer loads and returns a pointer, which in patched memory is an offset.
func (d *Decoder) Pointer() uint64 { return d.uint(d.m.Pointer) }

// Size loads and returns a size_t.
func (d *Decoder) Size() uint64 { return d.uint(d.m.Size) }

// U8 loads and returns a uint8.
func (d *Decoder) U8() uint8 { return uint8(d.uint(d.m.I8)) }

// U16 loads and returns a uint16.
func (d *Decoder) U16() uint16 { return uint16(d.uint(d.m.I16)) }

// U32 loads and returns a uint32.
func (d *Decoder) U32() uint32 { return uint32(d.uint(d.m.I32)) }

// U64 loads and returns a uint64.
func (d *Decoder) U64() uint64 { return d.uint(d.m.I64) }

// I32 loads and returns a int32.
func (d *Decoder) I32() int32 { return int32(d.uint(d.m.I32)) }

// I64 loads and returns a int64.
func (d *Decoder) I64() int64 { return int64(d.uint(d.m.I64)) }

// F32 loads and returns a float32.
func (d *Decoder) F32() float32 {
	d.Align(d.m.F32.Alignment)
	d.o += d.m.F32.Size
	return d.r.Float32()
}

// F64 loads and returns a float64.
func (d *Decoder) F64() float64 {
	d.Align(d.m.F64.Alignment)
	d.o += d.m.F64.Size
	return d.r.Float64()
}

// Bool loads and returns a boolean value.
func (d *Decoder) Bool() bool {
	return d.U8() != 0
}

// Data reads raw bytes into buf.
func (d *Decoder) Data(buf []byte) {
	d.r.Data(buf)
	if err := d.r.Error(); err != nil {
		d.setErr(err)
	}
	d.o += uint64(len(buf))
}

// Error returns the error state of the underlying reader.
func (d *Decoder) Error() error {
	if d.err != nil {
		return d.err
	}
	return d.r.Error()
}
