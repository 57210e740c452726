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

import (
	"bytes"
	"fmt"

	"github.com/google/gfxreplay/core/data/binary"
	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/gapis/identity"
)

// IDSize is the encoded size of an identity.ID.
const IDSize = 16

// Encoder writes chunk payload primitives.
// Arrays are u32 length-prefixed; optional values carry a u8 presence flag.
type Encoder struct {
	w     binary.Writer
	buf   *bytes.Buffer
	order endian.ByteOrder
}

// NewEncoder returns an Encoder appending to buf in the byte order o.
func NewEncoder(buf *bytes.Buffer, o endian.ByteOrder) *Encoder {
	return &Encoder{w: endian.Writer(buf, o), buf: buf, order: o}
}

func (e *Encoder) Bool(v bool)        { e.w.Bool(v) }
func (e *Encoder) U8(v uint8)         { e.w.Uint8(v) }
func (e *Encoder) U16(v uint16)       { e.w.Uint16(v) }
func (e *Encoder) U32(v uint32)       { e.w.Uint32(v) }
func (e *Encoder) U64(v uint64)       { e.w.Uint64(v) }
func (e *Encoder) I32(v int32)        { e.w.Int32(v) }
func (e *Encoder) I64(v int64)        { e.w.Int64(v) }
func (e *Encoder) F32(v float32)      { e.w.Float32(v) }
func (e *Encoder) F64(v float64)      { e.w.Float64(v) }
func (e *Encoder) String(v string)    { e.w.String(v) }
func (e *Encoder) Count(n int)        { e.w.Uint32(uint32(n)) }
func (e *Encoder) Present(v bool)     { e.w.Bool(v) }
func (e *Encoder) Raw(data []byte)    { e.w.Data(data) }
func (e *Encoder) SetError(err error) { e.w.SetError(err) }

// Bytes writes a length-prefixed byte array.
func (e *Encoder) Bytes(data []byte) {
	e.Count(len(data))
	e.w.Data(data)
}

// ID writes a logical identity.
func (e *Encoder) ID(id identity.ID) {
	e.w.Uint64(id.Hi)
	e.w.Uint64(id.Lo)
}

// IDs writes a length-prefixed array of logical identities.
func (e *Encoder) IDs(ids []identity.ID) {
	e.Count(len(ids))
	for _, id := range ids {
		e.ID(id)
	}
}

// Nested returns an Encoder with the same byte order writing to buf.
func (e *Encoder) Nested(buf *bytes.Buffer) *Encoder { return NewEncoder(buf, e.order) }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return e.buf.Len() }

// Error returns the first error encountered while encoding.
func (e *Encoder) Error() error { return e.w.Error() }

// Decoder reads chunk payload primitives. Any read past the end of the
// payload latches a corrupt-chunk error.
type Decoder struct {
	r       binary.Reader
	o       binary.Offsetter
	order   endian.ByteOrder
	offset  uint64
	eventID uint64
}

func newDecoder(payload []byte, order endian.ByteOrder, offset, eventID uint64) *Decoder {
	r := endian.ReaderForBytes(payload, order)
	return &Decoder{r: r, o: r.(binary.Offsetter), order: order, offset: offset, eventID: eventID}
}

// NewDecoder returns a Decoder over a standalone payload.
func NewDecoder(payload []byte, order endian.ByteOrder) *Decoder {
	return newDecoder(payload, order, 0, 0)
}

func (d *Decoder) Bool() bool        { return d.r.Bool() }
func (d *Decoder) U8() uint8         { return d.r.Uint8() }
func (d *Decoder) U16() uint16       { return d.r.Uint16() }
func (d *Decoder) U32() uint32       { return d.r.Uint32() }
func (d *Decoder) U64() uint64       { return d.r.Uint64() }
func (d *Decoder) I32() int32        { return d.r.Int32() }
func (d *Decoder) I64() int64        { return d.r.Int64() }
func (d *Decoder) F32() float32      { return d.r.Float32() }
func (d *Decoder) F64() float64      { return d.r.Float64() }
func (d *Decoder) String() string    { return d.r.String() }
func (d *Decoder) Present() bool     { return d.r.Bool() }
func (d *Decoder) Remaining() uint64 { return d.o.Remaining() }

// Nested returns a Decoder over data, which was read from this decoder's
// payload. Errors it reports carry this decoder's chunk position.
func (d *Decoder) Nested(data []byte) *Decoder {
	return newDecoder(data, d.order, d.offset, d.eventID)
}

// Count reads an array length and checks that the payload could hold that
// many elements of at least elemSize bytes.
func (d *Decoder) Count(elemSize int) int {
	n := uint64(d.r.Count())
	if d.r.Error() != nil {
		return 0
	}
	if elemSize > 0 && n*uint64(elemSize) > d.o.Remaining() {
		d.Fail("array of %d elements exceeds remaining %d bytes", n, d.o.Remaining())
		return 0
	}
	return int(n)
}

// Bytes reads a length-prefixed byte array.
func (d *Decoder) Bytes() []byte {
	n := d.Count(1)
	out := make([]byte, n)
	d.r.Data(out)
	return out
}

// Raw reads exactly n bytes.
func (d *Decoder) Raw(n int) []byte {
	if uint64(n) > d.o.Remaining() {
		d.Fail("raw read of %d bytes exceeds remaining %d bytes", n, d.o.Remaining())
		return nil
	}
	out := make([]byte, n)
	d.r.Data(out)
	return out
}

// ID reads a logical identity.
func (d *Decoder) ID() identity.ID {
	return identity.ID{Hi: d.r.Uint64(), Lo: d.r.Uint64()}
}

// IDs reads a length-prefixed array of logical identities.
func (d *Decoder) IDs() []identity.ID {
	n := d.Count(IDSize)
	out := make([]identity.ID, n)
	for i := range out {
		out[i] = d.ID()
	}
	return out
}

// Fail latches a corrupt-chunk error with the formatted reason.
func (d *Decoder) Fail(reason string, args ...interface{}) {
	d.r.SetError(d.corrupt(fmt.Sprintf(reason, args...)))
}

// Error returns the first error encountered while decoding.
func (d *Decoder) Error() error {
	err := d.r.Error()
	if err == nil {
		return nil
	}
	if _, ok := err.(*CorruptError); ok {
		return err
	}
	return d.corrupt(err.Error())
}

// Finish returns an error if decoding failed or if any payload bytes were
// left unconsumed.
func (d *Decoder) Finish() error {
	if err := d.Error(); err != nil {
		return err
	}
	if n := d.o.Remaining(); n != 0 {
		return d.corrupt(fmt.Sprintf("%d payload bytes not consumed", n))
	}
	return nil
}

func (d *Decoder) corrupt(reason string) *CorruptError {
	return &CorruptError{Offset: d.offset + chunkHeaderSize + d.o.Offset(), EventID: d.eventID, Reason: reason}
}
