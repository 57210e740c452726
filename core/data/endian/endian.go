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

// Package endian implements binary.Reader and binary.Writer for a fixed
// byte order.
package endian

import (
	eb "encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/gfxreplay/core/data/binary"
)

// ByteOrder selects the byte order of the encoded primitives.
type ByteOrder uint8

const (
	// Little is little-endian byte order.
	Little ByteOrder = iota
	// Big is big-endian byte order.
	Big
)

func (o ByteOrder) String() string {
	switch o {
	case Little:
		return "little-endian"
	case Big:
		return "big-endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", uint8(o))
	}
}

func byteOrder(o ByteOrder) eb.ByteOrder {
	switch o {
	case Big:
		return eb.BigEndian
	default:
		return eb.LittleEndian
	}
}

// Reader creates a binary.Reader that reads from the provided io.Reader, with
// the specified byte order.
func Reader(r io.Reader, o ByteOrder) binary.Reader {
	return &reader{reader: r, byteOrder: byteOrder(o)}
}

// ReaderForBytes creates a binary.Reader that reads from data, with the
// specified byte order. The returned reader also implements binary.Offsetter.
func ReaderForBytes(data []byte, o ByteOrder) binary.Reader {
	return &bytesReader{data: data, byteOrder: byteOrder(o)}
}

// Writer creates a binary.Writer that writes to the supplied stream, with the
// specified byte order.
func Writer(w io.Writer, o ByteOrder) binary.Writer {
	return &writer{writer: w, byteOrder: byteOrder(o)}
}

type reader struct {
	reader    io.Reader
	tmp       [8]byte
	byteOrder eb.ByteOrder
	err       error
}

type bytesReader struct {
	data      []byte
	head      int
	byteOrder eb.ByteOrder
	err       error
}

type writer struct {
	writer    io.Writer
	tmp       [8]byte
	byteOrder eb.ByteOrder
	err       error
}

func (r *reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}

func (r *reader) Data(p []byte) {
	if r.err != nil {
		return
	}
	if n, err := io.ReadFull(r.reader, p); err != nil {
		r.err = fmt.Errorf("%v after reading %d dynamic bytes", err, n)
	}
}

func (r *reader) fill(n int) []byte {
	if r.err != nil {
		return nil
	}
	if _, err := io.ReadFull(r.reader, r.tmp[:n]); err != nil {
		r.err = err
		return nil
	}
	return r.tmp[:n]
}

func (r *reader) Bool() bool   { return r.Uint8() != 0 }
func (r *reader) Int8() int8   { return int8(r.Uint8()) }
func (r *reader) Int16() int16 { return int16(r.Uint16()) }
func (r *reader) Int32() int32 { return int32(r.Uint32()) }
func (r *reader) Int64() int64 { return int64(r.Uint64()) }

func (r *reader) Uint8() uint8 {
	if b := r.fill(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) Uint16() uint16 {
	if b := r.fill(2); b != nil {
		return r.byteOrder.Uint16(b)
	}
	return 0
}

func (r *reader) Uint32() uint32 {
	if b := r.fill(4); b != nil {
		return r.byteOrder.Uint32(b)
	}
	return 0
}

func (r *reader) Uint64() uint64 {
	if b := r.fill(8); b != nil {
		return r.byteOrder.Uint64(b)
	}
	return 0
}

func (r *reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }
func (r *reader) Float64() float64 { return math.Float64frombits(r.Uint64()) }

func (r *reader) String() string {
	n := r.Count()
	if r.err != nil || n == 0 {
		return ""
	}
	s := make([]byte, n)
	r.Data(s)
	return string(s)
}

func (r *reader) Count() uint32 { return r.Uint32() }

func (r *reader) Error() error { return r.err }

func (r *reader) SetError(err error) {
	if r.err != nil {
		return
	}
	r.err = err
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.head >= len(r.data) && len(p) > 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.head:])
	r.head += n
	return n, nil
}

func (r *bytesReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.head+n > len(r.data) {
		r.err = fmt.Errorf("%v reading %d bytes at offset %d of %d", io.ErrUnexpectedEOF, n, r.head, len(r.data))
		return nil
	}
	out := r.data[r.head : r.head+n]
	r.head += n
	return out
}

func (r *bytesReader) Data(p []byte) {
	if b := r.take(len(p)); b != nil {
		copy(p, b)
	}
}

func (r *bytesReader) Bool() bool   { return r.Uint8() != 0 }
func (r *bytesReader) Int8() int8   { return int8(r.Uint8()) }
func (r *bytesReader) Int16() int16 { return int16(r.Uint16()) }
func (r *bytesReader) Int32() int32 { return int32(r.Uint32()) }
func (r *bytesReader) Int64() int64 { return int64(r.Uint64()) }

func (r *bytesReader) Uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *bytesReader) Uint16() uint16 {
	if b := r.take(2); b != nil {
		return r.byteOrder.Uint16(b)
	}
	return 0
}

func (r *bytesReader) Uint32() uint32 {
	if b := r.take(4); b != nil {
		return r.byteOrder.Uint32(b)
	}
	return 0
}

func (r *bytesReader) Uint64() uint64 {
	if b := r.take(8); b != nil {
		return r.byteOrder.Uint64(b)
	}
	return 0
}

func (r *bytesReader) Float32() float32 { return math.Float32frombits(r.Uint32()) }
func (r *bytesReader) Float64() float64 { return math.Float64frombits(r.Uint64()) }

func (r *bytesReader) String() string {
	n := r.Count()
	if b := r.take(int(n)); b != nil {
		return string(b)
	}
	return ""
}

func (r *bytesReader) Count() uint32 { return r.Uint32() }

func (r *bytesReader) Offset() uint64 { return uint64(r.head) }

func (r *bytesReader) Remaining() uint64 { return uint64(len(r.data) - r.head) }

func (r *bytesReader) Error() error { return r.err }

func (r *bytesReader) SetError(err error) {
	if r.err != nil {
		return
	}
	r.err = err
}

func (w *writer) Data(data []byte) {
	if w.err != nil {
		return
	}
	n, err := w.writer.Write(data)
	if err != nil {
		w.err = err
	} else if n != len(data) {
		w.err = io.ErrShortWrite
	}
}

func (w *writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *writer) Int8(v int8)   { w.Uint8(uint8(v)) }
func (w *writer) Int16(v int16) { w.Uint16(uint16(v)) }
func (w *writer) Int32(v int32) { w.Uint32(uint32(v)) }
func (w *writer) Int64(v int64) { w.Uint64(uint64(v)) }

func (w *writer) Uint8(v uint8) {
	w.tmp[0] = v
	w.Data(w.tmp[:1])
}

func (w *writer) Uint16(v uint16) {
	w.byteOrder.PutUint16(w.tmp[:], v)
	w.Data(w.tmp[:2])
}

func (w *writer) Uint32(v uint32) {
	w.byteOrder.PutUint32(w.tmp[:], v)
	w.Data(w.tmp[:4])
}

func (w *writer) Uint64(v uint64) {
	w.byteOrder.PutUint64(w.tmp[:], v)
	w.Data(w.tmp[:8])
}

func (w *writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }
func (w *writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

func (w *writer) String(v string) {
	w.Uint32(uint32(len(v)))
	w.Data([]byte(v))
}

func (w *writer) Error() error { return w.err }

func (w *writer) SetError(err error) {
	if w.err != nil {
		return
	}
	w.err = err
}
