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
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/data/endian"
)

// Cursor is a read position in a log: the event id and byte offset of the
// next chunk to be read.
type Cursor struct {
	EventID uint64
	Offset  uint64
}

func (c Cursor) String() string { return fmt.Sprintf("event %d @%d", c.EventID, c.Offset) }

// Log is an ordered sequence of chunks. Writers may append concurrently;
// readers see every chunk committed before their read began.
type Log struct {
	mutex       sync.RWMutex
	session     uuid.UUID
	version     string
	order       endian.ByteOrder
	compression Compression
	data        []byte
	// count is the number of chunks in data, valid when counted is set.
	count   uint64
	counted bool
	// declared is set when count was read from a serialized header.
	declared bool
	index    *Index
	scratch  sync.Pool
}

// New returns an empty log for the capture session.
func New(session uuid.UUID, order endian.ByteOrder) *Log {
	l := &Log{session: session, order: order, version: FormatVersion.String(), counted: true}
	l.scratch.New = func() interface{} { return &bytes.Buffer{} }
	return l
}

// Open parses a serialized log. An uncompressed log aliases data; a
// compressed one is inflated into a new buffer and chunk offsets are
// relative to the inflated chunk area.
func Open(data []byte) (*Log, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	l := New(h.Session, h.ByteOrder)
	l.version = h.Version.String()
	l.compression = h.Compression
	l.data = data[HeaderSize:len(data):len(data)]
	if h.Compression == Zstd {
		if l.data, err = decompress(l.data); err != nil {
			return nil, &CorruptError{Offset: HeaderSize, Reason: err.Error()}
		}
	}
	known := h.ChunkCount != 0
	l.count, l.counted, l.declared = h.ChunkCount, known, known
	return l, nil
}

// Session returns the capture session the log was recorded in.
func (l *Log) Session() uuid.UUID { return l.session }

// ByteOrder returns the byte order of the chunk payloads.
func (l *Log) ByteOrder() endian.ByteOrder { return l.order }

// Version returns the format version of the log.
func (l *Log) Version() string { return l.version }

// Size returns the number of bytes in the chunk area.
func (l *Log) Size() uint64 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return uint64(len(l.data))
}

// Count returns the number of chunks in the log, if known.
// Logs opened from a stream without a final count report false until an
// index has been built or a chunk appended.
func (l *Log) Count() (uint64, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.countLocked()
}

func (l *Log) countLocked() (uint64, bool) {
	switch {
	case l.counted:
		return l.count, true
	case l.index != nil:
		return l.index.Events, true
	}
	return 0, false
}

// Declared returns the chunk count the serialized header of an opened log
// declared, plus the chunks appended since. It returns false for logs built
// in memory and logs streamed without a final count.
func (l *Log) Declared() (uint64, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if !l.declared {
		return 0, false
	}
	return l.count, true
}

// Compression returns the framing Bytes uses for the chunk area.
func (l *Log) Compression() Compression {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.compression
}

// SetCompression sets the framing Bytes uses for the chunk area. Opened logs
// keep the framing they were read with until it is changed.
func (l *Log) SetCompression(c Compression) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.compression = c
}

// Header returns the header describing the log's current contents.
func (l *Log) Header() Header {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.headerLocked()
}

func (l *Log) headerLocked() Header {
	count, _ := l.countLocked()
	return Header{
		Version:     FormatVersion,
		ByteOrder:   l.order,
		ChunkCount:  count,
		Session:     l.session,
		Compression: l.compression,
	}
}

// Bytes serializes the log with a header carrying the final chunk count.
// The count and the chunk area are read under one lock.
func (l *Log) Bytes() []byte {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	h := l.headerLocked().encode()
	if l.compression == Zstd {
		return compress(l.data, h)
	}
	out := make([]byte, 0, len(h)+len(l.data))
	out = append(out, h...)
	return append(out, l.data...)
}

// WriteTo writes the serialized log to w.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(l.Bytes())
	return int64(n), err
}

// Writer buffers the payload of one chunk until End commits it.
type Writer struct {
	*Encoder
	log    *Log
	op     Opcode
	buf    *bytes.Buffer
	closed bool
}

// BeginChunk starts a new chunk with the opcode. The returned Writer must be
// finished with End or Discard.
func (l *Log) BeginChunk(op Opcode) *Writer {
	buf := l.scratch.Get().(*bytes.Buffer)
	buf.Reset()
	w := &Writer{Encoder: NewEncoder(buf, l.order), log: l, op: op, buf: buf}
	if op == OpInvalid {
		w.SetError(errors.New("opcode 0 is not a valid chunk opcode"))
	}
	return w
}

// End commits the chunk and returns its event id. If the payload failed to
// encode the chunk is discarded and the error is returned.
func (w *Writer) End() (uint64, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	defer w.release()
	if err := w.Error(); err != nil {
		return 0, errors.Wrapf(err, "encoding %v", w.op)
	}
	if w.buf.Len() > math.MaxUint32 {
		return 0, errors.Wrapf(ErrChunkTooLarge, "%v payload is %d bytes", w.op, w.buf.Len())
	}
	return w.log.commit(w.op, w.buf.Bytes())
}

// Discard drops the chunk without committing it.
func (w *Writer) Discard() {
	if !w.closed {
		w.release()
	}
}

func (w *Writer) release() {
	w.closed = true
	w.log.scratch.Put(w.buf)
	w.buf, w.Encoder = nil, nil
}

func (l *Log) commit(op Opcode, payload []byte) (uint64, error) {
	hdr := &bytes.Buffer{}
	w := endian.Writer(hdr, l.order)
	w.Uint32(uint32(op))
	w.Uint32(uint32(len(payload)))

	l.mutex.Lock()
	defer l.mutex.Unlock()
	if !l.counted {
		if err := l.recount(); err != nil {
			return 0, errors.Wrapf(err, "appending %v", op)
		}
	}
	l.data = append(l.data, hdr.Bytes()...)
	l.data = append(l.data, payload...)
	id := l.count
	l.count++
	l.index = nil
	return id, nil
}

// recount walks the chunk headers of a log opened without a final count.
func (l *Log) recount() error {
	c := Cursor{}
	for {
		_, length, err := l.readHeader(l.data, c)
		if errors.Is(err, ErrEndOfLog) {
			break
		}
		if err != nil {
			return err
		}
		c.Offset += chunkHeaderSize + length
		c.EventID++
	}
	l.count, l.counted = c.EventID, true
	return nil
}

func (l *Log) snapshot() []byte {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.data
}

// ReadNext reads the chunk at the cursor and advances the cursor past it.
// It returns ErrEndOfLog at the end of the log and a *CorruptError if the
// bytes at the cursor are not a well formed chunk.
func (l *Log) ReadNext(c *Cursor) (Chunk, error) {
	data := l.snapshot()
	op, length, err := l.readHeader(data, *c)
	if err != nil {
		return Chunk{}, err
	}
	start := c.Offset + chunkHeaderSize
	out := Chunk{
		Opcode:  op,
		EventID: c.EventID,
		Offset:  c.Offset,
		Payload: data[start : start+length : start+length],
		order:   l.order,
	}
	c.Offset = start + length
	c.EventID++
	return out, nil
}

// Skip advances the cursor past the chunk at the cursor without returning
// its payload.
func (l *Log) Skip(c *Cursor) error {
	_, length, err := l.readHeader(l.snapshot(), *c)
	if err != nil {
		return err
	}
	c.Offset += chunkHeaderSize + length
	c.EventID++
	return nil
}

func (l *Log) readHeader(data []byte, c Cursor) (Opcode, uint64, error) {
	size := uint64(len(data))
	switch {
	case c.Offset == size:
		return 0, 0, ErrEndOfLog
	case c.Offset > size:
		return 0, 0, &CorruptError{Offset: c.Offset, EventID: c.EventID, Reason: fmt.Sprintf("cursor past end of %d byte log", size)}
	case size-c.Offset < chunkHeaderSize:
		return 0, 0, &CorruptError{Offset: c.Offset, EventID: c.EventID, Reason: "truncated chunk header"}
	}
	r := endian.ReaderForBytes(data[c.Offset:c.Offset+chunkHeaderSize], l.order)
	op, length := Opcode(r.Uint32()), uint64(r.Uint32())
	if op == OpInvalid {
		return 0, 0, &CorruptError{Offset: c.Offset, EventID: c.EventID, Reason: "invalid opcode 0"}
	}
	if remaining := size - c.Offset - chunkHeaderSize; length > remaining {
		return 0, 0, &CorruptError{
			Offset:  c.Offset,
			EventID: c.EventID,
			Reason:  fmt.Sprintf("declared length %d exceeds remaining %d bytes", length, remaining),
		}
	}
	return op, length, nil
}

// SetIndex installs a checkpoint index built by a pass over the log.
func (l *Log) SetIndex(idx *Index) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.index = idx
}

// Index returns the checkpoint index, or nil if none has been built since
// the last append.
func (l *Log) Index() *Index {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.index
}

// Seek moves the cursor to the chunk with the event id. It starts from the
// nearest checkpoint at or before the event and skips forward.
func (l *Log) Seek(c *Cursor, eventID uint64) error {
	idx := l.Index()
	if idx == nil {
		return ErrEventNotIndexed
	}
	if eventID > idx.Events {
		return errors.Wrapf(ErrEventOutOfRange, "event %d, log has %d events", eventID, idx.Events)
	}
	cp := idx.Nearest(eventID)
	at := Cursor{EventID: cp.EventID, Offset: cp.Offset}
	for at.EventID < eventID {
		if err := l.Skip(&at); err != nil {
			return err
		}
	}
	*c = at
	return nil
}
