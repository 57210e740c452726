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

// Package chunk implements the append-only binary command log.
//
// A log is a Header followed by a sequence of chunks. Every chunk is one
// event: the event id of a chunk is its index in the sequence.
//
//	chunk := opcode:u32 length:u32 payload:[length]byte
package chunk

import (
	"fmt"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/fault"
)

const (
	ErrEndOfLog           = fault.Const("End of log")
	ErrCorruptChunk       = fault.Const("Corrupt chunk")
	ErrEventNotIndexed    = fault.Const("Event not indexed")
	ErrEventOutOfRange    = fault.Const("Event out of range")
	ErrBadMagic           = fault.Const("Not a chunk log")
	ErrUnsupportedVersion = fault.Const("Unsupported log format version")
	ErrChunkTooLarge      = fault.Const("Chunk payload too large")
	ErrWriterClosed       = fault.Const("Chunk writer already closed")
)

// chunkHeaderSize is the size of the opcode and length preceding a payload.
const chunkHeaderSize = 8

// Opcode identifies the operation recorded by a chunk.
type Opcode uint32

const (
	// OpInvalid is never a valid opcode.
	OpInvalid Opcode = 0
	// OpUnknownBase is the first opcode of the reserved unknown range.
	// Chunks in this range are well formed but cannot be decoded.
	OpUnknownBase Opcode = 0xFFFF0000
)

// IsReservedUnknown returns true if o lies in the reserved unknown range.
func (o Opcode) IsReservedUnknown() bool { return o >= OpUnknownBase }

func (o Opcode) String() string {
	if o.IsReservedUnknown() {
		return fmt.Sprintf("Unknown(0x%x)", uint32(o))
	}
	return fmt.Sprintf("Op(%d)", uint32(o))
}

// Chunk is one record of the log. The payload aliases the log's buffer and
// must not be modified.
type Chunk struct {
	Opcode  Opcode
	EventID uint64
	// Offset is the byte offset of the chunk header within the chunk area.
	Offset  uint64
	Payload []byte
	order   endian.ByteOrder
}

// Size returns the encoded size of the chunk including its header.
func (c Chunk) Size() uint64 { return chunkHeaderSize + uint64(len(c.Payload)) }

// Decoder returns a Decoder over the chunk's payload.
func (c Chunk) Decoder() *Decoder {
	return newDecoder(c.Payload, c.order, c.Offset, c.EventID)
}

// CorruptError reports malformed log bytes. It matches ErrCorruptChunk.
type CorruptError struct {
	Offset  uint64
	EventID uint64
	Reason  string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%v at event %d offset %d: %s", ErrCorruptChunk, e.EventID, e.Offset, e.Reason)
}

// Is makes errors.Is(err, ErrCorruptChunk) true for any CorruptError.
func (e *CorruptError) Is(target error) bool { return target == ErrCorruptChunk }
