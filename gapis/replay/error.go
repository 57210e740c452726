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

package replay

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
)

const (
	ErrBusy          = fault.Const("Replay engine busy")
	ErrNotStructured = fault.Const("Structured pass has not run")
	ErrClosed        = fault.Const("Replay engine closed")
	ErrScope         = fault.Const("Command outside of an open scope")
	ErrForwardRef    = fault.Const("Identity used before its creation")
)

// Kind classifies a failed pass.
type Kind uint8

const (
	// CorruptLog is malformed bytes, a length mismatch or a forward
	// reference.
	CorruptLog Kind = iota + 1
	// UnsupportedOnReplayDevice is an operation needing a capability the
	// replay device lacks.
	UnsupportedOnReplayDevice
	// UnknownIdentity is an identity without a bound record.
	UnknownIdentity
	// AlreadyWrapped is a real handle given a second identity.
	AlreadyWrapped
	// UnsupportedChainedStruct is a chained structure the schema cannot
	// patch.
	UnsupportedChainedStruct
	// UnknownChunk is a well formed chunk whose opcode is not part of the
	// api.
	UnknownChunk
	// DriverFailure is any other error returned by the driver.
	DriverFailure
)

func (k Kind) String() string {
	switch k {
	case CorruptLog:
		return "CorruptLog"
	case UnsupportedOnReplayDevice:
		return "UnsupportedOnReplayDevice"
	case UnknownIdentity:
		return "UnknownIdentity"
	case AlreadyWrapped:
		return "AlreadyWrapped"
	case UnsupportedChainedStruct:
		return "UnsupportedChainedStruct"
	case UnknownChunk:
		return "UnknownChunk"
	case DriverFailure:
		return "DriverFailure"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is a fatal failure of a pass, located at the chunk that caused it.
type Error struct {
	Kind    Kind
	EventID uint64
	Offset  uint64
	Opcode  chunk.Opcode
	// Struct is the type tag of the structure that could not be patched,
	// for UnsupportedChainedStruct.
	Struct patch.StructType
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v at event %d (offset %d, opcode %v): %v", e.Kind, e.EventID, e.Offset, e.Opcode, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// classify returns the kind of a failure returned by a pass step.
func classify(err error) Kind {
	var unsupported *patch.UnsupportedError
	switch {
	case errors.Is(err, chunk.ErrCorruptChunk),
		errors.Is(err, ErrForwardRef),
		errors.Is(err, ErrScope),
		errors.Is(err, identity.ErrDuplicateIdentity),
		errors.Is(err, api.ErrBadCmd):
		return CorruptLog
	case errors.As(err, &unsupported):
		return UnsupportedChainedStruct
	case errors.Is(err, api.ErrUnknownOpcode):
		return UnknownChunk
	case errors.Is(err, api.ErrUnsupported):
		return UnsupportedOnReplayDevice
	case errors.Is(err, identity.ErrUnknownIdentity):
		return UnknownIdentity
	case errors.Is(err, identity.ErrAlreadyWrapped):
		return AlreadyWrapped
	}
	return DriverFailure
}

// failure wraps err as an *Error located at ch. An err that already is an
// *Error keeps its kind and event, and only gains a location if it has
// none.
func failure(err error, ch chunk.Chunk) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Offset == 0 && e.EventID == ch.EventID {
			e.Offset, e.Opcode = ch.Offset, ch.Opcode
		}
		return e
	}
	out := &Error{Kind: classify(err), EventID: ch.EventID, Offset: ch.Offset, Opcode: ch.Opcode, Cause: err}
	var unsupported *patch.UnsupportedError
	if errors.As(err, &unsupported) {
		out.Struct = unsupported.Type
	}
	var corrupt *chunk.CorruptError
	if errors.As(err, &corrupt) {
		out.EventID, out.Offset = corrupt.EventID, corrupt.Offset
	}
	return out
}
