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

package api

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
	"github.com/google/gfxreplay/gapis/reference"
)

const (
	ErrUnknownOpcode = fault.Const("Unknown opcode")
	ErrBadCmd        = fault.Const("Malformed command")
)

// maxPrimary is the largest number of primary identities a chunk can carry.
const maxPrimary = 255

// Cmd is a decoded command: an operation, the identities of the objects it
// primarily acts on and its parameter structure.
type Cmd struct {
	Opcode  chunk.Opcode
	Primary []identity.ID
	Params  *patch.Struct
}

// UnknownOpcodeError is returned when decoding a chunk whose opcode is not
// part of the api, or is in the reserved unknown range.
type UnknownOpcodeError struct {
	Opcode chunk.Opcode
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("%v %v", ErrUnknownOpcode, e.Opcode)
}

// Is makes errors.Is(err, ErrUnknownOpcode) true.
func (e *UnknownOpcodeError) Is(target error) bool { return target == ErrUnknownOpcode }

// Encode writes the chunk payload of c:
//
//	payload := count:u8 primary:id[count] params:struct?
func (a *API) Encode(e *chunk.Encoder, c *Cmd) error {
	info, ok := a.ops[c.Opcode]
	if !ok {
		return &UnknownOpcodeError{Opcode: c.Opcode}
	}
	if len(c.Primary) > maxPrimary {
		return errors.Wrapf(ErrBadCmd, "%v: %d primary identities", info.Name, len(c.Primary))
	}
	e.U8(uint8(len(c.Primary)))
	for _, id := range c.Primary {
		e.ID(id)
	}
	if info.Params != 0 {
		if c.Params == nil || c.Params.Type != info.Params {
			return errors.Wrapf(ErrBadCmd, "%v takes a %v", info.Name, a.schema.Name(info.Params))
		}
		a.schema.Encode(e, c.Params)
	} else if c.Params != nil {
		return errors.Wrapf(ErrBadCmd, "%v takes no parameters", info.Name)
	}
	return e.Error()
}

// Write encodes c as a new chunk of l and returns its event id.
func (a *API) Write(l *chunk.Log, c *Cmd) (CmdID, error) {
	w := l.BeginChunk(c.Opcode)
	if err := a.Encode(w.Encoder, c); err != nil {
		w.Discard()
		return CmdNoID, err
	}
	id, err := w.End()
	return CmdID(id), err
}

// Decode decodes the command held by ch. The whole payload must be
// consumed.
func (a *API) Decode(ch chunk.Chunk) (*Cmd, *OpInfo, error) {
	info, ok := a.ops[ch.Opcode]
	if !ok {
		return nil, nil, &UnknownOpcodeError{Opcode: ch.Opcode}
	}
	d := ch.Decoder()
	c := &Cmd{Opcode: ch.Opcode}
	n := int(d.U8())
	if uint64(n)*chunk.IDSize > d.Remaining() {
		d.Fail("%d primary identities exceed remaining %d bytes", n, d.Remaining())
	}
	if err := d.Error(); err != nil {
		return nil, info, err
	}
	if n > 0 {
		c.Primary = make([]identity.ID, n)
		for i := range c.Primary {
			c.Primary[i] = d.ID()
		}
	}
	if info.Params != 0 {
		p, err := a.schema.Decode(d)
		if err != nil {
			return nil, info, err
		}
		if p.Type != info.Params {
			d.Fail("%v takes a %v, got %v", info.Name, a.schema.Name(info.Params), a.schema.Name(p.Type))
		}
		c.Params = p
	}
	if err := d.Finish(); err != nil {
		return nil, info, err
	}
	return c, info, nil
}

// Accesses calls fn for every identity c touches: its primary identities
// with the operation's primary access, then every identity reachable from
// its parameters with the access of the field holding it.
func (a *API) Accesses(c *Cmd, fn func(identity.ID, reference.Access)) {
	info, ok := a.ops[c.Opcode]
	if !ok {
		return
	}
	for _, id := range c.Primary {
		if !id.IsNull() && info.Primary != reference.None {
			fn(id, info.Primary)
		}
	}
	if c.Params != nil {
		a.schema.Walk(c.Params, fn)
	}
}

// Format returns a single line description of c.
func (a *API) Format(c *Cmd) string {
	sb := &strings.Builder{}
	sb.WriteString(a.OpName(c.Opcode))
	sb.WriteString("(")
	for i, id := range c.Primary {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(id.String())
	}
	sb.WriteString(")")
	if c.Params != nil {
		sb.WriteString(" ")
		sb.WriteString(a.schema.Format(c.Params))
	}
	return sb.String()
}
