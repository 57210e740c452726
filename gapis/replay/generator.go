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
	"context"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/command_generator"
	"github.com/google/gfxreplay/gapis/chunk"
)

// logGenerator decodes the chunks of a log from a cursor up to and
// including a target event.
type logGenerator struct {
	api    *api.API
	log    *chunk.Log
	cursor chunk.Cursor
	target uint64
	// last is the chunk most recently read, decoded or not.
	last chunk.Chunk
	done bool
}

var _ command_generator.CommandGenerator = (*logGenerator)(nil)

func newLogGenerator(a *api.API, l *chunk.Log, from chunk.Cursor, target uint64) *logGenerator {
	return &logGenerator{api: a, log: l, cursor: from, target: target}
}

func (g *logGenerator) GetNextCommand(ctx context.Context) (api.CmdID, *api.Cmd, error) {
	for !g.done {
		if g.cursor.EventID > g.target {
			g.done = true
			break
		}
		at := g.cursor
		ch, err := g.log.ReadNext(&g.cursor)
		if errors.Is(err, chunk.ErrEndOfLog) {
			g.done = true
			break
		}
		if err != nil {
			g.last = chunk.Chunk{EventID: at.EventID, Offset: at.Offset}
			return api.CmdNoID, nil, err
		}
		g.last = ch
		if ch.Opcode.IsReservedUnknown() {
			log.D(ctx, "Skipping %v at event %d", ch.Opcode, ch.EventID)
			continue
		}
		cmd, _, err := g.api.Decode(ch)
		if err != nil {
			return api.CmdNoID, nil, err
		}
		return api.CmdID(ch.EventID), cmd, nil
	}
	return api.CmdNoID, nil, nil
}

func (g *logGenerator) IsEndOfCommands() bool { return g.done }
