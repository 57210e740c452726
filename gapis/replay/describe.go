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
	"io"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
)

// Describe writes one line per chunk of l: its event id, offset and the
// command it holds. Chunks of the reserved unknown range are listed with
// their size. Describe stops at the first chunk that cannot be decoded.
func Describe(w io.Writer, a *api.API, l *chunk.Log) error {
	c := chunk.Cursor{}
	for {
		ch, err := l.ReadNext(&c)
		if errors.Is(err, chunk.ErrEndOfLog) {
			return nil
		}
		if err != nil {
			return failure(err, chunk.Chunk{EventID: c.EventID, Offset: c.Offset})
		}
		var line string
		if ch.Opcode.IsReservedUnknown() {
			line = fmt.Sprintf("%v{%d bytes}", ch.Opcode, len(ch.Payload))
		} else {
			cmd, _, err := a.Decode(ch)
			if err != nil {
				return failure(err, ch)
			}
			line = a.Format(cmd)
		}
		if _, err := fmt.Fprintf(w, "%6d @%-8d %s\n", ch.EventID, ch.Offset, line); err != nil {
			return err
		}
	}
}
