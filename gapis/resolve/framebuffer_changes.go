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

// Package resolve derives per-event views of a log that need its logical
// state rather than a replay.
package resolve

import (
	"context"
	"errors"
	"sort"

	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/chunk"
)

// ErrFramebufferUnavailable is returned for attachments that are not bound
// after the requested event.
const ErrFramebufferUnavailable = fault.Const("Framebuffer unavailable")

// FramebufferAttachmentInfo is an attachment as it is from event After on.
type FramebufferAttachmentInfo struct {
	After uint64
	vulkan.AttachmentInfo
	Err error
}

func (f FramebufferAttachmentInfo) equal(o FramebufferAttachmentInfo) bool {
	if (f.Err == nil) != (o.Err == nil) {
		return false
	}
	if f.Err != nil && f.Err.Error() != o.Err.Error() {
		return false
	}
	return f.AttachmentInfo == o.AttachmentInfo
}

type framebufferAttachmentChanges struct {
	changes []FramebufferAttachmentInfo
}

func (c framebufferAttachmentChanges) last() FramebufferAttachmentInfo {
	if n := len(c.changes); n > 0 {
		return c.changes[n-1]
	}
	return FramebufferAttachmentInfo{Err: ErrFramebufferUnavailable}
}

func (c framebufferAttachmentChanges) after(event uint64) FramebufferAttachmentInfo {
	i := sort.Search(len(c.changes), func(i int) bool { return c.changes[i].After > event })
	if i == 0 {
		return FramebufferAttachmentInfo{Err: ErrFramebufferUnavailable}
	}
	return c.changes[i-1]
}

// AttachmentFramebufferChanges describes the list of attachment changes over
// the span of the entire log.
type AttachmentFramebufferChanges struct {
	attachments []framebufferAttachmentChanges
	events      uint64
}

// Count returns the highest number of attachments seen at any event.
func (c *AttachmentFramebufferChanges) Count() int { return len(c.attachments) }

// Events returns the number of events of the log.
func (c *AttachmentFramebufferChanges) Events() uint64 { return c.events }

// Changes returns every change of the attachment at index.
func (c *AttachmentFramebufferChanges) Changes(index int) []FramebufferAttachmentInfo {
	if index < 0 || index >= len(c.attachments) {
		return nil
	}
	return append([]FramebufferAttachmentInfo(nil), c.attachments[index].changes...)
}

// Get returns the attachment at index as it is after the given event.
func (c *AttachmentFramebufferChanges) Get(ctx context.Context, after uint64, index int) (FramebufferAttachmentInfo, error) {
	if index < 0 || index >= len(c.attachments) {
		return FramebufferAttachmentInfo{}, ErrFramebufferUnavailable
	}
	info := c.attachments[index].after(after)
	if info.Err != nil {
		log.W(ctx, "Framebuffer error after %d: %v", after, info.Err)
		return FramebufferAttachmentInfo{}, ErrFramebufferUnavailable
	}
	return info, nil
}

// FramebufferChanges returns the list of attachment changes over the span of
// the entire log. Chunks in the reserved unknown range are skipped.
func FramebufferChanges(ctx context.Context, l *chunk.Log) (*AttachmentFramebufferChanges, error) {
	ctx = log.Enter(ctx, "FramebufferChanges")
	st := vulkan.NewState()
	out := &AttachmentFramebufferChanges{}
	cursor := chunk.Cursor{}
	for {
		ch, err := l.ReadNext(&cursor)
		if errors.Is(err, chunk.ErrEndOfLog) {
			break
		}
		if err != nil {
			return nil, err
		}
		out.events = cursor.EventID
		if ch.Opcode >= chunk.OpUnknownBase {
			continue
		}
		cmd, _, err := vulkan.API.Decode(ch)
		if err != nil {
			return nil, log.Errf(ctx, err, "Decoding event %d", ch.EventID)
		}
		st.Mutate(cmd)

		count, _ := st.FramebufferAttachmentCount()
		for i := 0; i < len(out.attachments) || i < int(count); i++ {
			info := FramebufferAttachmentInfo{After: ch.EventID}
			if inf, err := st.FramebufferAttachmentInfo(uint32(i)); err == nil {
				info.AttachmentInfo = inf
			} else {
				info.Err = err
			}
			if i == len(out.attachments) {
				out.attachments = append(out.attachments, framebufferAttachmentChanges{})
			}
			if last := out.attachments[i].last(); !last.equal(info) {
				out.attachments[i].changes = append(out.attachments[i].changes, info)
			}
		}
	}
	log.D(ctx, "%d attachments over %d events", len(out.attachments), out.events)
	return out, nil
}
