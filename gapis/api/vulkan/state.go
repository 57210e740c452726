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

package vulkan

import (
	"fmt"

	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/identity"
)

// LastSubmissionType is the kind of the last operation that made images
// visible.
type LastSubmissionType uint8

const (
	LastSubmissionNone LastSubmissionType = iota
	LastSubmissionSubmit
	LastSubmissionPresent
)

// ImageInfo is the creation info of an image.
type ImageInfo struct {
	Width, Height uint32
	Format        uint32
}

// AttachmentInfo describes one attachment visible after an event.
type AttachmentInfo struct {
	Image identity.ID
	ImageInfo
	Index uint32
	// CanResize is false for presented images.
	CanResize bool
}

// State is the logical state of a log needed to answer attachment queries.
// It is built by mutating it with every decoded command in order.
type State struct {
	images         map[identity.ID]ImageInfo
	views          map[identity.ID]identity.ID
	cleared        map[identity.ID][]identity.ID
	lastSubmission LastSubmissionType
	lastImages     []identity.ID
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		images:  map[identity.ID]ImageInfo{},
		views:   map[identity.ID]identity.ID{},
		cleared: map[identity.ID][]identity.ID{},
	}
}

// Mutate applies cmd to the state.
func (st *State) Mutate(cmd *api.Cmd) {
	switch cmd.Opcode {
	case OpCreateImage:
		st.images[cmd.Primary[0]] = ImageInfo{
			Width:  uint32(Schema.Get(cmd.Params, "width").U),
			Height: uint32(Schema.Get(cmd.Params, "height").U),
			Format: uint32(Schema.Get(cmd.Params, "format").U),
		}
	case OpCreateImageView:
		st.views[cmd.Primary[0]] = Schema.Get(cmd.Params, "image").ID
	case OpDestroyImage:
		delete(st.images, cmd.Primary[0])
	case OpDestroyImageView:
		delete(st.views, cmd.Primary[0])
	case OpBeginCommandBuffer:
		delete(st.cleared, cmd.Primary[0])
	case OpCmdClearColorImage:
		cb, img := cmd.Primary[0], Schema.Get(cmd.Params, "image").ID
		for _, c := range st.cleared[cb] {
			if c == img {
				return
			}
		}
		st.cleared[cb] = append(st.cleared[cb], img)
	case OpQueueSubmit:
		var images []identity.ID
		for _, cb := range Schema.Get(cmd.Params, "commandBuffers").IDs {
			images = append(images, st.cleared[cb]...)
		}
		if len(images) > 0 {
			st.lastSubmission, st.lastImages = LastSubmissionSubmit, images
		}
	case OpQueuePresent:
		st.lastSubmission = LastSubmissionPresent
		st.lastImages = append([]identity.ID(nil), Schema.Get(cmd.Params, "images").IDs...)
	}
}

// Image returns the info of a live image.
func (st *State) Image(id identity.ID) (ImageInfo, bool) {
	info, ok := st.images[id]
	return info, ok
}

// ViewImage returns the image of a live image view.
func (st *State) ViewImage(view identity.ID) (identity.ID, bool) {
	img, ok := st.views[view]
	return img, ok
}

// LastSubmission returns how the current attachments were made visible.
func (st *State) LastSubmission() LastSubmissionType { return st.lastSubmission }

// FramebufferAttachmentCount returns the number of attachments visible.
func (st *State) FramebufferAttachmentCount() (uint32, error) {
	if st.lastSubmission == LastSubmissionNone {
		return 0, fmt.Errorf("No previous queue submission")
	}
	return uint32(len(st.lastImages)), nil
}

// FramebufferAttachmentInfo returns the attachment at index: an image
// cleared by the last submit that cleared any, or an image of the last
// present, whichever came last.
func (st *State) FramebufferAttachmentInfo(index uint32) (AttachmentInfo, error) {
	if st.lastSubmission == LastSubmissionSubmit {
		return st.submitAttachmentInfo(index)
	}
	return st.presentAttachmentInfo(index)
}

func (st *State) submitAttachmentInfo(index uint32) (AttachmentInfo, error) {
	if index >= uint32(len(st.lastImages)) {
		return AttachmentInfo{}, fmt.Errorf("Attachment %d is not bound", index)
	}
	img := st.lastImages[index]
	info, ok := st.images[img]
	if !ok {
		// The image was destroyed after the submit.
		return AttachmentInfo{}, fmt.Errorf("Attachment %d is not bound", index)
	}
	return AttachmentInfo{Image: img, ImageInfo: info, Index: index, CanResize: true}, nil
}

func (st *State) presentAttachmentInfo(index uint32) (AttachmentInfo, error) {
	if st.lastSubmission == LastSubmissionNone {
		return AttachmentInfo{}, fmt.Errorf("No previous queue submission")
	}
	if index >= uint32(len(st.lastImages)) {
		return AttachmentInfo{}, fmt.Errorf("Swapchain does not contain image %d", index)
	}
	img := st.lastImages[index]
	info, ok := st.images[img]
	if !ok {
		return AttachmentInfo{}, fmt.Errorf("Swapchain attachment %d does not exist", index)
	}
	return AttachmentInfo{Image: img, ImageInfo: info, Index: index}, nil
}
