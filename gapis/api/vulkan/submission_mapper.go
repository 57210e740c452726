// Copyright (C) 2020 Google Inc.
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
	"context"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/transform2"
	"github.com/google/gfxreplay/gapis/identity"
)

// Submission is one command buffer executed by a vkQueueSubmit.
type Submission struct {
	// Order is the position of the submit among the submits of the pass.
	Order         uint64
	EventID       api.CmdID
	Queue         identity.ID
	CommandBuffer identity.ID
	// Commands is the number of commands recorded into the command buffer
	// when it was submitted.
	Commands uint64
}

// SubmissionMapper is a transform recording which command buffers every
// vkQueueSubmit of a pass executes. Commands pass through unchanged.
type SubmissionMapper struct {
	submissions     []Submission
	submissionCount uint64
	commandBuffers  map[identity.ID]uint64
}

var _ transform2.Transform = (*SubmissionMapper)(nil)

// NewSubmissionMapper returns an empty submission mapper.
func NewSubmissionMapper() *SubmissionMapper {
	return &SubmissionMapper{commandBuffers: map[identity.ID]uint64{}}
}

func (t *SubmissionMapper) Name() string { return "submission_mapper" }

func (t *SubmissionMapper) BeginTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (t *SubmissionMapper) EndTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (t *SubmissionMapper) ClearTransformResources(ctx context.Context) {}

func (t *SubmissionMapper) TransformCommand(ctx context.Context, id api.CmdID, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	ctx = log.Enter(ctx, "Submission Mapper")
	for _, cmd := range inputCommands {
		switch cmd.Opcode {
		case OpBeginCommandBuffer:
			t.commandBuffers[cmd.Primary[0]] = 0
		case OpQueueSubmit:
			if !id.IsReal() {
				continue
			}
			for _, cb := range Schema.Get(cmd.Params, "commandBuffers").IDs {
				t.submissions = append(t.submissions, Submission{
					Order:         t.submissionCount,
					EventID:       id,
					Queue:         cmd.Primary[0],
					CommandBuffer: cb,
					Commands:      t.commandBuffers[cb],
				})
			}
			log.D(ctx, "Submit %d at %v", t.submissionCount, id)
			t.submissionCount++
		default:
			if info, ok := API.Op(cmd.Opcode); ok && info.Class == api.Scoped {
				t.commandBuffers[cmd.Primary[0]]++
			}
		}
	}
	return inputCommands, nil
}

// Submissions returns every submission seen so far, in execution order.
func (t *SubmissionMapper) Submissions() []Submission {
	return append([]Submission(nil), t.submissions...)
}
