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

package replay

import (
	"context"

	"github.com/google/gfxreplay/gapis/api"
)

// Summary describes the commands that reached the end of a transform chain.
type Summary struct {
	// Last is the last real command written, or api.CmdNoID.
	Last api.CmdID
	// Commands is the number of real commands written.
	Commands int
}

// Result is notified once a pass has written every command.
type Result func(ctx context.Context, s Summary)

// EndOfReplay is a transform that notifies its results at the end of the
// replay. It can be used to learn where a pass stopped once every command,
// including those appended by earlier end transforms, has been issued.
type EndOfReplay struct {
	res     []Result
	summary Summary
}

func NewEndOfReplay() *EndOfReplay {
	return &EndOfReplay{
		res:     []Result{},
		summary: Summary{Last: api.CmdNoID},
	}
}

// AddResult adds the given replay result listener to this transform.
func (endTransform *EndOfReplay) AddResult(r Result) {
	endTransform.res = append(endTransform.res, r)
}

func (endTransform *EndOfReplay) Name() string { return "end_of_replay" }

func (endTransform *EndOfReplay) BeginTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (endTransform *EndOfReplay) ClearTransformResources(ctx context.Context) {
	// Do nothing
}

func (endTransform *EndOfReplay) EndTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	for _, res := range endTransform.res {
		res(ctx, endTransform.summary)
	}
	return inputCommands, nil
}

func (endTransform *EndOfReplay) TransformCommand(ctx context.Context, id api.CmdID, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	if id.IsReal() && len(inputCommands) > 0 {
		endTransform.summary.Last = id
		endTransform.summary.Commands++
	}
	return inputCommands, nil
}
