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

package replay

import (
	"context"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
)

// commandSplitter is a transform that ends, at the end of a pass, every
// recording scope still open at the target. The dispatcher executes the
// truncated scope as soon as it is ended, so the commands recorded up to
// the target take effect.
type commandSplitter struct {
	endOp chunk.Opcode
	// pendingScopes returns the scopes still recording, in opening order.
	pendingScopes func() []identity.ID
}

func newCommandSplitter(a *api.API, pending func() []identity.ID) *commandSplitter {
	s := &commandSplitter{pendingScopes: pending}
	for _, op := range a.Ops() {
		if op.Class == api.ScopeEnd {
			s.endOp = op.Opcode
			break
		}
	}
	return s
}

func (splitTransform *commandSplitter) Name() string { return "command_splitter" }

func (splitTransform *commandSplitter) BeginTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (splitTransform *commandSplitter) TransformCommand(ctx context.Context, id api.CmdID, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (splitTransform *commandSplitter) EndTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	if splitTransform.endOp == chunk.OpInvalid {
		return inputCommands, nil
	}
	for _, scope := range splitTransform.pendingScopes() {
		log.D(ctx, "Splitting %v at the end of the pass", scope)
		inputCommands = append(inputCommands, &api.Cmd{Opcode: splitTransform.endOp, Primary: []identity.ID{scope}})
	}
	return inputCommands, nil
}

func (splitTransform *commandSplitter) ClearTransformResources(ctx context.Context) {}
