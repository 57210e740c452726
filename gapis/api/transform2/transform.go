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

// Package transform2 runs decoded commands through a chain of transforms
// before they reach a Writer.
package transform2

import (
	"context"

	"github.com/google/gfxreplay/gapis/api"
)

// Transform is the interface that wraps the basic Transform functionality.
type Transform interface {
	// BeginTransform is called before transforming any command.
	BeginTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error)

	// EndTransform is called after all commands are transformed. Commands
	// it returns are written with an id derived from the last command.
	EndTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error)

	// TransformCommand takes a given command list.
	// It outputs a new set of commands after running the transformation.
	// Transform must not modify cmd(s) in any way.
	TransformCommand(ctx context.Context, id api.CmdID, inputCommands []*api.Cmd) ([]*api.Cmd, error)

	// ClearTransformResources releases anything held for the command that
	// was just written.
	ClearTransformResources(ctx context.Context)
}

// Writer is the interface which consumes the output of an Transformer.
// Every command written to it is applied to the replay target in order.
type Writer interface {
	// MutateAndWrite applies the command to the state behind this writer.
	MutateAndWrite(ctx context.Context, id api.CmdID, cmd *api.Cmd) error
}
