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

// Package command_generator provides the sources of commands fed to a
// transform chain.
package command_generator

import (
	"context"

	"github.com/google/gfxreplay/gapis/api"
)

// CommandGenerator produces the commands of a transform chain in order.
type CommandGenerator interface {
	// GetNextCommand returns the next command and its id. It returns a nil
	// command once the commands are exhausted.
	GetNextCommand(ctx context.Context) (api.CmdID, *api.Cmd, error)
	// IsEndOfCommands returns true once every command has been returned.
	IsEndOfCommands() bool
}

type linearCommandGenerator struct {
	commands []*api.Cmd
	index    int
}

// NewLinearCommandGenerator generates a command generator that
// takes a list of cmds and returns them in order when GetNextCommand
// is called. Commands are numbered from 0.
func NewLinearCommandGenerator(initialCommands []*api.Cmd, realCommands []*api.Cmd) CommandGenerator {
	return &linearCommandGenerator{
		commands: append(append([]*api.Cmd{}, initialCommands...), realCommands...),
		index:    0,
	}
}

func (generator *linearCommandGenerator) GetNextCommand(ctx context.Context) (api.CmdID, *api.Cmd, error) {
	if generator.index >= len(generator.commands) {
		return api.CmdNoID, nil, nil
	}

	currentCommand := generator.commands[generator.index]
	generator.index++
	return api.CmdID(generator.index - 1), currentCommand, nil
}

func (generator *linearCommandGenerator) IsEndOfCommands() bool {
	return generator.index >= len(generator.commands)
}
