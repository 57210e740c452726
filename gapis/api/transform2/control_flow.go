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

package transform2

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/command_generator"
	"github.com/google/gfxreplay/gapis/config"
)

// CancelledError is returned by TransformAll when its context is cancelled
// between two commands. Every command generated before has been written.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string { return "Transforms cancelled: " + e.Cause.Error() }
func (e *CancelledError) Unwrap() error { return e.Cause }

// ControlFlow pulls commands from a generator and pushes each through the
// transforms into the output writer.
type ControlFlow struct {
	transforms       []Transform
	commandGenerator command_generator.CommandGenerator
	tag              string
	api              *api.API
	out              Writer
	// LogDir is where transform logs are written when
	// config.LogTransformsToFile is set.
	LogDir string
}

func NewControlFlow(tag string, a *api.API, commandGenerator command_generator.CommandGenerator, out Writer) *ControlFlow {
	return &ControlFlow{
		transforms:       make([]Transform, 0),
		commandGenerator: commandGenerator,
		api:              a,
		out:              out,
		tag:              tag,
	}
}

func (cf *ControlFlow) AddTransform(transforms ...Transform) {
	cf.transforms = append(cf.transforms, transforms...)
}

func transformName(t Transform) string {
	if n, ok := t.(interface {
		Name() string
	}); ok {
		return n.Name()
	}
	return strings.Replace(fmt.Sprintf("%T", t), "*", "", -1)
}

func (cf *ControlFlow) withFileLogs(ctx context.Context) []Transform {
	newTransforms := make([]Transform, 0, 2*len(cf.transforms)+1)
	path := func(name string) string { return filepath.Join(cf.LogDir, fmt.Sprintf("%v_%v", cf.tag, name)) }
	if l, err := NewFileLog(ctx, path("0_original_cmds"), cf.api); err == nil {
		newTransforms = append(newTransforms, l)
	}
	for i, t := range cf.transforms {
		newTransforms = append(newTransforms, t)
		if l, err := NewFileLog(ctx, path(fmt.Sprintf("%v_cmds_after_%v", i+1, transformName(t))), cf.api); err == nil {
			newTransforms = append(newTransforms, l)
		}
	}
	return newTransforms
}

// TransformAll runs every command of the generator through the chain. Any
// error is fatal and stops the flow, including context errors returned by a
// transform or the writer. Cancelling ctx stops the flow between two
// commands with a *CancelledError.
func (cf *ControlFlow) TransformAll(ctx context.Context) error {
	transforms := cf.transforms
	if config.LogTransformsToFile {
		transforms = cf.withFileLogs(ctx)
	}

	chain := CreateTransformChain(cf.out, transforms)

	if err := chain.BeginChain(ctx); err != nil {
		log.W(ctx, "[%v] Error on beginning transformations: %v", cf.tag, err)
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return &CancelledError{Cause: err}
		}
		currentCommandID, currentCommand, err := cf.commandGenerator.GetNextCommand(ctx)
		if err != nil {
			return err
		}
		if currentCommand == nil {
			break
		}
		if config.DebugReplay {
			log.I(ctx, "[%v] Transforming... (%v:%v)", cf.tag, currentCommandID, cf.api.Format(currentCommand))
		}

		if err := chain.TransformCommand(ctx, currentCommand, currentCommandID); err != nil {
			log.D(ctx, "[%v] Replay error (%v:%v): %v", cf.tag, currentCommandID, cf.api.OpName(currentCommand.Opcode), err)
			return err
		}
	}

	if err := chain.EndChain(ctx); err != nil {
		log.W(ctx, "[%v] Error on ending transformations: %v", cf.tag, err)
		return err
	}

	return nil
}
