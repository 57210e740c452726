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

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
)

// TransformChain is the wrapper to run transforms
type transformChain struct {
	transforms []Transform
	out        Writer
	last       api.CmdID
}

func CreateTransformChain(out Writer, transforms []Transform) *transformChain {
	return &transformChain{
		transforms: transforms,
		out:        out,
		last:       api.CmdNoID,
	}
}

func (chain *transformChain) BeginChain(ctx context.Context) error {
	var err error
	cmds := make([]*api.Cmd, 0)

	for _, transform := range chain.transforms {
		cmds, err = transform.BeginTransform(ctx, cmds)
		if err != nil {
			return errors.Wrapf(err, "begin transform %v", transformName(transform))
		}
	}

	return chain.write(ctx, api.CmdNoID, cmds)
}

func (chain *transformChain) EndChain(ctx context.Context) error {
	var err error
	cmds := make([]*api.Cmd, 0)

	for _, transform := range chain.transforms {
		cmds, err = transform.EndTransform(ctx, cmds)
		if err != nil {
			return errors.Wrapf(err, "end transform %v", transformName(transform))
		}
	}

	id := api.CmdNoID
	if chain.last != api.CmdNoID {
		id = chain.last.Derived()
	}
	return chain.write(ctx, id, cmds)
}

func (chain *transformChain) TransformCommand(ctx context.Context, inputCmd *api.Cmd, id api.CmdID) error {
	var err error
	cmds := []*api.Cmd{inputCmd}
	chain.last = id

	for _, transform := range chain.transforms {
		cmds, err = transform.TransformCommand(ctx, id, cmds)
		if err != nil {
			return errors.Wrapf(err, "transform %v", transformName(transform))
		}
	}

	return chain.write(ctx, id, cmds)
}

func (chain *transformChain) write(ctx context.Context, id api.CmdID, cmds []*api.Cmd) error {
	err := mutateAndWrite(ctx, id, cmds, chain.out)
	for _, transform := range chain.transforms {
		transform.ClearTransformResources(ctx)
	}
	return err
}

func mutateAndWrite(ctx context.Context, id api.CmdID, cmds []*api.Cmd, out Writer) error {
	for i, cmd := range cmds {
		if err := out.MutateAndWrite(ctx, id, cmd); err != nil {
			log.D(ctx, "State mutation error in command [%v:%v]: %v", id, i, err)
			return err
		}
	}

	return nil
}
