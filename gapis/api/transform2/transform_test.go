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

package transform2

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/command_generator"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
	"github.com/google/gfxreplay/gapis/reference"
)

var testAPI = api.New("test", patch.NewSchema("1.0.0"),
	api.OpInfo{Opcode: 1, Name: "begin", Class: api.ScopeBegin, Primary: reference.Barrier},
	api.OpInfo{Opcode: 2, Name: "op", Class: api.Scoped, Primary: reference.Barrier},
	api.OpInfo{Opcode: 3, Name: "end", Class: api.ScopeEnd, Primary: reference.Barrier},
)

var scope = identity.ID{Hi: 1, Lo: 1}

func cmd(op uint32) *api.Cmd {
	return &api.Cmd{Opcode: chunk.Opcode(op), Primary: []identity.ID{scope}}
}

type written struct {
	id api.CmdID
	op string
}

type recorder struct {
	out  []written
	fail api.CmdID
}

func (r *recorder) MutateAndWrite(ctx context.Context, id api.CmdID, c *api.Cmd) error {
	if id == r.fail {
		return errors.New("device lost")
	}
	r.out = append(r.out, written{id, testAPI.OpName(c.Opcode)})
	return nil
}

// dropOps drops every "op" command after the first and closes the scope at
// the end.
type dropOps struct {
	seen    int
	cleared int
}

func (t *dropOps) BeginTransform(ctx context.Context, in []*api.Cmd) ([]*api.Cmd, error) {
	return in, nil
}

func (t *dropOps) EndTransform(ctx context.Context, in []*api.Cmd) ([]*api.Cmd, error) {
	return append(in, cmd(3)), nil
}

func (t *dropOps) TransformCommand(ctx context.Context, id api.CmdID, in []*api.Cmd) ([]*api.Cmd, error) {
	out := in[:0:0]
	for _, c := range in {
		if testAPI.OpName(c.Opcode) == "op" {
			t.seen++
			if t.seen > 1 {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (t *dropOps) ClearTransformResources(ctx context.Context) { t.cleared++ }

func TestControlFlow(t *testing.T) {
	ctx := log.Testing(t)
	out := &recorder{fail: api.CmdNoID - 1}
	drop := &dropOps{}
	gen := command_generator.NewLinearCommandGenerator([]*api.Cmd{cmd(1)}, []*api.Cmd{cmd(2), cmd(2)})
	cf := NewControlFlow("test", testAPI, gen, out)
	cf.AddTransform(drop)

	require.NoError(t, cf.TransformAll(ctx))
	assert.True(t, gen.IsEndOfCommands())
	assert.Equal(t, []written{
		{0, "begin"},
		{1, "op"},
		{api.CmdID(2).Derived(), "end"},
	}, out.out)
	// Begin, three commands and end.
	assert.Equal(t, 5, drop.cleared)
}

func TestControlFlowWriteErrorIsFatal(t *testing.T) {
	ctx := log.Testing(t)
	out := &recorder{fail: 1}
	gen := command_generator.NewLinearCommandGenerator(nil, []*api.Cmd{cmd(1), cmd(2), cmd(3)})
	cf := NewControlFlow("test", testAPI, gen, out)

	err := cf.TransformAll(ctx)
	assert.EqualError(t, err, "device lost")
	assert.Equal(t, []written{{0, "begin"}}, out.out)
	assert.False(t, gen.IsEndOfCommands())
}

type failing struct{ dropOps }

func (failing) TransformCommand(context.Context, api.CmdID, []*api.Cmd) ([]*api.Cmd, error) {
	return nil, errors.New("bad command")
}

func TestControlFlowTransformErrorIsFatal(t *testing.T) {
	ctx := log.Testing(t)
	out := &recorder{fail: api.CmdNoID - 1}
	cf := NewControlFlow("test", testAPI, command_generator.NewLinearCommandGenerator(nil, []*api.Cmd{cmd(1)}), out)
	cf.AddTransform(&failing{})

	err := cf.TransformAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad command")
	assert.Contains(t, err.Error(), "transform2.failing")
	assert.Empty(t, out.out)
}

func TestControlFlowCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(log.Testing(t))
	out := &recorder{fail: api.CmdNoID - 1}
	cancel()
	cf := NewControlFlow("test", testAPI, command_generator.NewLinearCommandGenerator(nil, []*api.Cmd{cmd(1)}), out)
	err := cf.TransformAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	var cancelled *CancelledError
	assert.True(t, errors.As(err, &cancelled))
	assert.Empty(t, out.out)
}

// cancelWriter cancels the flow's context and fails the write with its error.
type cancelWriter struct{ cancel context.CancelFunc }

func (w cancelWriter) MutateAndWrite(ctx context.Context, id api.CmdID, c *api.Cmd) error {
	w.cancel()
	return ctx.Err()
}

func TestControlFlowWriterContextErrorIsNotCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(log.Testing(t))
	defer cancel()
	cf := NewControlFlow("test", testAPI, command_generator.NewLinearCommandGenerator(nil, []*api.Cmd{cmd(1)}), cancelWriter{cancel})
	err := cf.TransformAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	var cancelled *CancelledError
	assert.False(t, errors.As(err, &cancelled), "the write failed, the flow was not stopped between commands")
}

func TestFileLog(t *testing.T) {
	ctx := log.Testing(t)
	dir := t.TempDir()
	out := &recorder{fail: api.CmdNoID - 1}
	cf := NewControlFlow("replay", testAPI, command_generator.NewLinearCommandGenerator(nil, []*api.Cmd{cmd(1), cmd(2)}), out)
	cf.LogDir = dir
	cf.AddTransform(&dropOps{})
	cf.transforms = cf.withFileLogs(ctx)
	require.Len(t, cf.transforms, 3)

	require.NoError(t, cf.TransformAll(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "replay_0_original_cmds"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "0: begin("), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1: op("), lines[1])

	data, err = os.ReadFile(filepath.Join(dir, "replay_1_cmds_after_transform2.dropOps"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "end: end(")
}
