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

package vulkan_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/capture"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/framegraph"
	"github.com/google/gfxreplay/gapis/identity"
)

func TestGetFramegraph(t *testing.T) {
	ctx := log.Testing(t)
	session := capture.New(vulkan.API, endian.Little)
	real := identity.Handle(0x9000)
	obj := func(kind identity.Kind) identity.ID {
		real += 0x8
		id, err := session.NotifyCreate(real, kind)
		require.NoError(t, err)
		return id
	}
	inst, dev, queue := obj(identity.KindInstance), obj(identity.KindDevice), obj(identity.KindQueue)
	buf, dst, pool := obj(identity.KindBuffer), obj(identity.KindBuffer), obj(identity.KindCommandPool)
	fill, copier := obj(identity.KindCommandBuffer), obj(identity.KindCommandBuffer)

	var submits []api.CmdID
	for _, c := range []*api.Cmd{
		vulkan.CreateInstance(inst, "framegraph"),
		vulkan.CreateDevice(dev, inst),
		vulkan.GetDeviceQueue(queue, dev, 0, 0),
		vulkan.CreateBuffer(buf, dev, 32),
		vulkan.CreateBuffer(dst, dev, 32),
		vulkan.CreateCommandPool(pool, dev),
		vulkan.AllocateCommandBuffer(fill, dev, pool),
		vulkan.AllocateCommandBuffer(copier, dev, pool),
		vulkan.BeginCommandBuffer(fill),
		vulkan.CmdFillBuffer(fill, buf, 0, vulkan.WholeSize, 0x11111111),
		vulkan.EndCommandBuffer(fill),
		vulkan.BeginCommandBuffer(copier),
		vulkan.CmdCopyBuffer(copier, buf, dst, vulkan.BufferCopy{Size: 32}),
		vulkan.EndCommandBuffer(copier),
		vulkan.QueueSubmit(queue, fill),
		vulkan.QueueSubmit(queue, copier),
		vulkan.QueueSubmit(queue, fill),
		vulkan.QueuePresent(queue),
	} {
		id, err := session.Record(ctx, c)
		require.NoError(t, err)
		if c.Opcode == vulkan.OpQueueSubmit {
			submits = append(submits, id)
		}
	}
	l, err := chunk.Open(session.Bytes())
	require.NoError(t, err)

	fg, err := vulkan.GetFramegraph(ctx, l, vulkan.NewSoftDevice("soft"))
	require.NoError(t, err)
	require.Len(t, fg.Nodes, 3)
	for i, want := range []identity.ID{fill, copier, fill} {
		assert.Equal(t, want, fg.Nodes[i].Scope, "node %d", i)
		assert.Equal(t, uint64(submits[i]), fg.Nodes[i].Executed, "node %d", i)
	}
	assert.Equal(t, []identity.ID{buf}, fg.Nodes[1].Read)
	assert.Equal(t, []identity.ID{dst}, fg.Nodes[1].Write)
	assert.Equal(t, []*framegraph.Edge{
		{Origin: 0, Destination: 1},
		{Origin: 0, Destination: 2},
	}, fg.Edges)

	dot := &bytes.Buffer{}
	require.NoError(t, framegraph.WriteDOT(dot, fg))
	assert.Contains(t, dot.String(), "n0 -> n1;")
}

func TestSubmissionMapperCountsRecordedCommands(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx
	_, queue := h.basics()
	pool, cb, buf := h.obj(identity.KindCommandPool), h.obj(identity.KindCommandBuffer), h.obj(identity.KindBuffer)

	m := vulkan.NewSubmissionMapper()
	cmds := []*api.Cmd{
		vulkan.CreateCommandPool(pool, identity.Null),
		vulkan.AllocateCommandBuffer(cb, identity.Null, pool),
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdFillBuffer(cb, buf, 0, 16, 0),
		vulkan.CmdFillBuffer(cb, buf, 16, 16, 0),
		vulkan.EndCommandBuffer(cb),
		vulkan.QueueSubmit(queue, cb),
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdFillBuffer(cb, buf, 0, 16, 0),
		vulkan.EndCommandBuffer(cb),
		vulkan.QueueSubmit(queue, cb),
	}
	for i, c := range cmds {
		out, err := m.TransformCommand(ctx, api.CmdID(i), []*api.Cmd{c})
		require.NoError(t, err)
		assert.Equal(t, []*api.Cmd{c}, out)
	}
	// Commands injected by other transforms are not submissions of the log.
	_, err := m.TransformCommand(ctx, api.CmdNoID, []*api.Cmd{vulkan.QueueSubmit(queue, cb)})
	require.NoError(t, err)

	assert.Equal(t, []vulkan.Submission{
		{Order: 0, EventID: 6, Queue: queue, CommandBuffer: cb, Commands: 2},
		{Order: 1, EventID: 10, Queue: queue, CommandBuffer: cb, Commands: 1},
	}, m.Submissions())
}
