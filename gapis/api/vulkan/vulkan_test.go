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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

// harness issues commands straight to a soft device, resolving and patching
// them the way replay does.
type harness struct {
	t       *testing.T
	ctx     context.Context
	dev     *vulkan.SoftDevice
	capture *identity.Table
	replay  *identity.Table
	scopes  map[identity.ID][]*api.Call
	fake    identity.Handle
}

func newHarness(t *testing.T, caps ...api.Capability) *harness {
	return &harness{
		t:       t,
		ctx:     log.Testing(t),
		dev:     vulkan.NewSoftDevice("soft", caps...),
		capture: identity.NewTable(0x42),
		replay:  identity.NewTable(0x42),
		scopes:  map[identity.ID][]*api.Call{},
		fake:    0x100,
	}
}

func (h *harness) obj(kind identity.Kind) identity.ID {
	h.fake++
	id, err := h.capture.Assign(h.fake, kind)
	require.NoError(h.t, err)
	return id
}

func (h *harness) do(cmd *api.Cmd) error {
	info, ok := vulkan.API.Op(cmd.Opcode)
	require.True(h.t, ok)
	c := &api.Call{EventID: 1, Info: info}
	for i, id := range cmd.Primary {
		if (i == 0 && info.Class == api.Create) || id.IsNull() {
			c.Primary = append(c.Primary, 0)
			continue
		}
		real, err := h.replay.Resolve(id)
		if err != nil {
			return err
		}
		c.Primary = append(c.Primary, real)
	}
	if cmd.Params != nil {
		p, err := vulkan.Schema.Patch(cmd.Params, h.replay)
		if err != nil {
			return err
		}
		c.Params = p
	}
	switch info.Class {
	case api.Create:
		real, err := h.dev.Call(h.ctx, c)
		if err != nil {
			return err
		}
		if err := h.replay.Declare(cmd.Primary[0], info.Kind); err != nil {
			return err
		}
		return h.replay.Rebind(cmd.Primary[0], real)
	case api.Destroy:
		if err := h.dev.Destroy(h.ctx, c); err != nil {
			return err
		}
		h.replay.Release(cmd.Primary[0])
		return nil
	case api.Scoped:
		h.scopes[cmd.Primary[0]] = append(h.scopes[cmd.Primary[0]], c)
		return nil
	case api.ScopeEnd:
		cmds := h.scopes[cmd.Primary[0]]
		delete(h.scopes, cmd.Primary[0])
		return h.dev.Execute(h.ctx, c.Primary[0], cmds)
	default:
		_, err := h.dev.Call(h.ctx, c)
		return err
	}
}

func (h *harness) run(cmds ...*api.Cmd) {
	for _, c := range cmds {
		require.NoError(h.t, h.do(c), "%v", vulkan.API.Format(c))
	}
}

func (h *harness) real(id identity.ID) identity.Handle {
	r, err := h.replay.Resolve(id)
	require.NoError(h.t, err)
	return r
}

// basics creates an instance, a device with the features and a queue.
func (h *harness) basics(features ...api.Capability) (dev, queue identity.ID) {
	inst := h.obj(identity.KindInstance)
	dev, queue = h.obj(identity.KindDevice), h.obj(identity.KindQueue)
	h.run(
		vulkan.CreateInstance(inst, "test"),
		vulkan.CreateDevice(dev, inst, features...),
		vulkan.GetDeviceQueue(queue, dev, 0, 0),
	)
	return dev, queue
}

func TestCommandRoundTrip(t *testing.T) {
	ctx := log.Testing(t)
	ids := identity.NewTable(9)
	id := func(k identity.Kind) identity.ID {
		v, err := ids.Assign(identity.Handle(ids.Len()+1), k)
		require.NoError(t, err)
		return v
	}
	dev, cb, src, dst, mem := id(identity.KindDevice), id(identity.KindCommandBuffer), id(identity.KindBuffer), id(identity.KindBuffer), id(identity.KindDeviceMemory)
	cmds := []*api.Cmd{
		vulkan.AllocateMemory(mem, dev, 256, dst),
		vulkan.CmdCopyBuffer(cb, src, dst, vulkan.BufferCopy{SrcOffset: 4, DstOffset: 8, Size: 12}, vulkan.BufferCopy{Size: 4}),
		vulkan.CmdUpdateBufferAddress(cb, dst, 16, []byte{1, 2, 3}),
		vulkan.EndCommandBuffer(cb),
		vulkan.Destroy(vulkan.OpDestroyBuffer, src, dev),
	}
	for _, order := range []endian.ByteOrder{endian.Little, endian.Big} {
		l := chunk.New([16]byte{1}, order)
		for _, c := range cmds {
			_, err := vulkan.API.Write(l, c)
			require.NoError(t, err)
		}
		in, err := chunk.Open(l.Bytes())
		require.NoError(t, err)
		cur := chunk.Cursor{}
		for i, want := range cmds {
			ch, err := in.ReadNext(&cur)
			require.NoError(t, err)
			got, info, err := vulkan.API.Decode(ch)
			require.NoError(t, err)
			assert.Equal(t, want.Opcode, info.Opcode)
			assert.Equal(t, vulkan.API.Format(want), vulkan.API.Format(got), "command %d", i)
		}
	}
	log.D(ctx, "Round tripped %d commands", len(cmds))
}

func TestAccesses(t *testing.T) {
	ids := identity.NewTable(9)
	id := func(k identity.Kind) identity.ID {
		v, err := ids.Assign(identity.Handle(ids.Len()+1), k)
		require.NoError(t, err)
		return v
	}
	cb, src, dst := id(identity.KindCommandBuffer), id(identity.KindBuffer), id(identity.KindBuffer)
	got := map[identity.ID]reference.Access{}
	vulkan.API.Accesses(vulkan.CmdCopyBuffer(cb, src, dst, vulkan.BufferCopy{Size: 4}), func(i identity.ID, a reference.Access) {
		got[i] = got[i].Merge(a)
	})
	assert.Equal(t, map[identity.ID]reference.Access{
		cb:  reference.Barrier,
		src: reference.Read,
		dst: reference.PartialWrite,
	}, got)
}

func TestOpTable(t *testing.T) {
	assert.Equal(t, vulkan.API, api.Find("Vulkan"))
	for _, op := range vulkan.API.Ops() {
		switch op.Class {
		case api.Create, api.Destroy:
			assert.NotEqual(t, identity.KindUnknown, op.Kind, op.Name)
		}
		if op.Skippable {
			assert.NotEmpty(t, op.Requires, "%v is skippable without requiring anything", op.Name)
		}
	}
	info, ok := vulkan.API.OpByName("vkQueueBindSparse")
	require.True(t, ok)
	assert.Equal(t, []api.Capability{vulkan.CapSparseBinding}, info.Requires)
}

func TestSoftDeviceHandlesDifferFromCapture(t *testing.T) {
	h := newHarness(t)
	dev, _ := h.basics()
	assert.NotEqual(t, identity.Handle(0x102), h.real(dev))
	assert.Equal(t, 3, h.dev.Live())

	first := h.real(dev)
	require.NoError(t, h.dev.Reset(h.ctx))
	assert.Equal(t, 0, h.dev.Live())
	h.replay.Reset()
	h.basics()
	for _, e := range h.replay.Entries() {
		if e.Bound {
			assert.Greater(t, uint64(e.Real), uint64(first), "handles are not reused after a reset")
		}
	}
}

func TestSoftDeviceBuffers(t *testing.T) {
	h := newHarness(t)
	dev, queue := h.basics()
	buf, mem, src := h.obj(identity.KindBuffer), h.obj(identity.KindDeviceMemory), h.obj(identity.KindBuffer)
	pool, cb := h.obj(identity.KindCommandPool), h.obj(identity.KindCommandBuffer)
	h.run(
		vulkan.CreateBuffer(buf, dev, 16),
		vulkan.AllocateMemory(mem, dev, 32, buf),
		vulkan.BindBufferMemory(dev, buf, mem, 16),
		vulkan.WriteMappedMemory(dev, mem, 16, []byte{1, 0, 0, 0, 2, 0, 0, 0}),
		vulkan.CreateBuffer(src, dev, 8),
		vulkan.CreateCommandPool(pool, dev),
		vulkan.AllocateCommandBuffer(cb, dev, pool),
	)
	words, err := h.dev.Words(h.real(buf), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 0, 0}, words, "the buffer reads through its memory")

	h.run(
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdFillBuffer(cb, buf, 8, vulkan.WholeSize, 7),
		vulkan.CmdUpdateBuffer(cb, src, 0, []byte{9, 0, 0, 0, 8, 0, 0, 0}),
		vulkan.CmdCopyBuffer(cb, src, buf, vulkan.BufferCopy{SrcOffset: 4, DstOffset: 4, Size: 4}),
		vulkan.EndCommandBuffer(cb),
	)
	words, err = h.dev.Words(h.real(buf), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 0, 0}, words, "recorded commands wait for a submit")

	h.run(vulkan.QueueSubmit(queue, cb))
	words, err = h.dev.Words(h.real(buf), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 8, 7, 7}, words)

	h.run(vulkan.QueueSubmit(queue, cb))
	words, err = h.dev.Words(h.real(buf), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 8, 7, 7}, words, "resubmission is idempotent here")

	contents, err := h.dev.Contents(h.real(mem))
	require.NoError(t, err)
	assert.Len(t, contents, 32)
	assert.Equal(t, byte(8), contents[20])

	h.run(
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdFillBuffer(cb, buf, 8, 16, 7),
		vulkan.EndCommandBuffer(cb),
	)
	err = h.do(vulkan.QueueSubmit(queue, cb))
	assert.True(t, errors.Is(err, vulkan.ErrOutOfBounds))
}

func TestSoftDeviceDigest(t *testing.T) {
	a, b := newHarness(t, vulkan.CapDebugMarker), newHarness(t, vulkan.CapDebugMarker)
	require.NoError(t, b.dev.Reset(b.ctx))
	var bufs [2]identity.ID
	for i, h := range []*harness{a, b} {
		dev, _ := h.basics()
		bufs[i] = h.obj(identity.KindBuffer)
		h.run(
			vulkan.CreateBuffer(bufs[i], dev, 8),
			vulkan.SetObjectName(dev, bufs[i], "buf"),
		)
	}
	da, err := a.dev.Digest(a.real(bufs[0]))
	require.NoError(t, err)
	db, err := b.dev.Digest(b.real(bufs[1]))
	require.NoError(t, err)
	assert.Equal(t, da, db)

	name, err := a.dev.Name(a.real(bufs[0]))
	require.NoError(t, err)
	assert.Equal(t, "buf", name)

	a.run(vulkan.SetObjectName(identity.Null, bufs[0], "renamed"))
	changed, err := a.dev.Digest(a.real(bufs[0]))
	require.NoError(t, err)
	assert.NotEqual(t, da, changed)
}

func TestSoftDeviceCapabilities(t *testing.T) {
	h := newHarness(t, vulkan.CapTimelineSemaphore)
	inst, dev := h.obj(identity.KindInstance), h.obj(identity.KindDevice)
	h.run(vulkan.CreateInstance(inst, "caps"))

	err := h.do(vulkan.CreateDevice(dev, inst, vulkan.CapSparseBinding))
	assert.True(t, errors.Is(err, api.ErrUnsupported))
	h.run(vulkan.CreateDevice(dev, inst, vulkan.CapTimelineSemaphore))

	buf, mem := h.obj(identity.KindBuffer), h.obj(identity.KindDeviceMemory)
	h.run(vulkan.CreateBuffer(buf, dev, 8), vulkan.AllocateMemory(mem, dev, 8, identity.Null))
	err = h.do(vulkan.QueueBindSparse(identity.Null, buf, mem, 0, 4, 0))
	assert.True(t, errors.Is(err, api.ErrUnsupported))
	err = h.do(vulkan.SetObjectName(dev, buf, "x"))
	assert.True(t, errors.Is(err, api.ErrUnsupported))
}

func TestSoftDeviceTimelineSemaphore(t *testing.T) {
	h := newHarness(t, vulkan.CapTimelineSemaphore)
	dev, queue := h.basics(vulkan.CapTimelineSemaphore)
	sem, bin := h.obj(identity.KindSemaphore), h.obj(identity.KindSemaphore)
	h.run(
		vulkan.CreateSemaphore(sem, dev, true, 3),
		vulkan.CreateSemaphore(bin, dev, false, 0),
	)
	v, err := h.dev.SemaphoreValue(h.real(sem))
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)

	h.run(
		vulkan.SignalSemaphore(dev, sem, 5),
		vulkan.QueueSubmitTimeline(queue, nil, []identity.ID{sem, bin}, []uint64{9, 0}),
	)
	v, err = h.dev.SemaphoreValue(h.real(sem))
	require.NoError(t, err)
	assert.EqualValues(t, 9, v)
	v, err = h.dev.SemaphoreValue(h.real(bin))
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	assert.Error(t, h.do(vulkan.SignalSemaphore(dev, sem, 9)), "timeline values only increase")

	other := newHarness(t)
	odev, _ := other.basics()
	err = other.do(vulkan.CreateSemaphore(other.obj(identity.KindSemaphore), odev, true, 0))
	assert.True(t, errors.Is(err, api.ErrUnsupported))
}

func TestSoftDeviceImagesAndDescriptors(t *testing.T) {
	h := newHarness(t, vulkan.CapBufferDeviceAddress)
	dev, queue := h.basics()
	img, view, fb := h.obj(identity.KindImage), h.obj(identity.KindImageView), h.obj(identity.KindFramebuffer)
	buf, dpool, layout, set := h.obj(identity.KindBuffer), h.obj(identity.KindDescriptorPool), h.obj(identity.KindDescriptorSetLayout), h.obj(identity.KindDescriptorSet)
	pool, cb := h.obj(identity.KindCommandPool), h.obj(identity.KindCommandBuffer)
	h.run(
		vulkan.CreateImage(img, dev, 2, 2),
		vulkan.CreateImageView(view, dev, img),
		vulkan.CreateFramebuffer(fb, dev, 2, 2, view),
		vulkan.CreateBuffer(buf, dev, 16),
		vulkan.CreateDescriptorPool(dpool, dev, 4),
		vulkan.CreateDescriptorSetLayout(layout, dev, 0, 1),
		vulkan.AllocateDescriptorSet(set, dev, dpool, layout),
		vulkan.UpdateDescriptorSet(dev, set, 0, buf, 0, 16),
		vulkan.CreateCommandPool(pool, dev),
		vulkan.AllocateCommandBuffer(cb, dev, pool),
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdClearColorImage(cb, img, [4]uint8{1, 2, 3, 4}),
		vulkan.CmdPipelineBarrier(cb, []identity.ID{buf}, []identity.ID{img}),
		vulkan.CmdUpdateBufferAddress(cb, buf, 4, []byte{5, 0, 0, 0}),
		vulkan.EndCommandBuffer(cb),
		vulkan.QueueSubmit(queue, cb),
		vulkan.QueuePresent(queue, img),
	)
	texels, err := h.dev.Contents(h.real(img))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4}, texels)
	words, err := h.dev.Words(h.real(buf), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 5}, words)
	assert.Equal(t, 1, h.dev.Frames())

	h.run(
		vulkan.Destroy(vulkan.OpDestroyFramebuffer, fb, dev),
		vulkan.Destroy(vulkan.OpDestroyImageView, view, dev),
	)
	_, err = h.replay.Resolve(view)
	assert.True(t, errors.Is(err, identity.ErrUnknownIdentity))
	err = h.do(vulkan.Destroy(vulkan.OpDestroyImage, buf, dev))
	assert.True(t, errors.Is(err, vulkan.ErrInvalidHandle), "destroying a buffer as an image")
}

func TestGetReplayPriority(t *testing.T) {
	ctx := log.Testing(t)
	full := api.Device{Name: "full", Capabilities: api.NewCapabilities(vulkan.CapSparseBinding, vulkan.CapDebugMarker)}
	bare := api.Device{Name: "bare", Capabilities: api.NewCapabilities()}
	reqs := []api.Requirement{
		{Capability: vulkan.CapDebugMarker, FirstEvent: 3, Skippable: true},
	}
	assert.EqualValues(t, 1, vulkan.GetReplayPriority(ctx, full, reqs))
	assert.EqualValues(t, 2, vulkan.GetReplayPriority(ctx, bare, reqs))
	reqs = append(reqs, api.Requirement{Capability: vulkan.CapSparseBinding, FirstEvent: 7})
	assert.EqualValues(t, 1, vulkan.GetReplayPriority(ctx, full, reqs))
	assert.EqualValues(t, 0, vulkan.GetReplayPriority(ctx, bare, reqs))
	assert.EqualValues(t, 1, vulkan.GetReplayPriority(ctx, bare, nil))
}
