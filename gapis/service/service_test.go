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

package service_test

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
	"github.com/google/gfxreplay/gapis/capture"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
	"github.com/google/gfxreplay/gapis/replay"
	"github.com/google/gfxreplay/gapis/service"
)

// fixture is a one frame log filling a buffer, naming it with a debug
// marker the soft device does not support.
type fixture struct {
	data           []byte
	queue, buf, cb identity.ID
}

func newFixture(t *testing.T, ctx context.Context) fixture {
	session := capture.New(vulkan.API, endian.Little)
	real := identity.Handle(0x5000)
	obj := func(kind identity.Kind) identity.ID {
		real += 0x8
		id, err := session.NotifyCreate(real, kind)
		require.NoError(t, err)
		return id
	}
	inst, dev := obj(identity.KindInstance), obj(identity.KindDevice)
	f := fixture{queue: obj(identity.KindQueue), buf: obj(identity.KindBuffer)}
	pool := obj(identity.KindCommandPool)
	f.cb = obj(identity.KindCommandBuffer)
	for _, c := range []*api.Cmd{
		vulkan.CreateInstance(inst, "service"),
		vulkan.CreateDevice(dev, inst),
		vulkan.GetDeviceQueue(f.queue, dev, 0, 0),
		vulkan.CreateBuffer(f.buf, dev, 64),
		vulkan.CreateCommandPool(pool, dev),
		vulkan.AllocateCommandBuffer(f.cb, dev, pool),
		vulkan.BeginCommandBuffer(f.cb),
		vulkan.CmdFillBuffer(f.cb, f.buf, 0, vulkan.WholeSize, 7),
		vulkan.EndCommandBuffer(f.cb),
		vulkan.QueueSubmit(f.queue, f.cb),
		vulkan.SetObjectName(dev, f.buf, "buf"),
		vulkan.QueuePresent(f.queue),
	} {
		_, err := session.Record(ctx, c)
		require.NoError(t, err)
	}
	f.data = session.Bytes()
	return f
}

func newService() *service.Service {
	return service.New(vulkan.API, func(context.Context) (api.Driver, error) {
		return vulkan.NewSoftDevice("soft"), nil
	}, replay.Options{})
}

func TestServicePasses(t *testing.T) {
	ctx := log.Testing(t)
	f := newFixture(t, ctx)
	svc := newService()

	h, err := svc.OpenLog(ctx, f.data)
	require.NoError(t, err)
	assert.True(t, h.IsValid())

	_, err = svc.RunActivePass(ctx, h, 3)
	assert.Equal(t, replay.ErrNotStructured, err)

	st, err := svc.RunStructuredPass(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), st.Events)
	require.Len(t, st.Scopes, 1)
	assert.Equal(t, f.cb, st.Scopes[0].Scope)

	c, err := svc.RunActivePass(ctx, h, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), c.EventID)
	assert.Equal(t, replay.ActiveToTarget, c.Mode)

	c, err = svc.RunActiveFullPass(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), c.EventID)

	usage, err := svc.GetResourceUsage(ctx, h, 6, 9)
	require.NoError(t, err)
	assert.Equal(t, []reference.Usage{
		{ID: f.cb, EventID: 6, Access: reference.Read},
		{ID: f.buf, EventID: 7, Access: reference.PartialWrite},
		{ID: f.queue, EventID: 9, Access: reference.Barrier},
	}, usage)
	_, err = svc.GetResourceUsage(ctx, h, 6, 12)
	assert.True(t, errors.Is(err, chunk.ErrEventOutOfRange))

	reqs, err := svc.Requirements(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []api.Requirement{{Capability: vulkan.CapDebugMarker, FirstEvent: 10, Skippable: true}}, reqs)

	require.NoError(t, svc.CloseLog(ctx, h))
	_, err = svc.RunStructuredPass(ctx, h)
	assert.True(t, errors.Is(err, service.ErrUnknownLog))
}

func TestServiceHandles(t *testing.T) {
	ctx := log.Testing(t)
	f := newFixture(t, ctx)
	svc := newService()

	a, err := svc.OpenLog(ctx, f.data)
	require.NoError(t, err)
	b, err := svc.OpenLog(ctx, f.data)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []service.LogHandle{a}, svc.Logs())

	// The second open holds the log open.
	require.NoError(t, svc.CloseLog(ctx, a))
	_, err = svc.RunStructuredPass(ctx, a)
	require.NoError(t, err)
	require.NoError(t, svc.CloseLog(ctx, a))
	assert.Empty(t, svc.Logs())
	assert.True(t, errors.Is(svc.CloseLog(ctx, a), service.ErrUnknownLog))

	_, err = svc.OpenLog(ctx, []byte("this is not a chunk log, only some plain text"))
	assert.True(t, errors.Is(err, chunk.ErrBadMagic))

	h, err := svc.OpenLog(ctx, f.data)
	require.NoError(t, err)
	svc.Shutdown(ctx)
	_, err = svc.Engine(h)
	assert.True(t, errors.Is(err, service.ErrUnknownLog))
}

func TestWireRejectsMalformedRequests(t *testing.T) {
	_, err := service.DecodeLog(service.EncodeCursor(replay.Cursor{}))
	assert.True(t, errors.Is(err, service.ErrBadMessage))

	h := service.LogHandle{1, 2, 3}
	_, _, err = service.DecodeActivePass(service.LogRequest(h))
	assert.True(t, errors.Is(err, service.ErrBadMessage))

	got, target, err := service.DecodeActivePass(service.ActivePassRequest(h, 41))
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Equal(t, uint64(41), target)
}
