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

package server_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapir/client"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/capture"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/replay"
	"github.com/google/gfxreplay/gapis/server"
	"github.com/google/gfxreplay/gapis/service"
)

const token = "s3cret"

type rig struct {
	t      *testing.T
	ctx    context.Context
	svc    *service.Service
	lis    *bufconn.Listener
	cancel context.CancelFunc
	done   chan error
}

func newRig(t *testing.T, cfg server.Config) *rig {
	ctx, cancel := context.WithCancel(log.Testing(t))
	r := &rig{
		t:   t,
		ctx: ctx,
		svc: service.New(vulkan.API, func(context.Context) (api.Driver, error) {
			return vulkan.NewSoftDevice("soft"), nil
		}, replay.Options{}),
		lis:    bufconn.Listen(1 << 20),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	started := make(chan *grpc.Server, 1)
	go func() { r.done <- server.Serve(ctx, r.lis, r.svc, cfg, started) }()
	<-started
	t.Cleanup(r.stop)
	return r
}

func (r *rig) stop() {
	r.cancel()
	require.NoError(r.t, <-r.done)
}

func (r *rig) connect(authToken string) (*client.Client, error) {
	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return r.lis.DialContext(ctx)
	})
	return client.Connect(r.ctx, "passthrough:///bufnet", authToken, dialer)
}

func logBytes(t *testing.T, ctx context.Context) []byte {
	session := capture.New(vulkan.API, endian.Big)
	real := identity.Handle(0x6000)
	obj := func(kind identity.Kind) identity.ID {
		real += 0x8
		id, err := session.NotifyCreate(real, kind)
		require.NoError(t, err)
		return id
	}
	inst, dev, queue := obj(identity.KindInstance), obj(identity.KindDevice), obj(identity.KindQueue)
	buf, pool, cb := obj(identity.KindBuffer), obj(identity.KindCommandPool), obj(identity.KindCommandBuffer)
	for _, c := range []*api.Cmd{
		vulkan.CreateInstance(inst, "server"),
		vulkan.CreateDevice(dev, inst),
		vulkan.GetDeviceQueue(queue, dev, 0, 0),
		vulkan.CreateBuffer(buf, dev, 32),
		vulkan.CreateCommandPool(pool, dev),
		vulkan.AllocateCommandBuffer(cb, dev, pool),
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdUpdateBuffer(cb, buf, 0, []byte{1, 2, 3, 4}),
		vulkan.EndCommandBuffer(cb),
		vulkan.QueueSubmit(queue, cb),
		vulkan.QueuePresent(queue),
	} {
		_, err := session.Record(ctx, c)
		require.NoError(t, err)
	}
	return session.Bytes()
}

func TestRemoteReplay(t *testing.T) {
	r := newRig(t, server.Config{AuthToken: token, MaxConnections: 4})
	c, err := r.connect(token)
	require.NoError(t, err)
	defer c.Close()
	ctx := r.ctx
	data := logBytes(t, ctx)

	h, err := c.OpenLog(ctx, data)
	require.NoError(t, err)

	_, err = c.RunActiveFullPass(ctx, h)
	assert.Equal(t, replay.ErrNotStructured, err)

	summary, err := c.RunStructuredPass(ctx, h)
	require.NoError(t, err)
	e, err := r.svc.Engine(h)
	require.NoError(t, err)
	want := service.Summarize(e.Structure())
	assert.Equal(t, uint64(11), summary.Events)
	assert.Equal(t, want.Checkpoints, summary.Checkpoints)
	assert.Equal(t, want.Objects, summary.Objects)
	assert.Equal(t, 1, summary.Objects["CommandBuffer"])
	require.Len(t, summary.Scopes, 1)
	assert.Equal(t, want.Scopes[0].Scope, summary.Scopes[0].Scope)
	assert.Equal(t, want.Scopes[0].Usage, summary.Scopes[0].Usage)
	assert.Len(t, summary.InitialState, len(want.InitialState))

	cursor, err := c.RunActivePass(ctx, h, 7)
	require.NoError(t, err)
	assert.Equal(t, replay.Cursor{EventID: 7, Offset: cursor.Offset, Mode: replay.ActiveToTarget}, cursor)
	assert.NotZero(t, cursor.Offset)

	cursor, err = c.RunActiveFullPass(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cursor.EventID)
	assert.Equal(t, replay.ActiveFull, cursor.Mode)

	usage, err := c.GetResourceUsage(ctx, h, 0, 10)
	require.NoError(t, err)
	local, err := r.svc.GetResourceUsage(ctx, h, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, local, usage)

	reqs, err := c.Requirements(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	_, err = c.RunActivePass(ctx, h, 11)
	assert.Equal(t, codes.OutOfRange, status.Code(err))

	require.NoError(t, c.CloseLog(ctx, h))
	err = c.CloseLog(ctx, h)
	assert.True(t, errors.Is(err, service.ErrUnknownLog))
}

func TestRemoteOpenRejectsGarbage(t *testing.T) {
	r := newRig(t, server.Config{})
	c, err := r.connect("")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.OpenLog(r.ctx, bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Empty(t, r.svc.Logs())
}

func TestAuthToken(t *testing.T) {
	r := newRig(t, server.Config{AuthToken: token})
	_, err := r.connect("wrong")
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	c, err := r.connect(token)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Error(t, c.Ping(r.ctx))
}
