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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/capture"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
)

// writeLog writes a one frame log that fills a buffer and clears and
// presents an image.
func writeLog(t *testing.T, ctx context.Context) string {
	session := capture.New(vulkan.API, endian.Little)
	real := identity.Handle(0x7000)
	obj := func(kind identity.Kind) identity.ID {
		real += 0x8
		id, err := session.NotifyCreate(real, kind)
		require.NoError(t, err)
		return id
	}
	inst, dev, queue := obj(identity.KindInstance), obj(identity.KindDevice), obj(identity.KindQueue)
	buf, img := obj(identity.KindBuffer), obj(identity.KindImage)
	pool, cb := obj(identity.KindCommandPool), obj(identity.KindCommandBuffer)
	for _, c := range []*api.Cmd{
		vulkan.CreateInstance(inst, "gapit"),
		vulkan.CreateDevice(dev, inst),
		vulkan.GetDeviceQueue(queue, dev, 0, 0),
		vulkan.CreateBuffer(buf, dev, 64),
		vulkan.CreateImage(img, dev, 4, 4),
		vulkan.CreateCommandPool(pool, dev),
		vulkan.AllocateCommandBuffer(cb, dev, pool),
		vulkan.BeginCommandBuffer(cb),
		vulkan.CmdFillBuffer(cb, buf, 0, vulkan.WholeSize, 3),
		vulkan.CmdClearColorImage(cb, img, [4]uint8{1, 2, 3, 4}),
		vulkan.EndCommandBuffer(cb),
		vulkan.QueueSubmit(queue, cb),
		vulkan.QueuePresent(queue, img),
	} {
		_, err := session.Record(ctx, c)
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "frame.gfxr")
	require.NoError(t, os.WriteFile(path, session.Bytes(), 0o644))
	return path
}

func run(t *testing.T, ctx context.Context, args ...string) string {
	cmd := newRootCommand(ctx)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs(append([]string{"--log-level", "Warning"}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestStructureYAML(t *testing.T) {
	ctx := log.Testing(t)
	path := writeLog(t, ctx)

	var v structureView
	require.NoError(t, yaml.Unmarshal([]byte(run(t, ctx, "--format", "yaml", "structure", path)), &v))
	assert.Equal(t, uint64(13), v.Events)
	assert.Equal(t, 1, v.Objects["Image"])
	assert.Equal(t, 1, v.Objects["CommandBuffer"])
	require.Len(t, v.Scopes, 1)
	assert.Equal(t, uint64(7), v.Scopes[0].Begin)
	assert.Equal(t, uint64(10), v.Scopes[0].End)
	require.Len(t, v.Frames, 1)
	assert.Empty(t, v.Requirements)
}

func TestVerbs(t *testing.T) {
	ctx := log.Testing(t)
	path := writeLog(t, ctx)

	assert.Contains(t, run(t, ctx, "describe", path), "vkCmdClearColorImage")
	assert.Contains(t, run(t, ctx, "replay", "--target", "9", path), "event 9")
	assert.Contains(t, run(t, ctx, "replay", path), "event 12")
	assert.Contains(t, run(t, ctx, "usage", "--from", "8", "--to", "9", path), "PartialWrite")
	assert.Contains(t, run(t, ctx, "attachments", path), "attachment 0:")
	assert.Contains(t, run(t, ctx, "devices", "--device", "other:debugMarker", path), "other")
	assert.Contains(t, run(t, ctx, "framegraph", "--out", "-", path), "digraph framegraph {")
	assert.Empty(t, run(t, ctx, "requirements", path))
}

func TestRepack(t *testing.T) {
	ctx := log.Testing(t)
	path := writeLog(t, ctx)
	packed := filepath.Join(t.TempDir(), "packed.gfxr")

	run(t, ctx, "repack", "--out", packed, path)
	data, err := os.ReadFile(packed)
	require.NoError(t, err)
	l, err := chunk.Open(data)
	require.NoError(t, err)
	assert.Equal(t, chunk.Zstd, l.Header().Compression)
	assert.Contains(t, run(t, ctx, "replay", packed), "event 12")

	run(t, ctx, "repack", "--compression", "none", packed)
	data, err = os.ReadFile(packed)
	require.NoError(t, err)
	original, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data, "repacking back restores the log")
}

func TestBadFlags(t *testing.T) {
	ctx := log.Testing(t)
	cmd := newRootCommand(ctx)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "json", "describe", "x"})
	assert.Error(t, cmd.Execute())

	cmd = newRootCommand(ctx)
	cmd.SetArgs([]string{"--log-style", "fancy", "describe", "x"})
	assert.Error(t, cmd.Execute())
}

func TestParseDevice(t *testing.T) {
	d := parseDevice("gpu: sparseBinding, debugMarker")
	assert.Equal(t, "gpu", d.Name)
	assert.True(t, d.Capabilities.Has(vulkan.CapSparseBinding))
	assert.True(t, d.Capabilities.Has(vulkan.CapDebugMarker))
	assert.Empty(t, parseDevice("bare").Capabilities)
}
