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

package capture_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/capture"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

func TestNotifyCreateDestroy(t *testing.T) {
	s := capture.New(vulkan.API, endian.Little)
	id, err := s.NotifyCreate(0x1000, identity.KindBuffer)
	require.NoError(t, err)
	assert.Equal(t, identity.SessionPrefix(s.ID()), id.Hi)

	_, err = s.NotifyCreate(0x1000, identity.KindBuffer)
	assert.True(t, errors.Is(err, identity.ErrAlreadyWrapped))
	got, ok := s.Lookup(0x1000)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	s.NotifyDestroy(id)
	s.NotifyDestroy(id)
	_, ok = s.Lookup(0x1000)
	assert.False(t, ok)
}

func TestRecordOperationDiscardsOnError(t *testing.T) {
	s := capture.New(vulkan.API, endian.Little)
	_, err := s.RecordOperation(vulkan.OpQueuePresent, func(e *chunk.Encoder) error {
		e.U32(7)
		return errors.New("interrupted")
	})
	assert.Error(t, err)

	id, err := s.RecordOperation(chunk.OpUnknownBase+1, func(e *chunk.Encoder) error {
		e.U32(7)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, id, "the failed chunk was never committed")

	n, ok := s.Log().Count()
	assert.True(t, ok)
	assert.EqualValues(t, 1, n)
}

func TestRecordTracksUsage(t *testing.T) {
	ctx := log.Testing(t)
	s := capture.New(vulkan.API, endian.Little)
	inst, _ := s.NotifyCreate(0x10, identity.KindInstance)
	dev, _ := s.NotifyCreate(0x20, identity.KindDevice)
	mem, _ := s.NotifyCreate(0x30, identity.KindDeviceMemory)

	_, err := s.Record(ctx, vulkan.CreateInstance(inst, "app"))
	require.NoError(t, err)
	_, err = s.Record(ctx, vulkan.CreateDevice(dev, inst))
	require.NoError(t, err)
	_, err = s.Record(ctx, vulkan.AllocateMemory(mem, dev, 64, identity.Null))
	require.NoError(t, err)
	s.EndScope()

	assert.False(t, s.NeedsInitialState(mem))
	id, err := s.Record(ctx, vulkan.WriteMappedMemory(dev, mem, 0, []byte{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	usage := s.EndScope()
	assert.Equal(t, []reference.Usage{
		{ID: dev, EventID: 3, Access: reference.Barrier},
		{ID: mem, EventID: 3, Access: reference.PartialWrite},
	}, usage)
	assert.True(t, s.NeedsInitialState(mem))
	assert.Equal(t, []identity.ID{mem}, s.InitialState())
	assert.Empty(t, s.EndScope())
}

func TestConcurrentRecord(t *testing.T) {
	ctx := log.Testing(t)
	s := capture.New(vulkan.API, endian.Big)
	const goroutines, each = 8, 50

	wg := sync.WaitGroup{}
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				id, err := s.NotifyCreate(identity.Handle(0x1000*(g+1)+i), identity.KindInstance)
				if !assert.NoError(t, err) {
					return
				}
				_, err = s.Record(ctx, vulkan.CreateInstance(id, "concurrent"))
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	l, err := chunk.Open(s.Bytes())
	require.NoError(t, err)
	c := chunk.Cursor{}
	seen := map[identity.ID]bool{}
	for {
		ch, err := l.ReadNext(&c)
		if errors.Is(err, chunk.ErrEndOfLog) {
			break
		}
		require.NoError(t, err)
		cmd, _, err := vulkan.API.Decode(ch)
		require.NoError(t, err)
		assert.False(t, seen[cmd.Primary[0]], "each identity is created once")
		seen[cmd.Primary[0]] = true
	}
	assert.Len(t, seen, goroutines*each)
}
