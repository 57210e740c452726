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

package chunk_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
)

var session = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

func appendChunk(t *testing.T, l *chunk.Log, op chunk.Opcode, f func(e *chunk.Encoder)) uint64 {
	w := l.BeginChunk(op)
	f(w.Encoder)
	id, err := w.End()
	require.NoError(t, err)
	return id
}

func TestWriteReadChunks(t *testing.T) {
	for _, order := range []endian.ByteOrder{endian.Little, endian.Big} {
		l := chunk.New(session, order)
		a := identity.ID{Hi: 1, Lo: 2}
		assert.Equal(t, uint64(0), appendChunk(t, l, 10, func(e *chunk.Encoder) {
			e.ID(a)
			e.U64(4096)
			e.Present(false)
		}))
		assert.Equal(t, uint64(1), appendChunk(t, l, 11, func(e *chunk.Encoder) {
			e.IDs([]identity.ID{a, {Hi: 1, Lo: 3}})
			e.Bytes([]byte{1, 2, 3})
			e.String("marker")
		}))

		reopened, err := chunk.Open(l.Bytes())
		require.NoError(t, err)
		assert.Equal(t, session, reopened.Session())
		assert.Equal(t, order, reopened.ByteOrder())
		count, ok := reopened.Count()
		assert.True(t, ok)
		assert.Equal(t, uint64(2), count)

		c := chunk.Cursor{}
		first, err := reopened.ReadNext(&c)
		require.NoError(t, err)
		assert.Equal(t, chunk.Opcode(10), first.Opcode)
		d := first.Decoder()
		assert.Equal(t, a, d.ID())
		assert.Equal(t, uint64(4096), d.U64())
		assert.False(t, d.Present())
		assert.NoError(t, d.Finish())

		second, err := reopened.ReadNext(&c)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), second.EventID)
		d = second.Decoder()
		assert.Len(t, d.IDs(), 2)
		assert.Equal(t, []byte{1, 2, 3}, d.Bytes())
		assert.Equal(t, "marker", d.String())
		assert.NoError(t, d.Finish())

		_, err = reopened.ReadNext(&c)
		assert.Equal(t, chunk.ErrEndOfLog, err)
		assert.Equal(t, reopened.Size(), c.Offset)
	}
}

func TestUnconsumedPayloadIsCorrupt(t *testing.T) {
	l := chunk.New(session, endian.Little)
	appendChunk(t, l, 5, func(e *chunk.Encoder) { e.U32(1); e.U32(2) })

	c := chunk.Cursor{}
	ch, err := l.ReadNext(&c)
	require.NoError(t, err)
	d := ch.Decoder()
	d.U32()
	err = d.Finish()
	assert.True(t, errors.Is(err, chunk.ErrCorruptChunk))

	d = ch.Decoder()
	d.U64()
	d.U8()
	assert.True(t, errors.Is(d.Finish(), chunk.ErrCorruptChunk), "over-read")
}

func TestCorruptBytes(t *testing.T) {
	l := chunk.New(session, endian.Little)
	appendChunk(t, l, 5, func(e *chunk.Encoder) { e.U64(7) })
	data := l.Bytes()

	for name, mutate := range map[string]func([]byte) []byte{
		"truncated payload": func(b []byte) []byte { return b[:len(b)-1] },
		"truncated header":  func(b []byte) []byte { return b[:chunk.HeaderSize+3] },
		"zero opcode": func(b []byte) []byte {
			copy(b[chunk.HeaderSize:], []byte{0, 0, 0, 0})
			return b
		},
		"length too long": func(b []byte) []byte {
			b[chunk.HeaderSize+4] = 0xff
			return b
		},
	} {
		l, err := chunk.Open(mutate(append([]byte{}, data...)))
		require.NoError(t, err, name)
		_, err = l.ReadNext(&chunk.Cursor{})
		var corrupt *chunk.CorruptError
		assert.True(t, errors.As(err, &corrupt), name)
		assert.True(t, errors.Is(err, chunk.ErrCorruptChunk), name)
	}
}

func TestOpenRejectsBadHeaders(t *testing.T) {
	_, err := chunk.Open([]byte("GFX"))
	assert.True(t, errors.Is(err, chunk.ErrCorruptChunk))

	data := chunk.New(session, endian.Little).Bytes()
	bad := append([]byte{}, data...)
	copy(bad, "RDOC")
	_, err = chunk.Open(bad)
	assert.True(t, errors.Is(err, chunk.ErrBadMagic))

	future := append([]byte{}, data...)
	future[5] = 2 // major version, little-endian low byte
	_, err = chunk.Open(future)
	assert.True(t, errors.Is(err, chunk.ErrUnsupportedVersion))
}

func TestFailedEncodeIsDiscarded(t *testing.T) {
	l := chunk.New(session, endian.Little)
	w := l.BeginChunk(3)
	w.U32(1)
	w.SetError(errors.New("bad argument"))
	_, err := w.End()
	assert.Error(t, err)
	_, err = w.End()
	assert.Equal(t, chunk.ErrWriterClosed, err)

	_, err = l.BeginChunk(chunk.OpInvalid).End()
	assert.Error(t, err)

	l.BeginChunk(4).Discard()
	assert.Equal(t, uint64(0), l.Size())
}

func TestConcurrentWriters(t *testing.T) {
	l := chunk.New(session, endian.Little)
	wg := sync.WaitGroup{}
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				w := l.BeginChunk(chunk.Opcode(g + 1))
				w.U32(uint32(i))
				w.Bytes(bytes.Repeat([]byte{byte(g)}, i))
				if _, err := w.End(); err != nil {
					t.Error(err)
				}
			}
		}(g)
	}
	wg.Wait()

	c := chunk.Cursor{}
	seen := 0
	for {
		ch, err := l.ReadNext(&c)
		if err == chunk.ErrEndOfLog {
			break
		}
		require.NoError(t, err)
		d := ch.Decoder()
		i := d.U32()
		payload := d.Bytes()
		require.NoError(t, d.Finish())
		assert.Len(t, payload, int(i))
		for _, b := range payload {
			assert.Equal(t, byte(ch.Opcode-1), b)
		}
		seen++
	}
	assert.Equal(t, 400, seen)
}

func buildIndexed(t *testing.T, n int, interval uint64) *chunk.Log {
	l := chunk.New(session, endian.Little)
	for i := 0; i < n; i++ {
		appendChunk(t, l, chunk.Opcode(i%7+1), func(e *chunk.Encoder) { e.Bytes(make([]byte, i%5)) })
	}
	b := chunk.NewIndexBuilder(interval)
	c := chunk.Cursor{}
	for {
		b.Offer(c, 0)
		if err := l.Skip(&c); err == chunk.ErrEndOfLog {
			break
		} else {
			require.NoError(t, err)
		}
	}
	l.SetIndex(b.Build(c))
	return l
}

func TestSeek(t *testing.T) {
	l := chunk.New(session, endian.Little)
	appendChunk(t, l, 1, func(e *chunk.Encoder) {})
	assert.Equal(t, chunk.ErrEventNotIndexed, l.Seek(&chunk.Cursor{}, 0))

	l = buildIndexed(t, 40, 8)
	for _, target := range []uint64{0, 1, 8, 13, 39, 40} {
		c := chunk.Cursor{}
		require.NoError(t, l.Seek(&c, target))
		assert.Equal(t, target, c.EventID)

		again := c
		require.NoError(t, l.Seek(&again, target))
		assert.Equal(t, c, again, "seek is idempotent")

		walk := chunk.Cursor{}
		for walk.EventID < target {
			require.NoError(t, l.Skip(&walk))
		}
		assert.Equal(t, walk, c, "seek agrees with a linear walk")
	}

	err := l.Seek(&chunk.Cursor{}, 41)
	assert.True(t, errors.Is(err, chunk.ErrEventOutOfRange))
}

func TestIndexCheckpoints(t *testing.T) {
	b := chunk.NewIndexBuilder(4)
	for e := uint64(0); e < 12; e++ {
		open := 0
		if e >= 3 && e < 6 {
			open = 1
		}
		b.Offer(chunk.Cursor{EventID: e, Offset: e * 10}, open)
	}
	idx := b.Build(chunk.Cursor{EventID: 12, Offset: 120})
	ids := []uint64{}
	for _, cp := range idx.Checkpoints {
		ids = append(ids, cp.EventID)
	}
	assert.Equal(t, []uint64{0, 6, 10}, ids)
	assert.Equal(t, uint64(60), idx.Nearest(9).Offset)
	assert.True(t, idx.IsCheckpoint(10))
	assert.False(t, idx.IsCheckpoint(4))
}

// Any log produced by the writer reads back chunk for chunk without
// corruption errors.
func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("writer output never reads as corrupt", prop.ForAll(
		func(ops []uint32, payloads [][]byte) bool {
			l := chunk.New(session, endian.Big)
			n := len(ops)
			if len(payloads) < n {
				n = len(payloads)
			}
			for i := 0; i < n; i++ {
				w := l.BeginChunk(chunk.Opcode(ops[i] | 1))
				w.Bytes(payloads[i])
				if _, err := w.End(); err != nil {
					return false
				}
			}
			reopened, err := chunk.Open(l.Bytes())
			if err != nil {
				return false
			}
			if !bytes.Equal(reopened.Bytes(), l.Bytes()) {
				return false
			}
			c := chunk.Cursor{}
			for i := 0; i < n; i++ {
				ch, err := reopened.ReadNext(&c)
				if err != nil || ch.Opcode != chunk.Opcode(ops[i]|1) {
					return false
				}
				d := ch.Decoder()
				if !bytes.Equal(d.Bytes(), payloads[i]) || d.Finish() != nil {
					return false
				}
			}
			_, err = reopened.ReadNext(&c)
			return err == chunk.ErrEndOfLog
		},
		gen.SliceOf(gen.UInt32()),
		gen.SliceOf(gen.SliceOf(gen.UInt8())),
	))

	properties.TestingRun(t)
}

func TestCompressedChunkArea(t *testing.T) {
	l := chunk.New(session, endian.Big)
	for i := 0; i < 100; i++ {
		appendChunk(t, l, 7, func(e *chunk.Encoder) { e.Bytes(bytes.Repeat([]byte{byte(i)}, 64)) })
	}
	plain := l.Bytes()
	l.SetCompression(chunk.Zstd)
	packed := l.Bytes()
	assert.Less(t, len(packed), len(plain))
	assert.Equal(t, plain[:4], packed[:4])

	reopened, err := chunk.Open(packed)
	require.NoError(t, err)
	assert.Equal(t, chunk.Zstd, reopened.Header().Compression)
	assert.Equal(t, endian.Big, reopened.ByteOrder())
	assert.Equal(t, l.Size(), reopened.Size())
	count, ok := reopened.Declared()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), count)
	c := chunk.Cursor{}
	for i := 0; i < 100; i++ {
		ch, err := reopened.ReadNext(&c)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 64), ch.Decoder().Bytes())
	}
	assert.Equal(t, packed, reopened.Bytes(), "an opened log keeps its framing")
	reopened.SetCompression(chunk.Uncompressed)
	assert.Equal(t, plain, reopened.Bytes())

	_, err = chunk.Open(packed[:len(packed)-6])
	var corrupt *chunk.CorruptError
	assert.True(t, errors.As(err, &corrupt), "truncated frame")

	unknown := append([]byte{}, plain...)
	unknown[4] |= 0x70
	_, err = chunk.Open(unknown)
	assert.True(t, errors.Is(err, chunk.ErrCorruptChunk), "unknown compression")
}

func TestParseCompression(t *testing.T) {
	for _, c := range []chunk.Compression{chunk.Uncompressed, chunk.Zstd} {
		got, err := chunk.ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := chunk.ParseCompression("lzma")
	assert.Error(t, err)
}

// streamed clears the header chunk count, as a log written without a final
// count has it.
func streamed(data []byte) []byte {
	out := append([]byte{}, data...)
	copy(out[4+1+3*2:], make([]byte, 8))
	return out
}

func TestAppendToStreamedLog(t *testing.T) {
	l := chunk.New(session, endian.Little)
	appendChunk(t, l, 1, func(e *chunk.Encoder) { e.U32(1) })
	appendChunk(t, l, 2, func(e *chunk.Encoder) { e.U32(2) })

	reopened, err := chunk.Open(streamed(l.Bytes()))
	require.NoError(t, err)
	_, ok := reopened.Count()
	assert.False(t, ok)
	_, ok = reopened.Declared()
	assert.False(t, ok)

	assert.Equal(t, uint64(2), appendChunk(t, reopened, 3, func(e *chunk.Encoder) { e.U32(3) }))
	count, ok := reopened.Count()
	assert.True(t, ok)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, uint64(3), reopened.Header().ChunkCount)

	broken, err := chunk.Open(streamed(l.Bytes())[:chunk.HeaderSize+5])
	require.NoError(t, err)
	_, err = broken.BeginChunk(3).End()
	assert.True(t, errors.Is(err, chunk.ErrCorruptChunk), "a corrupt log cannot be counted")
}

func TestBytesCountMatchesChunks(t *testing.T) {
	l := chunk.New(session, endian.Little)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			w := l.BeginChunk(5)
			w.U32(uint32(i))
			if _, err := w.End(); err != nil {
				t.Error(err)
			}
		}
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		reopened, err := chunk.Open(l.Bytes())
		require.NoError(t, err)
		c := chunk.Cursor{}
		for {
			if err := reopened.Skip(&c); err == chunk.ErrEndOfLog {
				break
			} else {
				require.NoError(t, err)
			}
		}
		declared, _ := reopened.Declared()
		require.Equal(t, declared, c.EventID, "the header counts the chunks that follow")
	}
}
