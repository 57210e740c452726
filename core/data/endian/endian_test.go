// Copyright (C) 2017 Google Inc.
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

package endian_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/gfxreplay/core/data/binary"
	"github.com/google/gfxreplay/core/data/endian"
	"github.com/stretchr/testify/assert"
)

func TestByteOrderLayout(t *testing.T) {
	for _, test := range []struct {
		order    endian.ByteOrder
		expected []byte
	}{
		{endian.Little, []byte{0x04, 0x03, 0x02, 0x01, 0x02, 0x01}},
		{endian.Big, []byte{0x01, 0x02, 0x03, 0x04, 0x01, 0x02}},
	} {
		buf := &bytes.Buffer{}
		w := endian.Writer(buf, test.order)
		w.Uint32(0x01020304)
		w.Uint16(0x0102)
		assert.NoError(t, w.Error())
		assert.Equal(t, test.expected, buf.Bytes(), "order %v", test.order)
	}
}

func TestReadersAgree(t *testing.T) {
	buf := &bytes.Buffer{}
	w := endian.Writer(buf, endian.Little)
	w.Bool(true)
	w.Int8(-3)
	w.Int16(-300)
	w.Uint32(0xdeadbeef)
	w.Int64(-1 << 40)
	w.Float32(1.5)
	w.Float64(-2.25)
	w.String("vkCmdFillBuffer")
	data := buf.Bytes()

	for name, r := range map[string]binary.Reader{
		"stream": endian.Reader(bytes.NewReader(data), endian.Little),
		"bytes":  endian.ReaderForBytes(data, endian.Little),
	} {
		assert.True(t, r.Bool(), name)
		assert.Equal(t, int8(-3), r.Int8(), name)
		assert.Equal(t, int16(-300), r.Int16(), name)
		assert.Equal(t, uint32(0xdeadbeef), r.Uint32(), name)
		assert.Equal(t, int64(-1<<40), r.Int64(), name)
		assert.Equal(t, float32(1.5), r.Float32(), name)
		assert.Equal(t, -2.25, r.Float64(), name)
		assert.Equal(t, "vkCmdFillBuffer", r.String(), name)
		assert.NoError(t, r.Error(), name)
	}
}

func TestBytesReaderStickyError(t *testing.T) {
	r := endian.ReaderForBytes([]byte{1, 2, 3}, endian.Little)
	assert.Equal(t, uint16(0x0201), r.Uint16())
	assert.Equal(t, uint32(0), r.Uint32())
	assert.Error(t, r.Error())
	assert.Equal(t, uint8(0), r.Uint8(), "reads after an error return zero")

	o := r.(binary.Offsetter)
	assert.Equal(t, uint64(2), o.Offset())
	assert.Equal(t, uint64(1), o.Remaining())
}

func TestSetErrorKeepsFirst(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")
	w := endian.Writer(&bytes.Buffer{}, endian.Big)
	w.SetError(first)
	w.SetError(second)
	w.Uint64(1)
	assert.Equal(t, first, w.Error())
}
