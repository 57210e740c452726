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

package chunk

import (
	"bytes"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/data/endian"
)

// Magic identifies a chunk log.
var Magic = [4]byte{'G', 'F', 'X', 'R'}

// HeaderSize is the encoded size of a Header.
const HeaderSize = 4 + 1 + 3*2 + 8 + 16

// FormatVersion is the version of the chunk encoding written by this package.
var FormatVersion = semver.MustParse("1.3.0")

// compatible is the range of format versions this package can read.
var compatible = mustConstraint("^1.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Compression is the framing of the chunk area that follows the header.
// It is stored in the high nibble of the byte order byte.
type Compression uint8

const (
	// Uncompressed chunks follow the header as they are.
	Uncompressed Compression = iota
	// Zstd chunks are one zstd frame holding the uncompressed chunk area.
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Uncompressed:
		return "none"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression returns the compression named s.
func ParseCompression(s string) (Compression, error) {
	for _, c := range []Compression{Uncompressed, Zstd} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown compression %q", s)
}

// Header is the fixed-size preamble of a serialized log.
type Header struct {
	Version   *semver.Version
	ByteOrder endian.ByteOrder
	// ChunkCount is the number of chunks that follow, or 0 if the log was
	// streamed without a final count.
	ChunkCount  uint64
	Session     uuid.UUID
	Compression Compression
}

func (h Header) String() string {
	return fmt.Sprintf("v%v %v chunks:%d compression:%v session:%v", h.Version, h.ByteOrder, h.ChunkCount, h.Compression, h.Session)
}

func (h Header) encode() []byte {
	buf := &bytes.Buffer{}
	buf.Write(Magic[:])
	buf.WriteByte(byte(h.Compression)<<4 | byte(h.ByteOrder))
	w := endian.Writer(buf, h.ByteOrder)
	w.Uint16(uint16(h.Version.Major()))
	w.Uint16(uint16(h.Version.Minor()))
	w.Uint16(uint16(h.Version.Patch()))
	w.Uint64(h.ChunkCount)
	w.Data(h.Session[:])
	return buf.Bytes()
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &CorruptError{Reason: fmt.Sprintf("header truncated at %d bytes", len(data))}
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return Header{}, errors.Wrapf(ErrBadMagic, "got %q", data[:4])
	}
	order, compression := endian.ByteOrder(data[4]&0x0f), Compression(data[4]>>4)
	if order != endian.Little && order != endian.Big {
		return Header{}, &CorruptError{Offset: 4, Reason: fmt.Sprintf("invalid byte order %d", order)}
	}
	if compression > Zstd {
		return Header{}, &CorruptError{Offset: 4, Reason: fmt.Sprintf("invalid compression %d", compression)}
	}
	r := endian.ReaderForBytes(data[5:HeaderSize], order)
	major, minor, patch := r.Uint16(), r.Uint16(), r.Uint16()
	h := Header{
		Version:     semver.New(uint64(major), uint64(minor), uint64(patch), "", ""),
		ByteOrder:   order,
		ChunkCount:  r.Uint64(),
		Compression: compression,
	}
	r.Data(h.Session[:])
	if err := r.Error(); err != nil {
		return Header{}, &CorruptError{Reason: err.Error()}
	}
	if !compatible.Check(h.Version) {
		return Header{}, errors.Wrapf(ErrUnsupportedVersion, "log version %v, reader version %v", h.Version, FormatVersion)
	}
	return h, nil
}
