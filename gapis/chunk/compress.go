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
	"github.com/klauspost/compress/zstd"
)

// maxInflated bounds the chunk area a compressed log may inflate to.
const maxInflated = 1 << 34

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxInflated))
)

// compress appends the zstd frame of the chunk area to dst.
func compress(chunks, dst []byte) []byte {
	return encoder.EncodeAll(chunks, dst)
}

func decompress(frame []byte) ([]byte, error) {
	return decoder.DecodeAll(frame, nil)
}
