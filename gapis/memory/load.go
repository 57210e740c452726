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

package memory

import "fmt"

// LoadSlice loads count elements of elemSize bytes from rng of the pool,
// using the memory layout l.
func LoadSlice(p *Pool, base, count, elemSize uint64, l *MemoryLayout) ([]uint64, error) {
	switch elemSize {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("unsupported element size %d", elemSize)
	}
	data := p.Read(Range{Base: base, Size: count * elemSize})
	d := NewDecoder(data, 0, l)
	out := make([]uint64, count)
	for i := range out {
		switch elemSize {
		case 1:
			out[i] = uint64(d.U8())
		case 2:
			out[i] = uint64(d.U16())
		case 4:
			out[i] = uint64(d.U32())
		case 8:
			out[i] = d.U64()
		}
	}
	if err := d.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
