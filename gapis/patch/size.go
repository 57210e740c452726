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

package patch

import (
	"github.com/pkg/errors"

	"github.com/google/gfxreplay/gapis/memory"
)

// allocAlign is the alignment and size granularity of every allocation made
// while patching. Layout sizes are already multiples of it.
const allocAlign = 8

func allocSize(n uint64) uint64 { return memory.AlignUp(n, allocAlign) }

// ComputePatchSize returns the number of bytes Patch will allocate for root,
// its next chain and everything reachable from them. An arena of exactly this
// capacity never overflows.
func (sc *Schema) ComputePatchSize(root *Struct) (uint64, error) {
	return sc.chainSize(root, true)
}

// chainSize returns the size of s and its chain. If alloc is false the
// fixed part of s has already been counted by its containing array.
func (sc *Schema) chainSize(s *Struct, alloc bool) (uint64, error) {
	total := uint64(0)
	for n := s; n != nil; n = n.Next {
		l, ok := sc.layouts[n.Type]
		if !ok || n.opaque != nil {
			return 0, &UnsupportedError{Type: n.Type}
		}
		if alloc || n != s {
			total += l.size
		}
		sz, err := sc.outOfLineSize(l, n)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

func (sc *Schema) outOfLineSize(l *Layout, s *Struct) (uint64, error) {
	if len(s.Values) != len(l.Fields) {
		return 0, errors.Wrapf(ErrFieldMismatch, "%v has %d fields, got %d values", l.Name, len(l.Fields), len(s.Values))
	}
	total := uint64(0)
	for i, f := range l.Fields {
		v := s.Values[i]
		switch f.Kind {
		case HandleArray:
			total += allocSize(uint64(len(v.IDs)) * 8)
		case ScalarArray:
			total += allocSize(uint64(len(v.Us)) * f.Size)
		case Bytes:
			total += allocSize(uint64(len(v.Bytes)))
		case StructArray:
			el := sc.layouts[f.Elem]
			total += el.size * uint64(len(v.Structs))
			for _, e := range v.Structs {
				if e == nil || e.Type != f.Elem {
					return 0, errors.Wrapf(ErrFieldMismatch, "%v.%v element is not a %v", l.Name, f.Name, el.Name)
				}
				sz, err := sc.chainSize(e, false)
				if err != nil {
					return 0, err
				}
				total += sz
			}
		case StructPtr:
			if v.Ptr != nil {
				if v.Ptr.Type != f.Elem {
					return 0, errors.Wrapf(ErrFieldMismatch, "%v.%v is not a %v", l.Name, f.Name, sc.Name(f.Elem))
				}
				sz, err := sc.chainSize(v.Ptr, true)
				if err != nil {
					return 0, err
				}
				total += sz
			}
		}
	}
	return total, nil
}
