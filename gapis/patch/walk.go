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
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

// Walk calls fn for every non-null identity reachable from s, with the
// access declared by the field holding it. Opaque structures are skipped.
func (sc *Schema) Walk(s *Struct, fn func(identity.ID, reference.Access)) {
	for n := s; n != nil; n = n.Next {
		l, ok := sc.layouts[n.Type]
		if !ok || n.opaque != nil || len(n.Values) != len(l.Fields) {
			continue
		}
		for i, f := range l.Fields {
			v := n.Values[i]
			switch f.Kind {
			case Handle, Address:
				if !v.ID.IsNull() {
					fn(v.ID, f.Access)
				}
			case HandleArray:
				for _, id := range v.IDs {
					if !id.IsNull() {
						fn(id, f.Access)
					}
				}
			case StructArray:
				for _, e := range v.Structs {
					sc.Walk(e, fn)
				}
			case StructPtr:
				sc.Walk(v.Ptr, fn)
			}
		}
	}
}

// Identities returns every non-null identity reachable from s, in walk
// order.
func (sc *Schema) Identities(s *Struct) []identity.ID {
	var out []identity.ID
	sc.Walk(s, func(id identity.ID, _ reference.Access) { out = append(out, id) })
	return out
}
