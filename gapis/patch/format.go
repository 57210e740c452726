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
	"fmt"
	"strings"
)

// Format returns a single line description of s and its chain.
func (sc *Schema) Format(s *Struct) string {
	sb := &strings.Builder{}
	sc.format(sb, s)
	return sb.String()
}

func (sc *Schema) format(sb *strings.Builder, s *Struct) {
	for n := s; n != nil; n = n.Next {
		if n != s {
			sb.WriteString(" -> ")
		}
		l, ok := sc.layouts[n.Type]
		if !ok || n.opaque != nil {
			fmt.Fprintf(sb, "%v{%d opaque bytes}", sc.Name(n.Type), len(n.opaque))
			continue
		}
		sb.WriteString(l.Name)
		sb.WriteString("{")
		for i, f := range l.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			if i >= len(n.Values) {
				sb.WriteString("?")
				continue
			}
			v := n.Values[i]
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			switch f.Kind {
			case Scalar:
				fmt.Fprintf(sb, "%d", v.U)
			case Handle:
				sb.WriteString(v.ID.String())
			case Address:
				fmt.Fprintf(sb, "%v+%d", v.ID, v.Offset)
			case HandleArray:
				fmt.Fprintf(sb, "%v", v.IDs)
			case ScalarArray:
				fmt.Fprintf(sb, "%v", v.Us)
			case Bytes:
				fmt.Fprintf(sb, "[%d bytes]", len(v.Bytes))
			case StructArray:
				sb.WriteString("[")
				for j, e := range v.Structs {
					if j > 0 {
						sb.WriteString(", ")
					}
					sc.format(sb, e)
				}
				sb.WriteString("]")
			case StructPtr:
				if v.Ptr == nil {
					sb.WriteString("nil")
				} else {
					sc.format(sb, v.Ptr)
				}
			}
		}
		sb.WriteString("}")
	}
}
