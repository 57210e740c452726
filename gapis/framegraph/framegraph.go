// Copyright (C) 2020 Google Inc.
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

// Package framegraph builds the frame graph of a log: one node per executed
// recording scope, and an edge from every scope to the later scopes that
// use what it wrote.
package framegraph

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
	"github.com/google/gfxreplay/gapis/replay"
)

// Node is one execution of a recorded scope.
type Node struct {
	ID    uint64
	Scope identity.ID
	// Begin and End are the events recording the scope.
	Begin, End uint64
	// Executed is the event that executed the recording.
	Executed uint64
	Read     []identity.ID
	Write    []identity.ID
	Text     string
}

// Edge links a node to a node that uses what it wrote.
type Edge struct {
	Origin      uint64
	Destination uint64
}

// Framegraph is the graph of the scopes of a log.
type Framegraph struct {
	Nodes []*Node
	Edges []*Edge
}

// Execution places a recorded scope at the event that executed it.
type Execution struct {
	Scope   identity.ID
	EventID uint64
}

// Build creates the framegraph of the structured log s. Each execution
// becomes a node for the last recording of its scope that ended before it.
// With no executions, every recording is a node executed where it ends.
func Build(ctx context.Context, s *replay.Structure, executions []Execution) *Framegraph {
	if executions == nil {
		for _, sc := range s.Scopes {
			executions = append(executions, Execution{Scope: sc.Scope, EventID: sc.End})
		}
	}
	sort.SliceStable(executions, func(i, j int) bool { return executions[i].EventID < executions[j].EventID })

	fg := &Framegraph{}
	for _, x := range executions {
		rec, ok := recording(s, x)
		if !ok {
			log.W(ctx, "No recording of %v before event %d", x.Scope, x.EventID)
			continue
		}
		n := &Node{ID: uint64(len(fg.Nodes)), Scope: x.Scope, Begin: rec.Begin, End: rec.End, Executed: x.EventID}
		for _, u := range rec.Usage {
			if u.ID == x.Scope {
				continue
			}
			switch {
			case u.Access.Writes():
				n.Write = append(n.Write, u.ID)
			case u.Access == reference.Read:
				n.Read = append(n.Read, u.ID)
			}
		}
		// Graphviz DOT: "\l" ends a left-aligned line.
		text := fmt.Sprintf("Scope %v\\lrecorded:[%d, %d]\\lexecuted:%d\\l", n.Scope, n.Begin, n.End, n.Executed)
		for _, id := range n.Read {
			text += fmt.Sprintf("read %v\\l", id)
		}
		for _, id := range n.Write {
			text += fmt.Sprintf("write %v\\l", id)
		}
		n.Text = text
		fg.Nodes = append(fg.Nodes, n)
	}
	fg.Edges = dependencies(fg.Nodes)
	return fg
}

// recording returns the last recording of x.Scope that ended before x.
func recording(s *replay.Structure, x Execution) (replay.ScopeUsage, bool) {
	found, ok := replay.ScopeUsage{}, false
	for _, sc := range s.Scopes {
		if sc.Scope == x.Scope && sc.End <= x.EventID {
			found, ok = sc, true
		}
	}
	return found, ok
}

// dependencies links every node to the nodes that last wrote what it uses.
// A write that follows a partial write depends on it too.
func dependencies(nodes []*Node) []*Edge {
	lastWriter := map[identity.ID]uint64{}
	edges := []*Edge{}
	for _, n := range nodes {
		deps := map[uint64]struct{}{}
		for _, ids := range [][]identity.ID{n.Read, n.Write} {
			for _, id := range ids {
				if w, ok := lastWriter[id]; ok && w != n.ID {
					deps[w] = struct{}{}
				}
			}
		}
		for _, id := range n.Write {
			lastWriter[id] = n.ID
		}
		origins := make([]uint64, 0, len(deps))
		for d := range deps {
			origins = append(origins, d)
		}
		sort.Slice(origins, func(i, j int) bool { return origins[i] < origins[j] })
		for _, o := range origins {
			// The graph shows how the frame is built, so edges go from the
			// dependency to the node depending on it.
			edges = append(edges, &Edge{Origin: o, Destination: n.ID})
		}
	}
	return edges
}

// WriteDOT writes fg as a Graphviz DOT digraph.
func WriteDOT(w io.Writer, fg *Framegraph) error {
	sb := &strings.Builder{}
	sb.WriteString("digraph framegraph {\n")
	sb.WriteString("  node [shape=box fontname=monospace];\n")
	for _, n := range fg.Nodes {
		fmt.Fprintf(sb, "  n%d [label=\"%s\"];\n", n.ID, strings.ReplaceAll(n.Text, `"`, `\"`))
	}
	for _, e := range fg.Edges {
		fmt.Fprintf(sb, "  n%d -> n%d;\n", e.Origin, e.Destination)
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
