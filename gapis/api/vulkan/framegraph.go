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

package vulkan

import (
	"context"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/transform2"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/framegraph"
	"github.com/google/gfxreplay/gapis/replay"
)

// GetFramegraph replays the whole of l on d and returns its framegraph: one
// node per command buffer execution, in submission order.
func GetFramegraph(ctx context.Context, l *chunk.Log, d api.Driver) (fg *framegraph.Framegraph, err error) {
	ctx = log.Enter(ctx, "GetFramegraph")
	mapper := NewSubmissionMapper()
	e := replay.New(API, l, d, replay.Options{
		Tag:        "framegraph",
		Transforms: []transform2.Transform{mapper},
	})
	defer func() {
		if cerr := e.Close(ctx); err == nil {
			err = cerr
		}
	}()

	s, err := e.RunStructuredPass(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := e.RunActiveFullPass(ctx); err != nil {
		return nil, err
	}

	submissions := mapper.Submissions()
	executions := make([]framegraph.Execution, len(submissions))
	for i, sub := range submissions {
		executions[i] = framegraph.Execution{Scope: sub.CommandBuffer, EventID: uint64(sub.EventID)}
	}
	log.D(ctx, "%d submissions of %d recorded scopes", len(executions), len(s.Scopes))
	return framegraph.Build(ctx, s, executions), nil
}
