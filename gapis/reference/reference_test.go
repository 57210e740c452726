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

package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

var (
	bufA = identity.ID{Hi: 1, Lo: 1}
	bufB = identity.ID{Hi: 1, Lo: 2}
	img  = identity.ID{Hi: 1, Lo: 3}
)

func TestMergePrecedence(t *testing.T) {
	for _, test := range []struct {
		a, b, want reference.Access
	}{
		{reference.Barrier, reference.Read, reference.Read},
		{reference.Read, reference.Barrier, reference.Read},
		{reference.Read, reference.PartialWrite, reference.PartialWrite},
		{reference.Write, reference.PartialWrite, reference.Write},
		{reference.PartialWrite, reference.Write, reference.Write},
		{reference.Barrier, reference.Barrier, reference.Barrier},
	} {
		assert.Equal(t, test.want, test.a.Merge(test.b), "%v + %v", test.a, test.b)
	}
}

func TestDrainOrdersAndClears(t *testing.T) {
	tr := reference.NewTracker()
	tr.Observe(bufB, reference.Read, 5)
	tr.Observe(bufA, reference.Barrier, 4)
	tr.Observe(bufA, reference.Write, 6)
	tr.Observe(img, reference.Read, 4)
	tr.Observe(identity.Null, reference.Write, 4)
	tr.Observe(img, reference.None, 7)

	assert.Equal(t, 3, tr.Pending())
	assert.Equal(t, []reference.Usage{
		{ID: bufA, EventID: 4, Access: reference.Write},
		{ID: img, EventID: 4, Access: reference.Read},
		{ID: bufB, EventID: 5, Access: reference.Read},
	}, tr.Drain())
	assert.Empty(t, tr.Drain())
}

func TestInitialStateSurvivesDrain(t *testing.T) {
	tr := reference.NewTracker()
	tr.Observe(bufA, reference.Read, 0)
	tr.Observe(img, reference.Barrier, 0)
	tr.Drain()

	assert.Equal(t, reference.ReadOnly, tr.FrameRef(bufA))
	assert.False(t, tr.NeedsInitialState(bufA))

	tr.Observe(bufA, reference.PartialWrite, 1)
	tr.Observe(bufB, reference.Write, 1)
	tr.Drain()

	assert.Equal(t, reference.ReadBeforeWrite, tr.FrameRef(bufA))
	assert.Equal(t, reference.WriteFirst, tr.FrameRef(bufB))
	assert.Equal(t, reference.BarrierOnly, tr.FrameRef(img))
	assert.Equal(t, []identity.ID{bufA, bufB}, tr.InitialStateSet())

	tr.Observe(bufB, reference.Read, 2)
	assert.Equal(t, reference.WriteFirst, tr.FrameRef(bufB), "a later read does not downgrade")
}
