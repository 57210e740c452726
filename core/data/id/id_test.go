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

package id_test

import (
	"fmt"
	"testing"

	"github.com/google/gfxreplay/core/data/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfBytesIsStable(t *testing.T) {
	a := id.OfBytes([]byte("GFXR"), []byte{1, 2, 3})
	b := id.OfBytes([]byte("GFXR\x01\x02\x03"))
	c := id.OfBytes([]byte("GFXR"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, a.IsValid())
	assert.False(t, id.ID{}.IsValid())
}

func TestParse(t *testing.T) {
	a := id.OfBytes([]byte("log"))
	got, err := id.Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.Equal(t, a.String(), fmt.Sprint(a))

	_, err = id.Parse("abcd")
	assert.Error(t, err)
	_, err = id.Parse("not hex")
	assert.Error(t, err)
}
