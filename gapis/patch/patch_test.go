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

package patch_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gfxreplay/core/data/endian"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/memory"
	"github.com/google/gfxreplay/gapis/patch"
	"github.com/google/gfxreplay/gapis/reference"
)

const (
	typeRoot patch.StructType = iota + 1
	typeRegion
	typeInfo
	typeExt
	typeFuture
)

var baseLayouts = []patch.Layout{
	{Type: typeRoot, Name: "Root", Fields: []patch.Field{
		{Name: "flags", Kind: patch.Scalar, Size: 4},
		{Name: "device", Kind: patch.Handle, Access: reference.Read},
		{Name: "memory", Kind: patch.Address, Access: reference.Write},
		{Name: "views", Kind: patch.HandleArray, Access: reference.Read},
		{Name: "sizes", Kind: patch.ScalarArray, Size: 2},
		{Name: "blob", Kind: patch.Bytes},
		{Name: "regions", Kind: patch.StructArray, Elem: typeRegion},
		{Name: "info", Kind: patch.StructPtr, Elem: typeInfo},
	}},
	{Type: typeRegion, Name: "Region", Fields: []patch.Field{
		{Name: "image", Kind: patch.Handle, Access: reference.PartialWrite},
		{Name: "offset", Kind: patch.Scalar, Size: 8},
	}},
	{Type: typeInfo, Name: "Info", Fields: []patch.Field{
		{Name: "mode", Kind: patch.Scalar, Size: 1},
	}},
	{Type: typeExt, Name: "Ext", Fields: []patch.Field{
		{Name: "sampler", Kind: patch.Handle, Access: reference.Barrier},
	}},
}

var schema = patch.NewSchema("1.0", baseLayouts...)

// futureSchema knows one more structure type than schema.
var futureSchema = patch.NewSchema("1.1", append(append([]patch.Layout(nil), baseLayouts...),
	patch.Layout{Type: typeFuture, Name: "Future", Fields: []patch.Field{
		{Name: "value", Kind: patch.Scalar, Size: 4},
	}})...)

type mapResolver map[identity.ID]identity.Handle

func (m mapResolver) Resolve(id identity.ID) (identity.Handle, error) {
	if h, ok := m[id]; ok {
		return h, nil
	}
	return 0, identity.ErrUnknownIdentity
}

func id(lo uint64) identity.ID { return identity.ID{Hi: 1, Lo: lo} }

func sample(sc *patch.Schema) *patch.Struct {
	root := sc.New(typeRoot, map[string]patch.Value{
		"flags":  {U: 0xf00d},
		"device": {ID: id(1)},
		"memory": {ID: id(2), Offset: 64},
		"views":  {IDs: []identity.ID{id(3), identity.Null, id(4)}},
		"sizes":  {Us: []uint64{1, 2, 3}},
		"blob":   {Bytes: []byte("hello")},
		"regions": {Structs: []*patch.Struct{
			sc.New(typeRegion, map[string]patch.Value{"image": {ID: id(5)}, "offset": {U: 128}}),
			sc.New(typeRegion, map[string]patch.Value{"image": {ID: id(6)}, "offset": {U: 256}}).
				Chain(sc.New(typeExt, map[string]patch.Value{"sampler": {ID: id(7)}})),
		}},
		"info": {Ptr: sc.New(typeInfo, map[string]patch.Value{"mode": {U: 3}})},
	})
	return root.Chain(sc.New(typeExt, map[string]patch.Value{"sampler": {ID: id(8)}}))
}

var resolver = mapResolver{
	id(1): 0x100, id(2): 0x200, id(3): 0x300, id(4): 0x400,
	id(5): 0x500, id(6): 0x600, id(7): 0x700, id(8): 0x800,
}

func TestLayoutOffsets(t *testing.T) {
	root, ok := schema.Layout(typeRoot)
	require.True(t, ok)
	for name, want := range map[string]uint64{
		"flags": 16, "device": 24, "memory": 32, "views": 48,
		"sizes": 64, "blob": 80, "regions": 96, "info": 112,
	} {
		i, ok := root.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, want, root.Fields[i].Offset(), name)
	}
	assert.Equal(t, uint64(120), root.Size())

	info, _ := schema.Layout(typeInfo)
	assert.Equal(t, uint64(24), info.Size(), "rounded up to pointer alignment")
}

func TestPatchResolvesEverything(t *testing.T) {
	root := sample(schema)
	size, err := schema.ComputePatchSize(root)
	require.NoError(t, err)

	p, err := schema.Patch(root, resolver)
	require.NoError(t, err)
	assert.Equal(t, size, uint64(len(p.Data)), "patched image fills the computed size")

	v := p.Root()
	assert.Equal(t, "Root", v.Name())
	assert.Equal(t, uint64(0xf00d), v.U("flags"))
	assert.Equal(t, identity.Handle(0x100), v.Handle("device"))
	h, off := v.Address("memory")
	assert.Equal(t, identity.Handle(0x200), h)
	assert.Equal(t, uint64(64), off)
	assert.Equal(t, []identity.Handle{0x300, 0, 0x400}, v.Handles("views"))
	assert.Equal(t, []uint64{1, 2, 3}, v.Scalars("sizes"))
	assert.Equal(t, []byte("hello"), v.Bytes("blob"))

	regions := v.Structs("regions")
	require.Len(t, regions, 2)
	assert.Equal(t, identity.Handle(0x500), regions[0].Handle("image"))
	assert.Equal(t, uint64(256), regions[1].U("offset"))
	_, chained := regions[0].Next()
	assert.False(t, chained)
	ext, ok := regions[1].Find(typeExt)
	require.True(t, ok)
	assert.Equal(t, identity.Handle(0x700), ext.Handle("sampler"))

	info, ok := v.Ptr("info")
	require.True(t, ok)
	assert.Equal(t, uint64(3), info.U("mode"))

	ext, ok = v.Find(typeExt)
	require.True(t, ok)
	assert.Equal(t, identity.Handle(0x800), ext.Handle("sampler"))
	_, ok = v.Find(typeFuture)
	assert.False(t, ok)
}

func TestPatchEmptyFields(t *testing.T) {
	root := schema.New(typeRoot, nil)
	p, err := schema.Patch(root, resolver)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), uint64(len(p.Data)))

	v := p.Root()
	assert.Equal(t, identity.Handle(0), v.Handle("device"), "null identity patches to a null handle")
	assert.Empty(t, v.Handles("views"))
	assert.Nil(t, v.Bytes("blob"))
	_, ok := v.Ptr("info")
	assert.False(t, ok)
	_, ok = v.Next()
	assert.False(t, ok)
}

func TestPatchUnknownIdentity(t *testing.T) {
	root := sample(schema)
	r := mapResolver{}
	for k, v := range resolver {
		r[k] = v
	}
	delete(r, id(7))
	_, err := schema.Patch(root, r)
	assert.True(t, errors.Is(err, identity.ErrUnknownIdentity))
}

func TestPatcherReusesArena(t *testing.T) {
	p := patch.NewPatcher(schema, memory.HostLayout)
	first, err := p.Patch(sample(schema), resolver)
	require.NoError(t, err)
	kept := first.Clone()

	_, err = p.Patch(schema.New(typeRoot, map[string]patch.Value{"flags": {U: 1}}), resolver)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xf00d), kept.Root().U("flags"), "clone survives the next patch")
}

func encode(t *testing.T, sc *patch.Schema, s *patch.Struct) []byte {
	buf := &bytes.Buffer{}
	e := chunk.NewEncoder(buf, endian.Little)
	sc.Encode(e, s)
	require.NoError(t, e.Error())
	return buf.Bytes()
}

func TestEncodeDecode(t *testing.T) {
	data := encode(t, schema, sample(schema))
	d := chunk.NewDecoder(data, endian.Little)
	got, err := schema.Decode(d)
	require.NoError(t, err)
	require.NoError(t, d.Finish())

	assert.Equal(t, data, encode(t, schema, got))
	assert.Equal(t, []identity.ID{id(1), id(2), id(3), id(4), id(5), id(6), id(7), id(8)}, schema.Identities(got))
	assert.Equal(t, uint64(0xf00d), schema.Get(got, "flags").U)
}

func TestDecodeTruncated(t *testing.T) {
	data := encode(t, schema, sample(schema))
	for _, n := range []int{0, 3, 10, len(data) / 2, len(data) - 1} {
		_, err := schema.Decode(chunk.NewDecoder(data[:n], endian.Little))
		assert.True(t, errors.Is(err, chunk.ErrCorruptChunk), "truncated to %d", n)
	}
}

func TestEncodeRejectsMismatchedElement(t *testing.T) {
	root := schema.New(typeRoot, map[string]patch.Value{
		"regions": {Structs: []*patch.Struct{schema.New(typeInfo, nil)}},
	})
	e := chunk.NewEncoder(&bytes.Buffer{}, endian.Little)
	schema.Encode(e, root)
	assert.True(t, errors.Is(e.Error(), patch.ErrFieldMismatch))

	_, err := schema.ComputePatchSize(root)
	assert.True(t, errors.Is(err, patch.ErrFieldMismatch))
}

func TestUnknownChainedStruct(t *testing.T) {
	future := sample(futureSchema).Chain(futureSchema.New(typeFuture, map[string]patch.Value{"value": {U: 9}}))
	data := encode(t, futureSchema, future)

	d := chunk.NewDecoder(data, endian.Little)
	got, err := schema.Decode(d)
	require.NoError(t, err, "unknown types still decode")
	require.NoError(t, d.Finish())

	tail := got.Find(typeFuture)
	require.NotNil(t, tail)
	assert.True(t, tail.Opaque())
	assert.Equal(t, data, encode(t, schema, got), "opaque structures re-encode verbatim")

	_, err = schema.ComputePatchSize(got)
	assert.True(t, errors.Is(err, patch.ErrUnsupportedChainedStruct))
	_, err = schema.Patch(got, resolver)
	var unsupported *patch.UnsupportedError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, typeFuture, unsupported.Type)
}

func TestWalkAccess(t *testing.T) {
	got := map[identity.ID]reference.Access{}
	schema.Walk(sample(schema), func(i identity.ID, a reference.Access) { got[i] = a })
	assert.Equal(t, map[identity.ID]reference.Access{
		id(1): reference.Read,
		id(2): reference.Write,
		id(3): reference.Read,
		id(4): reference.Read,
		id(5): reference.PartialWrite,
		id(6): reference.PartialWrite,
		id(7): reference.Barrier,
		id(8): reference.Barrier,
	}, got)
}

func TestExactArenaNeverOverflows(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("patching into an arena of the computed size succeeds", prop.ForAll(
		func(views, sizes []uint16, blob []byte, regions, chain uint8) bool {
			ids := make([]identity.ID, len(views))
			r := mapResolver{}
			for i, v := range views {
				ids[i] = id(uint64(v) + 1)
				r[ids[i]] = identity.Handle(v) + 1
			}
			us := make([]uint64, len(sizes))
			for i, s := range sizes {
				us[i] = uint64(s)
			}
			rs := make([]*patch.Struct, regions%5)
			for i := range rs {
				rs[i] = schema.New(typeRegion, map[string]patch.Value{"offset": {U: uint64(i)}})
				for j := 0; j < i; j++ {
					rs[i].Chain(schema.New(typeExt, nil))
				}
			}
			root := schema.New(typeRoot, map[string]patch.Value{
				"views":   {IDs: ids},
				"sizes":   {Us: us},
				"blob":    {Bytes: blob},
				"regions": {Structs: rs},
			})
			for i := 0; i < int(chain%4); i++ {
				root.Chain(schema.New(typeExt, nil))
			}

			size, err := schema.ComputePatchSize(root)
			if err != nil {
				return false
			}
			p := patch.NewPatcher(schema, memory.HostLayout)
			out, err := p.Patch(root, r)
			if err != nil || uint64(len(out.Data)) != size {
				return false
			}
			return size%8 == 0
		},
		gen.SliceOf(gen.UInt16()),
		gen.SliceOf(gen.UInt16()),
		gen.SliceOf(gen.UInt8()),
		gen.UInt8(),
		gen.UInt8(),
	))
	properties.TestingRun(t)
}
