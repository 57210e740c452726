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

package vulkan

import (
	"context"
	"encoding/binary"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/data/id"
	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/memory"
	"github.com/google/gfxreplay/gapis/patch"
)

const (
	ErrInvalidHandle = fault.Const("Invalid handle")
	ErrOutOfBounds   = fault.Const("Access out of bounds")
	ErrNotRecording  = fault.Const("Command buffer is not recording")
)

// softHandleBase is the first handle the soft device hands out. It is far
// from anything a capture would record, so stale capture handles never
// resolve to live soft objects.
const softHandleBase identity.Handle = 0x5d00_0000_0000

type descriptor struct {
	buffer identity.Handle
	offset uint64
	size   uint64
}

type softObject struct {
	kind   identity.Kind
	parent identity.Handle
	size   uint64
	pool   memory.PoolID
	// Buffers bound to memory read and write through the memory's pool.
	memory       identity.Handle
	memoryOffset uint64
	timeline     bool
	value        uint64
	name         string
	features     api.Capabilities
	recording    bool
	recorded     []*api.Call
	descriptors  map[uint32]descriptor
}

// SoftDevice is an in-memory Driver. It models object lifetimes, buffer,
// memory and image contents, command buffer recording and submission.
type SoftDevice struct {
	mu      sync.Mutex
	device  api.Device
	next    identity.Handle
	objects map[identity.Handle]*softObject
	pools   memory.Pools
	frames  int
}

var _ api.Driver = (*SoftDevice)(nil)

// NewSoftDevice returns a soft device with the given capabilities.
func NewSoftDevice(name string, caps ...api.Capability) *SoftDevice {
	return &SoftDevice{
		device:  api.Device{Name: name, Vendor: 0x10005, Capabilities: api.NewCapabilities(caps...)},
		next:    softHandleBase,
		objects: map[identity.Handle]*softObject{},
		pools:   memory.NewPools(),
	}
}

// Device returns the description of the soft device.
func (d *SoftDevice) Device() api.Device { return d.device }

func (d *SoftDevice) get(h identity.Handle, kind identity.Kind) (*softObject, error) {
	o, ok := d.objects[h]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "%v %v", kind, h)
	}
	if kind != identity.KindUnknown && o.kind != kind {
		return nil, errors.Wrapf(ErrInvalidHandle, "%v is a %v, not a %v", h, o.kind, kind)
	}
	return o, nil
}

func (d *SoftDevice) alloc(o *softObject) identity.Handle {
	d.next += 0x10
	d.objects[d.next] = o
	return d.next
}

func (d *SoftDevice) withContents(o *softObject) *softObject {
	o.pool, _ = d.pools.New()
	return o
}

// Call implements api.Driver.
func (d *SoftDevice) Call(ctx context.Context, c *api.Call) (identity.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if missing := d.device.Capabilities.Missing(c.Info.Requires); len(missing) > 0 {
		return 0, errors.Wrapf(api.ErrUnsupported, "%v needs %v", c.Info.Name, missing)
	}
	switch c.Info.Class {
	case api.Create:
		h, err := d.create(c)
		if err == nil {
			log.D(ctx, "%v -> %v", c.Info.Name, h)
		}
		return h, err
	case api.ScopeBegin:
		cb, err := d.get(c.Primary[0], identity.KindCommandBuffer)
		if err != nil {
			return 0, err
		}
		cb.recording, cb.recorded = true, nil
		return 0, nil
	case api.Immediate, api.FrameBoundary:
		return 0, d.immediate(ctx, c)
	default:
		return 0, errors.Errorf("%v (%v) cannot be called directly", c.Info.Name, c.Info.Class)
	}
}

func (d *SoftDevice) create(c *api.Call) (identity.Handle, error) {
	o := &softObject{kind: c.Info.Kind}
	if len(c.Primary) > 1 {
		if _, err := d.get(c.Primary[1], identity.KindUnknown); err != nil {
			return 0, errors.Wrap(err, "parent")
		}
		o.parent = c.Primary[1]
	}
	var v patch.View
	if c.Params != nil {
		v = c.Params.Root()
	}
	switch c.Info.Kind {
	case identity.KindDevice:
		o.features = api.Capabilities{}
		if f, ok := v.Ptr("features"); ok {
			for _, name := range strings.Split(string(f.Bytes("enabled")), ",") {
				if name == "" {
					continue
				}
				feature := api.Capability(name)
				if !d.device.Capabilities.Has(feature) {
					return 0, errors.Wrapf(api.ErrUnsupported, "feature %v", feature)
				}
				o.features[feature] = true
			}
		}
	case identity.KindBuffer:
		o.size = v.U("size")
		d.withContents(o)
	case identity.KindDeviceMemory:
		o.size = v.U("allocationSize")
		if ded, ok := v.Find(VkMemoryDedicatedAllocateInfo); ok {
			if b := ded.Handle("buffer"); b != 0 {
				if _, err := d.get(b, identity.KindBuffer); err != nil {
					return 0, errors.Wrap(err, "dedicated buffer")
				}
			}
		}
		d.withContents(o)
	case identity.KindImage:
		o.size = v.U("width") * v.U("height") * 4
		d.withContents(o)
	case identity.KindImageView:
		if _, err := d.get(v.Handle("image"), identity.KindImage); err != nil {
			return 0, err
		}
	case identity.KindFramebuffer:
		for _, a := range v.Handles("attachments") {
			if _, err := d.get(a, identity.KindImageView); err != nil {
				return 0, err
			}
		}
	case identity.KindSemaphore:
		if t, ok := v.Find(VkSemaphoreTypeCreateInfo); ok && t.U("semaphoreType") == SemaphoreTypeTimeline {
			if !d.device.Capabilities.Has(CapTimelineSemaphore) {
				return 0, errors.Wrap(api.ErrUnsupported, "timeline semaphore")
			}
			o.timeline, o.value = true, t.U("initialValue")
		}
	case identity.KindCommandBuffer:
		if _, err := d.get(v.Handle("commandPool"), identity.KindCommandPool); err != nil {
			return 0, err
		}
	case identity.KindDescriptorSet:
		if _, err := d.get(v.Handle("descriptorPool"), identity.KindDescriptorPool); err != nil {
			return 0, err
		}
		for _, l := range v.Handles("setLayouts") {
			if _, err := d.get(l, identity.KindDescriptorSetLayout); err != nil {
				return 0, err
			}
		}
		o.descriptors = map[uint32]descriptor{}
	}
	return d.alloc(o), nil
}

func (d *SoftDevice) immediate(ctx context.Context, c *api.Call) error {
	var v patch.View
	if c.Params != nil {
		v = c.Params.Root()
	}
	switch c.Info.Opcode {
	case OpBindBufferMemory2:
		buf, err := d.get(v.Handle("buffer"), identity.KindBuffer)
		if err != nil {
			return err
		}
		mem, err := d.get(v.Handle("memory"), identity.KindDeviceMemory)
		if err != nil {
			return err
		}
		off := v.U("memoryOffset")
		if off+buf.size > mem.size {
			return errors.Wrapf(ErrOutOfBounds, "binding %d bytes at %d of %d", buf.size, off, mem.size)
		}
		buf.memory, buf.memoryOffset = v.Handle("memory"), off
	case OpSignalSemaphore:
		sem, err := d.get(v.Handle("semaphore"), identity.KindSemaphore)
		if err != nil {
			return err
		}
		return d.signal(sem, v.U("value"))
	case OpUpdateDescriptorSets:
		for _, w := range v.Structs("writes") {
			set, err := d.get(w.Handle("dstSet"), identity.KindDescriptorSet)
			if err != nil {
				return err
			}
			for i, info := range w.Structs("bufferInfo") {
				if _, err := d.get(info.Handle("buffer"), identity.KindBuffer); err != nil {
					return err
				}
				set.descriptors[uint32(w.U("dstBinding"))+uint32(i)] = descriptor{
					buffer: info.Handle("buffer"),
					offset: info.U("offset"),
					size:   info.U("range"),
				}
			}
		}
	case OpWriteMappedMemory:
		mem, err := d.get(v.Handle("memory"), identity.KindDeviceMemory)
		if err != nil {
			return err
		}
		data, off := v.Bytes("data"), v.U("offset")
		if off+uint64(len(data)) > mem.size {
			return errors.Wrapf(ErrOutOfBounds, "write of %d bytes at %d of %d", len(data), off, mem.size)
		}
		d.pools.MustGet(mem.pool).Write(off, data)
	case OpDebugMarkerSetObjectName:
		o, err := d.get(v.Handle("object"), identity.KindUnknown)
		if err != nil {
			return err
		}
		o.name = string(v.Bytes("objectName"))
	case OpQueueSubmit:
		if _, err := d.get(c.Primary[0], identity.KindQueue); err != nil {
			return err
		}
		for _, h := range v.Handles("commandBuffers") {
			if err := d.runScope(ctx, h); err != nil {
				return err
			}
		}
		var values []uint64
		if t, ok := v.Find(VkTimelineSemaphoreSubmitInfo); ok {
			values = t.Scalars("signalSemaphoreValues")
		}
		for i, h := range v.Handles("signalSemaphores") {
			sem, err := d.get(h, identity.KindSemaphore)
			if err != nil {
				return err
			}
			value := uint64(1)
			if sem.timeline {
				if i >= len(values) {
					return errors.Errorf("no signal value for timeline semaphore %v", h)
				}
				value = values[i]
			}
			if err := d.signal(sem, value); err != nil {
				return err
			}
		}
	case OpQueueBindSparse:
		pool, base, size, err := d.storage(v.Handle("buffer"))
		if err != nil {
			return err
		}
		mem, err := d.get(v.Handle("memory"), identity.KindDeviceMemory)
		if err != nil {
			return err
		}
		rng := memory.Range{Base: v.U("memoryOffset"), Size: v.U("size")}
		if rng.End() > mem.size || v.U("resourceOffset")+rng.Size > size {
			return errors.Wrapf(ErrOutOfBounds, "sparse bind %v", rng)
		}
		pool.Copy(base+v.U("resourceOffset"), d.pools.MustGet(mem.pool), rng)
	case OpQueuePresent:
		for _, h := range v.Handles("images") {
			if _, err := d.get(h, identity.KindImage); err != nil {
				return err
			}
		}
		d.frames++
	default:
		return errors.Wrapf(api.ErrUnsupported, "%v", c.Info.Name)
	}
	return nil
}

func (d *SoftDevice) signal(sem *softObject, value uint64) error {
	if !sem.timeline {
		sem.value = value
		return nil
	}
	if value <= sem.value {
		return errors.Errorf("timeline semaphore value %d not greater than %d", value, sem.value)
	}
	sem.value = value
	return nil
}

// storage returns the pool holding a buffer's contents, the base address of
// the buffer within it and the buffer's size.
func (d *SoftDevice) storage(h identity.Handle) (*memory.Pool, uint64, uint64, error) {
	buf, err := d.get(h, identity.KindBuffer)
	if err != nil {
		return nil, 0, 0, err
	}
	if buf.memory != 0 {
		mem, err := d.get(buf.memory, identity.KindDeviceMemory)
		if err != nil {
			return nil, 0, 0, errors.Wrap(err, "bound memory")
		}
		return d.pools.MustGet(mem.pool), buf.memoryOffset, buf.size, nil
	}
	return d.pools.MustGet(buf.pool), 0, buf.size, nil
}

func inBounds(offset, size, limit uint64) error {
	if offset > limit || size > limit-offset {
		return errors.Wrapf(ErrOutOfBounds, "[%d, +%d) of %d", offset, size, limit)
	}
	return nil
}

// Execute implements api.Driver.
func (d *SoftDevice) Execute(ctx context.Context, scope identity.Handle, cmds []*api.Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, err := d.get(scope, identity.KindCommandBuffer)
	if err != nil {
		return err
	}
	if !cb.recording {
		return errors.Wrapf(ErrNotRecording, "%v", scope)
	}
	cb.recording, cb.recorded = false, cmds
	return nil
}

// Run implements api.Driver.
func (d *SoftDevice) Run(ctx context.Context, scope identity.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runScope(ctx, scope)
}

func (d *SoftDevice) runScope(ctx context.Context, scope identity.Handle) error {
	cb, err := d.get(scope, identity.KindCommandBuffer)
	if err != nil {
		return err
	}
	if cb.recording {
		return errors.Errorf("command buffer %v executed while recording", scope)
	}
	for _, c := range cb.recorded {
		if err := d.execute(c); err != nil {
			return errors.Wrapf(err, "%v (event %v)", c.Info.Name, c.EventID)
		}
	}
	return nil
}

func (d *SoftDevice) execute(c *api.Call) error {
	var v patch.View
	if c.Params != nil {
		v = c.Params.Root()
	}
	switch c.Info.Opcode {
	case OpCmdFillBuffer:
		pool, base, size, err := d.storage(v.Handle("dstBuffer"))
		if err != nil {
			return err
		}
		off, n := v.U("dstOffset"), v.U("size")
		if n == WholeSize {
			n = (size - min(off, size)) &^ 3
		}
		if err := inBounds(off, n, size); err != nil {
			return err
		}
		pool.Fill(memory.Range{Base: base + off, Size: n}, uint32(v.U("data")))
	case OpCmdUpdateBuffer:
		pool, base, size, err := d.storage(v.Handle("dstBuffer"))
		if err != nil {
			return err
		}
		data, off := v.Bytes("data"), v.U("dstOffset")
		if err := inBounds(off, uint64(len(data)), size); err != nil {
			return err
		}
		pool.Write(base+off, data)
	case OpCmdCopyBuffer2:
		src, srcBase, srcSize, err := d.storage(v.Handle("srcBuffer"))
		if err != nil {
			return err
		}
		dst, dstBase, dstSize, err := d.storage(v.Handle("dstBuffer"))
		if err != nil {
			return err
		}
		for _, r := range v.Structs("regions") {
			n := r.U("size")
			if err := inBounds(r.U("srcOffset"), n, srcSize); err != nil {
				return err
			}
			if err := inBounds(r.U("dstOffset"), n, dstSize); err != nil {
				return err
			}
			dst.Copy(dstBase+r.U("dstOffset"), src, memory.Range{Base: srcBase + r.U("srcOffset"), Size: n})
		}
	case OpCmdClearColorImage:
		img, err := d.get(v.Handle("image"), identity.KindImage)
		if err != nil {
			return err
		}
		var texel [4]byte
		for i, c := range v.Scalars("color") {
			if i < len(texel) {
				texel[i] = byte(c)
			}
		}
		d.pools.MustGet(img.pool).Fill(memory.Range{Size: img.size}, binary.LittleEndian.Uint32(texel[:]))
	case OpCmdPipelineBarrier2:
		for _, b := range v.Structs("bufferMemoryBarriers") {
			if _, err := d.get(b.Handle("buffer"), identity.KindBuffer); err != nil {
				return err
			}
		}
		for _, b := range v.Structs("imageMemoryBarriers") {
			if _, err := d.get(b.Handle("image"), identity.KindImage); err != nil {
				return err
			}
		}
	case OpCmdUpdateBufferAddress:
		h, off := v.Address("dstAddress")
		pool, base, size, err := d.storage(h)
		if err != nil {
			return err
		}
		data := v.Bytes("data")
		if err := inBounds(off, uint64(len(data)), size); err != nil {
			return err
		}
		pool.Write(base+off, data)
	case OpCmdDebugMarkerInsert:
	default:
		return errors.Wrapf(api.ErrUnsupported, "%v", c.Info.Name)
	}
	return nil
}

// Destroy implements api.Driver.
func (d *SoftDevice) Destroy(ctx context.Context, c *api.Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.get(c.Primary[0], c.Info.Kind)
	if err != nil {
		return err
	}
	if o.pool != 0 {
		d.pools.Delete(o.pool)
	}
	delete(d.objects, c.Primary[0])
	return nil
}

// Reset implements api.Driver. Handles are never reused across resets.
func (d *SoftDevice) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	log.D(ctx, "Resetting %v: %d live objects", d.device.Name, len(d.objects))
	d.objects = map[identity.Handle]*softObject{}
	d.pools = memory.NewPools()
	d.frames = 0
	return nil
}

// Live returns the number of live objects.
func (d *SoftDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// Frames returns the number of frames presented since the last reset.
func (d *SoftDevice) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Contents returns a copy of the contents of a buffer, memory or image.
func (d *SoftDevice) Contents(h identity.Handle) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.get(h, identity.KindUnknown)
	if err != nil {
		return nil, err
	}
	if o.kind == identity.KindBuffer {
		pool, base, size, err := d.storage(h)
		if err != nil {
			return nil, err
		}
		return pool.Read(memory.Range{Base: base, Size: size}), nil
	}
	if o.pool == 0 {
		return nil, errors.Errorf("%v %v has no contents", o.kind, h)
	}
	return d.pools.MustGet(o.pool).Read(memory.Range{Size: o.size}), nil
}

// Words returns count 32 bit words of a buffer's contents starting at offset.
func (d *SoftDevice) Words(h identity.Handle, offset, count uint64) ([]uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pool, base, size, err := d.storage(h)
	if err != nil {
		return nil, err
	}
	if err := inBounds(offset, count*4, size); err != nil {
		return nil, err
	}
	words, err := memory.LoadSlice(pool, base+offset, count, 4, memory.HostLayout)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(words))
	for i, w := range words {
		out[i] = uint32(w)
	}
	return out, nil
}

// SemaphoreValue returns the current value of a semaphore.
func (d *SoftDevice) SemaphoreValue(h identity.Handle) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.get(h, identity.KindSemaphore)
	if err != nil {
		return 0, err
	}
	return o.value, nil
}

// Name returns the debug name given to an object.
func (d *SoftDevice) Name(h identity.Handle) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.get(h, identity.KindUnknown)
	if err != nil {
		return "", err
	}
	return o.name, nil
}

// Digest returns an identifier of the state of the object h. Handles are
// not part of the digest, so equal states on different devices compare
// equal.
func (d *SoftDevice) Digest(h identity.Handle) (id.ID, error) {
	d.mu.Lock()
	o, err := d.get(h, identity.KindUnknown)
	d.mu.Unlock()
	if err != nil {
		return id.ID{}, err
	}
	var contents []byte
	if o.pool != 0 || o.kind == identity.KindBuffer {
		if contents, err = d.Contents(h); err != nil {
			return id.ID{}, err
		}
	}
	return id.Hash(func(w io.Writer) error {
		var hdr [18]byte
		hdr[0] = byte(o.kind)
		binary.LittleEndian.PutUint64(hdr[1:], o.size)
		binary.LittleEndian.PutUint64(hdr[9:], o.value)
		if o.recording {
			hdr[17] = 1
		}
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, o.name); err != nil {
			return err
		}
		_, err := w.Write(contents)
		return err
	})
}
