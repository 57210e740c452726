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
	"strings"

	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
)

type values = map[string]patch.Value

func cmd(op chunk.Opcode, params *patch.Struct, primary ...identity.ID) *api.Cmd {
	return &api.Cmd{Opcode: op, Primary: primary, Params: params}
}

func val(v uint64) patch.Value            { return patch.Value{U: v} }
func ref(id identity.ID) patch.Value      { return patch.Value{ID: id} }
func refs(ids ...identity.ID) patch.Value { return patch.Value{IDs: ids} }
func blob(data []byte) patch.Value        { return patch.Value{Bytes: data} }

// CreateInstance returns a vkCreateInstance command.
func CreateInstance(instance identity.ID, application string) *api.Cmd {
	return cmd(OpCreateInstance, Schema.New(VkInstanceCreateInfo, values{
		"apiVersion":      val(1<<22 | 3<<12),
		"applicationName": blob([]byte(application)),
	}), instance)
}

// CreateDevice returns a vkCreateDevice command enabling the features.
func CreateDevice(device, instance identity.ID, features ...api.Capability) *api.Cmd {
	v := values{"queueCreateInfoCount": val(1)}
	if len(features) > 0 {
		names := make([]string, len(features))
		for i, f := range features {
			names[i] = string(f)
		}
		v["features"] = patch.Value{Ptr: Schema.New(VkPhysicalDeviceFeatureRequest, values{
			"enabled": blob([]byte(strings.Join(names, ","))),
		})}
	}
	return cmd(OpCreateDevice, Schema.New(VkDeviceCreateInfo, v), device, instance)
}

// GetDeviceQueue returns a vkGetDeviceQueue command.
func GetDeviceQueue(queue, device identity.ID, family, index uint32) *api.Cmd {
	return cmd(OpGetDeviceQueue, Schema.New(VkDeviceQueueInfo, values{
		"queueFamilyIndex": val(uint64(family)),
		"queueIndex":       val(uint64(index)),
	}), queue, device)
}

// CreateBuffer returns a vkCreateBuffer command.
func CreateBuffer(buffer, device identity.ID, size uint64) *api.Cmd {
	return cmd(OpCreateBuffer, Schema.New(VkBufferCreateInfo, values{"size": val(size)}), buffer, device)
}

// AllocateMemory returns a vkAllocateMemory command. If dedicated is not
// null the allocation chains a VkMemoryDedicatedAllocateInfo for that
// buffer.
func AllocateMemory(memory, device identity.ID, size uint64, dedicated identity.ID) *api.Cmd {
	info := Schema.New(VkMemoryAllocateInfo, values{"allocationSize": val(size)})
	if !dedicated.IsNull() {
		info.Chain(Schema.New(VkMemoryDedicatedAllocateInfo, values{"buffer": ref(dedicated)}))
	}
	return cmd(OpAllocateMemory, info, memory, device)
}

// BindBufferMemory returns a vkBindBufferMemory2 command.
func BindBufferMemory(device, buffer, memory identity.ID, offset uint64) *api.Cmd {
	return cmd(OpBindBufferMemory2, Schema.New(VkBindBufferMemoryInfo, values{
		"buffer":       ref(buffer),
		"memory":       ref(memory),
		"memoryOffset": val(offset),
	}), device)
}

// CreateImage returns a vkCreateImage command for a 4 byte per texel image.
func CreateImage(image, device identity.ID, width, height uint32) *api.Cmd {
	return cmd(OpCreateImage, Schema.New(VkImageCreateInfo, values{
		"format":    val(37), // VK_FORMAT_R8G8B8A8_UNORM
		"width":     val(uint64(width)),
		"height":    val(uint64(height)),
		"mipLevels": val(1),
	}), image, device)
}

// CreateImageView returns a vkCreateImageView command.
func CreateImageView(view, device, image identity.ID) *api.Cmd {
	return cmd(OpCreateImageView, Schema.New(VkImageViewCreateInfo, values{
		"image":  ref(image),
		"format": val(37),
	}), view, device)
}

// CreateFramebuffer returns a vkCreateFramebuffer command.
func CreateFramebuffer(framebuffer, device identity.ID, width, height uint32, attachments ...identity.ID) *api.Cmd {
	return cmd(OpCreateFramebuffer, Schema.New(VkFramebufferCreateInfo, values{
		"attachments": refs(attachments...),
		"width":       val(uint64(width)),
		"height":      val(uint64(height)),
	}), framebuffer, device)
}

// CreateSemaphore returns a vkCreateSemaphore command. Timeline semaphores
// chain a VkSemaphoreTypeCreateInfo.
func CreateSemaphore(semaphore, device identity.ID, timeline bool, initial uint64) *api.Cmd {
	info := Schema.New(VkSemaphoreCreateInfo, nil)
	if timeline {
		info.Chain(Schema.New(VkSemaphoreTypeCreateInfo, values{
			"semaphoreType": val(SemaphoreTypeTimeline),
			"initialValue":  val(initial),
		}))
	}
	return cmd(OpCreateSemaphore, info, semaphore, device)
}

// SignalSemaphore returns a vkSignalSemaphore command.
func SignalSemaphore(device, semaphore identity.ID, value uint64) *api.Cmd {
	return cmd(OpSignalSemaphore, Schema.New(VkSemaphoreSignalInfo, values{
		"semaphore": ref(semaphore),
		"value":     val(value),
	}), device)
}

// CreateCommandPool returns a vkCreateCommandPool command.
func CreateCommandPool(pool, device identity.ID) *api.Cmd {
	return cmd(OpCreateCommandPool, Schema.New(VkCommandPoolCreateInfo, nil), pool, device)
}

// AllocateCommandBuffer returns a vkAllocateCommandBuffers command for one
// primary command buffer.
func AllocateCommandBuffer(commandBuffer, device, pool identity.ID) *api.Cmd {
	return cmd(OpAllocateCommandBuffers, Schema.New(VkCommandBufferAllocateInfo, values{
		"commandPool": ref(pool),
	}), commandBuffer, device)
}

// CreateDescriptorPool returns a vkCreateDescriptorPool command.
func CreateDescriptorPool(pool, device identity.ID, maxSets uint32) *api.Cmd {
	return cmd(OpCreateDescriptorPool, Schema.New(VkDescriptorPoolCreateInfo, values{
		"maxSets": val(uint64(maxSets)),
	}), pool, device)
}

// CreateDescriptorSetLayout returns a vkCreateDescriptorSetLayout command
// with one uniform buffer descriptor per binding.
func CreateDescriptorSetLayout(layout, device identity.ID, bindings ...uint32) *api.Cmd {
	elems := make([]*patch.Struct, len(bindings))
	for i, binding := range bindings {
		elems[i] = Schema.New(VkDescriptorSetLayoutBinding, values{
			"binding":         val(uint64(binding)),
			"descriptorType":  val(6), // VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER
			"descriptorCount": val(1),
		})
	}
	return cmd(OpCreateDescriptorSetLayout, Schema.New(VkDescriptorSetLayoutCreateInfo, values{
		"bindings": {Structs: elems},
	}), layout, device)
}

// AllocateDescriptorSet returns a vkAllocateDescriptorSets command for one
// set.
func AllocateDescriptorSet(set, device, pool, layout identity.ID) *api.Cmd {
	return cmd(OpAllocateDescriptorSets, Schema.New(VkDescriptorSetAllocateInfo, values{
		"descriptorPool": ref(pool),
		"setLayouts":     refs(layout),
	}), set, device)
}

// UpdateDescriptorSet returns a vkUpdateDescriptorSets command binding a
// buffer range to one binding of set.
func UpdateDescriptorSet(device, set identity.ID, binding uint32, buffer identity.ID, offset, size uint64) *api.Cmd {
	write := Schema.New(VkWriteDescriptorSet, values{
		"dstSet":     ref(set),
		"dstBinding": val(uint64(binding)),
		"bufferInfo": {Structs: []*patch.Struct{Schema.New(VkDescriptorBufferInfo, values{
			"buffer": ref(buffer),
			"offset": val(offset),
			"range":  val(size),
		})}},
	})
	return cmd(OpUpdateDescriptorSets, Schema.New(VkUpdateDescriptorSetsInfo, values{
		"writes": {Structs: []*patch.Struct{write}},
	}), device)
}

// WriteMappedMemory returns a command recording a host write to mapped
// device memory.
func WriteMappedMemory(device, memory identity.ID, offset uint64, data []byte) *api.Cmd {
	return cmd(OpWriteMappedMemory, Schema.New(VkWriteMemoryInfo, values{
		"memory": ref(memory),
		"offset": val(offset),
		"data":   blob(data),
	}), device)
}

// SetObjectName returns a vkDebugMarkerSetObjectNameEXT command.
func SetObjectName(device, object identity.ID, name string) *api.Cmd {
	return cmd(OpDebugMarkerSetObjectName, Schema.New(VkDebugMarkerObjectNameInfo, values{
		"object":     ref(object),
		"objectName": blob([]byte(name)),
	}), device)
}

// BeginCommandBuffer returns a vkBeginCommandBuffer command.
func BeginCommandBuffer(commandBuffer identity.ID) *api.Cmd {
	return cmd(OpBeginCommandBuffer, Schema.New(VkCommandBufferBeginInfo, nil), commandBuffer)
}

// CmdFillBuffer returns a vkCmdFillBuffer command.
func CmdFillBuffer(commandBuffer, buffer identity.ID, offset, size uint64, data uint32) *api.Cmd {
	return cmd(OpCmdFillBuffer, Schema.New(VkFillBufferInfo, values{
		"dstBuffer": ref(buffer),
		"dstOffset": val(offset),
		"size":      val(size),
		"data":      val(uint64(data)),
	}), commandBuffer)
}

// CmdUpdateBuffer returns a vkCmdUpdateBuffer command.
func CmdUpdateBuffer(commandBuffer, buffer identity.ID, offset uint64, data []byte) *api.Cmd {
	return cmd(OpCmdUpdateBuffer, Schema.New(VkUpdateBufferInfo, values{
		"dstBuffer": ref(buffer),
		"dstOffset": val(offset),
		"data":      blob(data),
	}), commandBuffer)
}

// BufferCopy is one region of a buffer copy.
type BufferCopy struct {
	SrcOffset, DstOffset, Size uint64
}

// CmdCopyBuffer returns a vkCmdCopyBuffer2 command.
func CmdCopyBuffer(commandBuffer, src, dst identity.ID, regions ...BufferCopy) *api.Cmd {
	elems := make([]*patch.Struct, len(regions))
	for i, r := range regions {
		elems[i] = Schema.New(VkBufferCopy2, values{
			"srcOffset": val(r.SrcOffset),
			"dstOffset": val(r.DstOffset),
			"size":      val(r.Size),
		})
	}
	return cmd(OpCmdCopyBuffer2, Schema.New(VkCopyBufferInfo2, values{
		"srcBuffer": ref(src),
		"dstBuffer": ref(dst),
		"regions":   {Structs: elems},
	}), commandBuffer)
}

// CmdClearColorImage returns a vkCmdClearColorImage command.
func CmdClearColorImage(commandBuffer, image identity.ID, rgba [4]uint8) *api.Cmd {
	return cmd(OpCmdClearColorImage, Schema.New(VkClearColorImageInfo, values{
		"image": ref(image),
		"color": {Us: []uint64{uint64(rgba[0]), uint64(rgba[1]), uint64(rgba[2]), uint64(rgba[3])}},
	}), commandBuffer)
}

// CmdPipelineBarrier returns a vkCmdPipelineBarrier2 command over whole
// buffers and images.
func CmdPipelineBarrier(commandBuffer identity.ID, buffers, images []identity.ID) *api.Cmd {
	bb := make([]*patch.Struct, len(buffers))
	for i, buf := range buffers {
		bb[i] = Schema.New(VkBufferMemoryBarrier2, values{"buffer": ref(buf), "size": val(WholeSize)})
	}
	ib := make([]*patch.Struct, len(images))
	for i, img := range images {
		ib[i] = Schema.New(VkImageMemoryBarrier2, values{"image": ref(img), "newLayout": val(1)})
	}
	return cmd(OpCmdPipelineBarrier2, Schema.New(VkDependencyInfo, values{
		"bufferMemoryBarriers": {Structs: bb},
		"imageMemoryBarriers":  {Structs: ib},
	}), commandBuffer)
}

// CmdUpdateBufferAddress returns a command writing data at a buffer device
// address.
func CmdUpdateBufferAddress(commandBuffer, buffer identity.ID, offset uint64, data []byte) *api.Cmd {
	return cmd(OpCmdUpdateBufferAddress, Schema.New(VkWriteBufferAddressInfo, values{
		"dstAddress": {ID: buffer, Offset: offset},
		"data":       blob(data),
	}), commandBuffer)
}

// CmdDebugMarkerInsert returns a vkCmdDebugMarkerInsertEXT command.
func CmdDebugMarkerInsert(commandBuffer identity.ID, name string) *api.Cmd {
	return cmd(OpCmdDebugMarkerInsert, Schema.New(VkDebugMarkerMarkerInfo, values{
		"markerName": blob([]byte(name)),
	}), commandBuffer)
}

// EndCommandBuffer returns a vkEndCommandBuffer command.
func EndCommandBuffer(commandBuffer identity.ID) *api.Cmd {
	return cmd(OpEndCommandBuffer, nil, commandBuffer)
}

// QueueSubmit returns a vkQueueSubmit command.
func QueueSubmit(queue identity.ID, commandBuffers ...identity.ID) *api.Cmd {
	return cmd(OpQueueSubmit, Schema.New(VkSubmitInfo, values{
		"commandBuffers": refs(commandBuffers...),
	}), queue)
}

// QueueSubmitTimeline returns a vkQueueSubmit command that signals timeline
// semaphores to the given values.
func QueueSubmitTimeline(queue identity.ID, commandBuffers, signal []identity.ID, signalValues []uint64) *api.Cmd {
	info := Schema.New(VkSubmitInfo, values{
		"commandBuffers":   refs(commandBuffers...),
		"signalSemaphores": refs(signal...),
	})
	info.Chain(Schema.New(VkTimelineSemaphoreSubmitInfo, values{
		"signalSemaphoreValues": {Us: signalValues},
	}))
	return cmd(OpQueueSubmit, info, queue)
}

// QueueBindSparse returns a vkQueueBindSparse command binding a memory range
// into a sparse buffer.
func QueueBindSparse(queue, buffer, memory identity.ID, resourceOffset, size, memoryOffset uint64) *api.Cmd {
	return cmd(OpQueueBindSparse, Schema.New(VkBindSparseInfo, values{
		"buffer":         ref(buffer),
		"memory":         ref(memory),
		"resourceOffset": val(resourceOffset),
		"size":           val(size),
		"memoryOffset":   val(memoryOffset),
	}), queue)
}

// QueuePresent returns a vkQueuePresentKHR command.
func QueuePresent(queue identity.ID, images ...identity.ID) *api.Cmd {
	return cmd(OpQueuePresent, Schema.New(VkPresentInfo, values{"images": refs(images...)}), queue)
}

// Destroy returns the destroy command op for object, owned by parent.
func Destroy(op chunk.Opcode, object identity.ID, parent ...identity.ID) *api.Cmd {
	return cmd(op, nil, append([]identity.ID{object}, parent...)...)
}
