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
	"github.com/google/gfxreplay/gapis/patch"
	"github.com/google/gfxreplay/gapis/reference"
)

// VkStructureType values of the parameter structures.
const (
	VkInstanceCreateInfo            patch.StructType = 1
	VkDeviceCreateInfo              patch.StructType = 3
	VkSubmitInfo                    patch.StructType = 4
	VkMemoryAllocateInfo            patch.StructType = 5
	VkBindSparseInfo                patch.StructType = 7
	VkSemaphoreCreateInfo           patch.StructType = 9
	VkBufferCreateInfo              patch.StructType = 12
	VkImageCreateInfo               patch.StructType = 14
	VkImageViewCreateInfo           patch.StructType = 15
	VkDescriptorSetLayoutCreateInfo patch.StructType = 32
	VkDescriptorPoolCreateInfo      patch.StructType = 33
	VkDescriptorSetAllocateInfo     patch.StructType = 34
	VkWriteDescriptorSet            patch.StructType = 35
	VkFramebufferCreateInfo         patch.StructType = 37
	VkCommandPoolCreateInfo         patch.StructType = 39
	VkCommandBufferAllocateInfo     patch.StructType = 40
	VkCommandBufferBeginInfo        patch.StructType = 42
	VkPresentInfo                   patch.StructType = 1000001001
	VkDebugMarkerObjectNameInfo     patch.StructType = 1000022000
	VkDebugMarkerMarkerInfo         patch.StructType = 1000022002
	VkMemoryDedicatedAllocateInfo   patch.StructType = 1000127001
	VkBindBufferMemoryInfo          patch.StructType = 1000157000
	VkSemaphoreTypeCreateInfo       patch.StructType = 1000207002
	VkTimelineSemaphoreSubmitInfo   patch.StructType = 1000207003
	VkBufferMemoryBarrier2          patch.StructType = 1000314001
	VkImageMemoryBarrier2           patch.StructType = 1000314002
	VkDependencyInfo                patch.StructType = 1000314003
	VkCopyBufferInfo2               patch.StructType = 1000337000
	VkBufferCopy2                   patch.StructType = 1000337006
	VkDescriptorSetLayoutBinding    patch.StructType = 0x7f000001
	VkDeviceQueueInfo               patch.StructType = 0x7f000002
	VkFillBufferInfo                patch.StructType = 0x7f000003
	VkUpdateBufferInfo              patch.StructType = 0x7f000004
	VkClearColorImageInfo           patch.StructType = 0x7f000005
	VkWriteBufferAddressInfo        patch.StructType = 0x7f000006
	VkWriteMemoryInfo               patch.StructType = 0x7f000007
	VkUpdateDescriptorSetsInfo      patch.StructType = 0x7f000008
	VkDescriptorBufferInfo          patch.StructType = 0x7f000009
	VkSemaphoreSignalInfo           patch.StructType = 0x7f00000a
	VkPhysicalDeviceFeatureRequest  patch.StructType = 0x7f00000b
	VkExternalFormatANDROID         patch.StructType = 1000129005
)

// VK_WHOLE_SIZE
const WholeSize = ^uint64(0)

// Semaphore types.
const (
	SemaphoreTypeBinary   = 0
	SemaphoreTypeTimeline = 1
)

func scalar(name string, size uint64) patch.Field {
	return patch.Field{Name: name, Kind: patch.Scalar, Size: size}
}

func handle(name string, a reference.Access) patch.Field {
	return patch.Field{Name: name, Kind: patch.Handle, Access: a}
}

func handles(name string, a reference.Access) patch.Field {
	return patch.Field{Name: name, Kind: patch.HandleArray, Access: a}
}

func scalars(name string, size uint64) patch.Field {
	return patch.Field{Name: name, Kind: patch.ScalarArray, Size: size}
}

func structs(name string, elem patch.StructType) patch.Field {
	return patch.Field{Name: name, Kind: patch.StructArray, Elem: elem}
}

func byteArray(name string) patch.Field { return patch.Field{Name: name, Kind: patch.Bytes} }

// Schema is the closed set of parameter structures replay can patch.
// VkExternalFormatANDROID has no layout: logs chaining
// it fail with an unsupported chained structure error.
var Schema = patch.NewSchema("1.3.0",
	patch.Layout{Type: VkInstanceCreateInfo, Name: "VkInstanceCreateInfo", Fields: []patch.Field{
		scalar("apiVersion", 4),
		byteArray("applicationName"),
	}},
	patch.Layout{Type: VkDeviceCreateInfo, Name: "VkDeviceCreateInfo", Fields: []patch.Field{
		scalar("queueCreateInfoCount", 4),
		{Name: "features", Kind: patch.StructPtr, Elem: VkPhysicalDeviceFeatureRequest},
	}},
	patch.Layout{Type: VkPhysicalDeviceFeatureRequest, Name: "VkPhysicalDeviceFeatureRequest", Fields: []patch.Field{
		byteArray("enabled"),
	}},
	patch.Layout{Type: VkDeviceQueueInfo, Name: "VkDeviceQueueInfo", Fields: []patch.Field{
		scalar("queueFamilyIndex", 4),
		scalar("queueIndex", 4),
	}},
	patch.Layout{Type: VkBufferCreateInfo, Name: "VkBufferCreateInfo", Fields: []patch.Field{
		scalar("flags", 4),
		scalar("size", 8),
		scalar("usage", 4),
	}},
	patch.Layout{Type: VkMemoryAllocateInfo, Name: "VkMemoryAllocateInfo", Fields: []patch.Field{
		scalar("allocationSize", 8),
		scalar("memoryTypeIndex", 4),
	}},
	patch.Layout{Type: VkMemoryDedicatedAllocateInfo, Name: "VkMemoryDedicatedAllocateInfo", Fields: []patch.Field{
		handle("image", reference.Barrier),
		handle("buffer", reference.Barrier),
	}},
	patch.Layout{Type: VkBindBufferMemoryInfo, Name: "VkBindBufferMemoryInfo", Fields: []patch.Field{
		handle("buffer", reference.Barrier),
		handle("memory", reference.Barrier),
		scalar("memoryOffset", 8),
	}},
	patch.Layout{Type: VkImageCreateInfo, Name: "VkImageCreateInfo", Fields: []patch.Field{
		scalar("format", 4),
		scalar("width", 4),
		scalar("height", 4),
		scalar("mipLevels", 4),
		scalar("usage", 4),
	}},
	patch.Layout{Type: VkImageViewCreateInfo, Name: "VkImageViewCreateInfo", Fields: []patch.Field{
		handle("image", reference.Read),
		scalar("format", 4),
	}},
	patch.Layout{Type: VkFramebufferCreateInfo, Name: "VkFramebufferCreateInfo", Fields: []patch.Field{
		handles("attachments", reference.Read),
		scalar("width", 4),
		scalar("height", 4),
	}},
	patch.Layout{Type: VkSemaphoreCreateInfo, Name: "VkSemaphoreCreateInfo", Fields: []patch.Field{
		scalar("flags", 4),
	}},
	patch.Layout{Type: VkSemaphoreTypeCreateInfo, Name: "VkSemaphoreTypeCreateInfo", Fields: []patch.Field{
		scalar("semaphoreType", 4),
		scalar("initialValue", 8),
	}},
	patch.Layout{Type: VkSemaphoreSignalInfo, Name: "VkSemaphoreSignalInfo", Fields: []patch.Field{
		handle("semaphore", reference.Write),
		scalar("value", 8),
	}},
	patch.Layout{Type: VkCommandPoolCreateInfo, Name: "VkCommandPoolCreateInfo", Fields: []patch.Field{
		scalar("flags", 4),
		scalar("queueFamilyIndex", 4),
	}},
	patch.Layout{Type: VkCommandBufferAllocateInfo, Name: "VkCommandBufferAllocateInfo", Fields: []patch.Field{
		handle("commandPool", reference.Barrier),
		scalar("level", 4),
	}},
	patch.Layout{Type: VkCommandBufferBeginInfo, Name: "VkCommandBufferBeginInfo", Fields: []patch.Field{
		scalar("flags", 4),
	}},
	patch.Layout{Type: VkDescriptorPoolCreateInfo, Name: "VkDescriptorPoolCreateInfo", Fields: []patch.Field{
		scalar("maxSets", 4),
	}},
	patch.Layout{Type: VkDescriptorSetLayoutBinding, Name: "VkDescriptorSetLayoutBinding", Fields: []patch.Field{
		scalar("binding", 4),
		scalar("descriptorType", 4),
		scalar("descriptorCount", 4),
	}},
	patch.Layout{Type: VkDescriptorSetLayoutCreateInfo, Name: "VkDescriptorSetLayoutCreateInfo", Fields: []patch.Field{
		structs("bindings", VkDescriptorSetLayoutBinding),
	}},
	patch.Layout{Type: VkDescriptorSetAllocateInfo, Name: "VkDescriptorSetAllocateInfo", Fields: []patch.Field{
		handle("descriptorPool", reference.Barrier),
		handles("setLayouts", reference.Read),
	}},
	patch.Layout{Type: VkDescriptorBufferInfo, Name: "VkDescriptorBufferInfo", Fields: []patch.Field{
		handle("buffer", reference.Read),
		scalar("offset", 8),
		scalar("range", 8),
	}},
	patch.Layout{Type: VkWriteDescriptorSet, Name: "VkWriteDescriptorSet", Fields: []patch.Field{
		handle("dstSet", reference.PartialWrite),
		scalar("dstBinding", 4),
		structs("bufferInfo", VkDescriptorBufferInfo),
	}},
	patch.Layout{Type: VkUpdateDescriptorSetsInfo, Name: "VkUpdateDescriptorSetsInfo", Fields: []patch.Field{
		structs("writes", VkWriteDescriptorSet),
	}},
	patch.Layout{Type: VkFillBufferInfo, Name: "VkFillBufferInfo", Fields: []patch.Field{
		handle("dstBuffer", reference.PartialWrite),
		scalar("dstOffset", 8),
		scalar("size", 8),
		scalar("data", 4),
	}},
	patch.Layout{Type: VkUpdateBufferInfo, Name: "VkUpdateBufferInfo", Fields: []patch.Field{
		handle("dstBuffer", reference.PartialWrite),
		scalar("dstOffset", 8),
		byteArray("data"),
	}},
	patch.Layout{Type: VkBufferCopy2, Name: "VkBufferCopy2", Fields: []patch.Field{
		scalar("srcOffset", 8),
		scalar("dstOffset", 8),
		scalar("size", 8),
	}},
	patch.Layout{Type: VkCopyBufferInfo2, Name: "VkCopyBufferInfo2", Fields: []patch.Field{
		handle("srcBuffer", reference.Read),
		handle("dstBuffer", reference.PartialWrite),
		structs("regions", VkBufferCopy2),
	}},
	patch.Layout{Type: VkClearColorImageInfo, Name: "VkClearColorImageInfo", Fields: []patch.Field{
		handle("image", reference.Write),
		scalars("color", 4),
	}},
	patch.Layout{Type: VkWriteBufferAddressInfo, Name: "VkWriteBufferAddressInfo", Fields: []patch.Field{
		{Name: "dstAddress", Kind: patch.Address, Access: reference.PartialWrite},
		byteArray("data"),
	}},
	patch.Layout{Type: VkBufferMemoryBarrier2, Name: "VkBufferMemoryBarrier2", Fields: []patch.Field{
		handle("buffer", reference.Barrier),
		scalar("offset", 8),
		scalar("size", 8),
	}},
	patch.Layout{Type: VkImageMemoryBarrier2, Name: "VkImageMemoryBarrier2", Fields: []patch.Field{
		handle("image", reference.Barrier),
		scalar("oldLayout", 4),
		scalar("newLayout", 4),
	}},
	patch.Layout{Type: VkDependencyInfo, Name: "VkDependencyInfo", Fields: []patch.Field{
		scalar("dependencyFlags", 4),
		structs("bufferMemoryBarriers", VkBufferMemoryBarrier2),
		structs("imageMemoryBarriers", VkImageMemoryBarrier2),
	}},
	patch.Layout{Type: VkSubmitInfo, Name: "VkSubmitInfo", Fields: []patch.Field{
		handles("waitSemaphores", reference.Barrier),
		handles("commandBuffers", reference.Read),
		handles("signalSemaphores", reference.Write),
	}},
	patch.Layout{Type: VkTimelineSemaphoreSubmitInfo, Name: "VkTimelineSemaphoreSubmitInfo", Fields: []patch.Field{
		scalars("waitSemaphoreValues", 8),
		scalars("signalSemaphoreValues", 8),
	}},
	patch.Layout{Type: VkBindSparseInfo, Name: "VkBindSparseInfo", Fields: []patch.Field{
		handle("buffer", reference.PartialWrite),
		handle("memory", reference.Read),
		scalar("resourceOffset", 8),
		scalar("size", 8),
		scalar("memoryOffset", 8),
	}},
	patch.Layout{Type: VkWriteMemoryInfo, Name: "VkWriteMemoryInfo", Fields: []patch.Field{
		handle("memory", reference.PartialWrite),
		scalar("offset", 8),
		byteArray("data"),
	}},
	patch.Layout{Type: VkDebugMarkerObjectNameInfo, Name: "VkDebugMarkerObjectNameInfo", Fields: []patch.Field{
		handle("object", reference.Barrier),
		byteArray("objectName"),
	}},
	patch.Layout{Type: VkDebugMarkerMarkerInfo, Name: "VkDebugMarkerMarkerInfo", Fields: []patch.Field{
		byteArray("markerName"),
		scalars("color", 4),
	}},
	patch.Layout{Type: VkPresentInfo, Name: "VkPresentInfo", Fields: []patch.Field{
		handles("waitSemaphores", reference.Barrier),
		handles("images", reference.Read),
	}},
)
