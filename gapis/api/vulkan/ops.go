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

// Package vulkan describes the Vulkan-shaped subset of operations that can be
// recorded into and replayed from chunk logs, and provides a software driver
// to replay them on.
package vulkan

import (
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/patch"
	"github.com/google/gfxreplay/gapis/reference"
)

// Device capabilities.
const (
	CapSparseBinding       api.Capability = "sparseBinding"
	CapBufferDeviceAddress api.Capability = "bufferDeviceAddress"
	CapDebugMarker         api.Capability = "debugMarker"
	CapTimelineSemaphore   api.Capability = "timelineSemaphore"
)

// Opcodes.
const (
	OpCreateInstance             chunk.Opcode = 0x1001
	OpCreateDevice               chunk.Opcode = 0x1002
	OpGetDeviceQueue             chunk.Opcode = 0x1003
	OpCreateBuffer               chunk.Opcode = 0x1004
	OpAllocateMemory             chunk.Opcode = 0x1005
	OpBindBufferMemory2          chunk.Opcode = 0x1006
	OpCreateImage                chunk.Opcode = 0x1007
	OpCreateImageView            chunk.Opcode = 0x1008
	OpCreateFramebuffer          chunk.Opcode = 0x1009
	OpCreateSemaphore            chunk.Opcode = 0x100a
	OpSignalSemaphore            chunk.Opcode = 0x100b
	OpCreateCommandPool          chunk.Opcode = 0x100c
	OpAllocateCommandBuffers     chunk.Opcode = 0x100d
	OpCreateDescriptorPool       chunk.Opcode = 0x100e
	OpCreateDescriptorSetLayout  chunk.Opcode = 0x100f
	OpAllocateDescriptorSets     chunk.Opcode = 0x1010
	OpUpdateDescriptorSets       chunk.Opcode = 0x1011
	OpWriteMappedMemory          chunk.Opcode = 0x1012
	OpDebugMarkerSetObjectName   chunk.Opcode = 0x1013
	OpBeginCommandBuffer         chunk.Opcode = 0x1020
	OpCmdFillBuffer              chunk.Opcode = 0x1021
	OpCmdUpdateBuffer            chunk.Opcode = 0x1022
	OpCmdCopyBuffer2             chunk.Opcode = 0x1023
	OpCmdClearColorImage         chunk.Opcode = 0x1024
	OpCmdPipelineBarrier2        chunk.Opcode = 0x1025
	OpCmdUpdateBufferAddress     chunk.Opcode = 0x1026
	OpCmdDebugMarkerInsert       chunk.Opcode = 0x1027
	OpEndCommandBuffer           chunk.Opcode = 0x1028
	OpQueueSubmit                chunk.Opcode = 0x1030
	OpQueueBindSparse            chunk.Opcode = 0x1031
	OpQueuePresent               chunk.Opcode = 0x1032
	OpDestroyBuffer              chunk.Opcode = 0x1040
	OpFreeMemory                 chunk.Opcode = 0x1041
	OpDestroyImage               chunk.Opcode = 0x1042
	OpDestroyImageView           chunk.Opcode = 0x1043
	OpDestroyFramebuffer         chunk.Opcode = 0x1044
	OpDestroySemaphore           chunk.Opcode = 0x1045
	OpDestroyCommandPool         chunk.Opcode = 0x1046
	OpFreeCommandBuffers         chunk.Opcode = 0x1047
	OpDestroyDescriptorPool      chunk.Opcode = 0x1048
	OpDestroyDescriptorSetLayout chunk.Opcode = 0x1049
	OpFreeDescriptorSets         chunk.Opcode = 0x104a
	OpDestroyDevice              chunk.Opcode = 0x104b
	OpDestroyInstance            chunk.Opcode = 0x104c
)

func create(op chunk.Opcode, name string, kind identity.Kind, params patch.StructType) api.OpInfo {
	return api.OpInfo{Opcode: op, Name: name, Class: api.Create, Kind: kind, Params: params, Primary: reference.Barrier}
}

func destroy(op chunk.Opcode, name string, kind identity.Kind) api.OpInfo {
	return api.OpInfo{Opcode: op, Name: name, Class: api.Destroy, Kind: kind, Primary: reference.Barrier}
}

func scoped(op chunk.Opcode, name string, params patch.StructType, flags api.CmdFlags) api.OpInfo {
	return api.OpInfo{Opcode: op, Name: name, Class: api.Scoped, Params: params, Flags: flags, Primary: reference.Barrier}
}

var ops = []api.OpInfo{
	create(OpCreateInstance, "vkCreateInstance", identity.KindInstance, VkInstanceCreateInfo),
	create(OpCreateDevice, "vkCreateDevice", identity.KindDevice, VkDeviceCreateInfo),
	create(OpGetDeviceQueue, "vkGetDeviceQueue", identity.KindQueue, VkDeviceQueueInfo),
	create(OpCreateBuffer, "vkCreateBuffer", identity.KindBuffer, VkBufferCreateInfo),
	create(OpAllocateMemory, "vkAllocateMemory", identity.KindDeviceMemory, VkMemoryAllocateInfo),
	{Opcode: OpBindBufferMemory2, Name: "vkBindBufferMemory2", Class: api.Immediate, Params: VkBindBufferMemoryInfo, Primary: reference.Barrier},
	create(OpCreateImage, "vkCreateImage", identity.KindImage, VkImageCreateInfo),
	create(OpCreateImageView, "vkCreateImageView", identity.KindImageView, VkImageViewCreateInfo),
	create(OpCreateFramebuffer, "vkCreateFramebuffer", identity.KindFramebuffer, VkFramebufferCreateInfo),
	create(OpCreateSemaphore, "vkCreateSemaphore", identity.KindSemaphore, VkSemaphoreCreateInfo),
	{Opcode: OpSignalSemaphore, Name: "vkSignalSemaphore", Class: api.Immediate, Params: VkSemaphoreSignalInfo,
		Primary: reference.Barrier, Requires: []api.Capability{CapTimelineSemaphore}},
	create(OpCreateCommandPool, "vkCreateCommandPool", identity.KindCommandPool, VkCommandPoolCreateInfo),
	create(OpAllocateCommandBuffers, "vkAllocateCommandBuffers", identity.KindCommandBuffer, VkCommandBufferAllocateInfo),
	create(OpCreateDescriptorPool, "vkCreateDescriptorPool", identity.KindDescriptorPool, VkDescriptorPoolCreateInfo),
	create(OpCreateDescriptorSetLayout, "vkCreateDescriptorSetLayout", identity.KindDescriptorSetLayout, VkDescriptorSetLayoutCreateInfo),
	create(OpAllocateDescriptorSets, "vkAllocateDescriptorSets", identity.KindDescriptorSet, VkDescriptorSetAllocateInfo),
	{Opcode: OpUpdateDescriptorSets, Name: "vkUpdateDescriptorSets", Class: api.Immediate, Params: VkUpdateDescriptorSetsInfo, Primary: reference.Barrier},
	{Opcode: OpWriteMappedMemory, Name: "vkWriteMappedMemory", Class: api.Immediate, Params: VkWriteMemoryInfo,
		Primary: reference.Barrier, Flags: api.Transfer},
	{Opcode: OpDebugMarkerSetObjectName, Name: "vkDebugMarkerSetObjectNameEXT", Class: api.Immediate, Params: VkDebugMarkerObjectNameInfo,
		Primary: reference.Barrier, Flags: api.UserMarker, Requires: []api.Capability{CapDebugMarker}, Skippable: true},

	{Opcode: OpBeginCommandBuffer, Name: "vkBeginCommandBuffer", Class: api.ScopeBegin, Params: VkCommandBufferBeginInfo, Primary: reference.Barrier},
	scoped(OpCmdFillBuffer, "vkCmdFillBuffer", VkFillBufferInfo, api.Transfer),
	scoped(OpCmdUpdateBuffer, "vkCmdUpdateBuffer", VkUpdateBufferInfo, api.Transfer),
	scoped(OpCmdCopyBuffer2, "vkCmdCopyBuffer2", VkCopyBufferInfo2, api.Transfer),
	scoped(OpCmdClearColorImage, "vkCmdClearColorImage", VkClearColorImageInfo, api.Clear),
	scoped(OpCmdPipelineBarrier2, "vkCmdPipelineBarrier2", VkDependencyInfo, 0),
	{Opcode: OpCmdUpdateBufferAddress, Name: "vkCmdUpdateBufferAddress", Class: api.Scoped, Params: VkWriteBufferAddressInfo,
		Primary: reference.Barrier, Flags: api.Transfer, Requires: []api.Capability{CapBufferDeviceAddress}},
	{Opcode: OpCmdDebugMarkerInsert, Name: "vkCmdDebugMarkerInsertEXT", Class: api.Scoped, Params: VkDebugMarkerMarkerInfo,
		Primary: reference.Barrier, Flags: api.UserMarker, Requires: []api.Capability{CapDebugMarker}, Skippable: true},
	{Opcode: OpEndCommandBuffer, Name: "vkEndCommandBuffer", Class: api.ScopeEnd, Primary: reference.Barrier},

	{Opcode: OpQueueSubmit, Name: "vkQueueSubmit", Class: api.Immediate, Params: VkSubmitInfo,
		Primary: reference.Barrier, Flags: api.Submission},
	{Opcode: OpQueueBindSparse, Name: "vkQueueBindSparse", Class: api.Immediate, Params: VkBindSparseInfo,
		Primary: reference.Barrier, Requires: []api.Capability{CapSparseBinding}},
	{Opcode: OpQueuePresent, Name: "vkQueuePresentKHR", Class: api.FrameBoundary, Params: VkPresentInfo,
		Primary: reference.Barrier, Flags: api.EndOfFrame},

	destroy(OpDestroyBuffer, "vkDestroyBuffer", identity.KindBuffer),
	destroy(OpFreeMemory, "vkFreeMemory", identity.KindDeviceMemory),
	destroy(OpDestroyImage, "vkDestroyImage", identity.KindImage),
	destroy(OpDestroyImageView, "vkDestroyImageView", identity.KindImageView),
	destroy(OpDestroyFramebuffer, "vkDestroyFramebuffer", identity.KindFramebuffer),
	destroy(OpDestroySemaphore, "vkDestroySemaphore", identity.KindSemaphore),
	destroy(OpDestroyCommandPool, "vkDestroyCommandPool", identity.KindCommandPool),
	destroy(OpFreeCommandBuffers, "vkFreeCommandBuffers", identity.KindCommandBuffer),
	destroy(OpDestroyDescriptorPool, "vkDestroyDescriptorPool", identity.KindDescriptorPool),
	destroy(OpDestroyDescriptorSetLayout, "vkDestroyDescriptorSetLayout", identity.KindDescriptorSetLayout),
	destroy(OpFreeDescriptorSets, "vkFreeDescriptorSets", identity.KindDescriptorSet),
	destroy(OpDestroyDevice, "vkDestroyDevice", identity.KindDevice),
	destroy(OpDestroyInstance, "vkDestroyInstance", identity.KindInstance),
}

// API is the Vulkan api description.
var API = api.New("Vulkan", Schema, ops...)

func init() {
	api.Register(API)
}
