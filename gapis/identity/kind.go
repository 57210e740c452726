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

package identity

import "fmt"

// Kind is the kind of API object that owns an identity.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInstance
	KindDevice
	KindQueue
	KindDeviceMemory
	KindBuffer
	KindImage
	KindImageView
	KindFramebuffer
	KindSemaphore
	KindCommandPool
	KindCommandBuffer
	KindDescriptorPool
	KindDescriptorSetLayout
	KindDescriptorSet
	kindCount
)

// Caps is a set of capabilities shared by every object of a Kind.
type Caps uint32

const (
	// Dispatchable objects carry a dispatch table in the real API.
	Dispatchable Caps = 1 << iota
	// HasContents objects own memory whose contents must be snapshot as
	// initial state if a capture writes to them.
	HasContents
	// RecordsCommands objects act as recording scopes.
	RecordsCommands
	// Pooled objects are allocated from, and freed with, a parent pool.
	Pooled
)

type kindInfo struct {
	name string
	caps Caps
}

var kinds = [kindCount]kindInfo{
	KindUnknown:             {"Unknown", 0},
	KindInstance:            {"Instance", Dispatchable},
	KindDevice:              {"Device", Dispatchable},
	KindQueue:               {"Queue", Dispatchable},
	KindDeviceMemory:        {"DeviceMemory", HasContents},
	KindBuffer:              {"Buffer", HasContents},
	KindImage:               {"Image", HasContents},
	KindImageView:           {"ImageView", 0},
	KindFramebuffer:         {"Framebuffer", 0},
	KindSemaphore:           {"Semaphore", 0},
	KindCommandPool:         {"CommandPool", 0},
	KindCommandBuffer:       {"CommandBuffer", Dispatchable | RecordsCommands | Pooled},
	KindDescriptorPool:      {"DescriptorPool", 0},
	KindDescriptorSetLayout: {"DescriptorSetLayout", 0},
	KindDescriptorSet:       {"DescriptorSet", Pooled},
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kinds[k].name
}

// Valid returns true if k is one of the declared kinds.
func (k Kind) Valid() bool { return k > KindUnknown && k < kindCount }

// Caps returns the capability set of the kind.
func (k Kind) Caps() Caps {
	if k >= kindCount {
		return 0
	}
	return kinds[k].caps
}

// Has returns true if the kind has all of the capabilities c.
func (k Kind) Has(c Caps) bool { return k.Caps()&c == c }
