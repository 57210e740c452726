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

// Package devices contains functions for gathering devices that can replay a
// log.
package devices

import (
	"context"
	"sort"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
)

// Priority returns the preference for replaying a log with the requirements
// reqs on dev. A lower number is preferred and zero means the log cannot be
// replayed on dev.
type Priority func(ctx context.Context, dev api.Device, reqs []api.Requirement) uint32

// Compatibility explains whether a device can replay a log.
type Compatibility struct {
	Device   api.Device
	Priority uint32
	// Missing lists the required capabilities the device lacks.
	Missing    []api.Capability
	Compatible bool
}

// ForReplay returns the devices of all capable of replaying a log with the
// requirements reqs, sorted by priority, along with the compatibility of
// every device: compatible ones first in the same order, then the others.
func ForReplay(ctx context.Context, reqs []api.Requirement, all []api.Device, priority Priority) ([]api.Device, []Compatibility) {
	needed := make([]api.Capability, len(reqs))
	for i, r := range reqs {
		needed[i] = r.Capability
	}

	compatible, incompatible := []Compatibility{}, []Compatibility{}
	for _, dev := range Sorted(all) {
		ctx := log.V{"device": dev.Name}.Bind(ctx)
		p := priority(ctx, dev, reqs)
		c := Compatibility{Device: dev, Priority: p, Missing: dev.Capabilities.Missing(needed), Compatible: p != 0}
		if c.Compatible {
			log.D(ctx, "Compatible %d", p)
			compatible = append(compatible, c)
		} else {
			incompatible = append(incompatible, c)
		}
	}
	sort.SliceStable(compatible, func(i, j int) bool { return compatible[i].Priority < compatible[j].Priority })

	devices := make([]api.Device, len(compatible))
	for i, c := range compatible {
		devices[i] = c.Device
	}
	return devices, append(compatible, incompatible...)
}

// Sorted returns all devices sorted by the number of capabilities they
// have, most first, then by name.
func Sorted(all []api.Device) []api.Device {
	out := append([]api.Device(nil), all...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := len(out[i].Capabilities.List()), len(out[j].Capabilities.List())
		if a != b {
			return a > b
		}
		return out[i].Name < out[j].Name
	})
	return out
}
