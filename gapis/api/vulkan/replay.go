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

package vulkan

import (
	"context"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
)

// GetReplayPriority returns a uint32 representing the preference for
// replaying a log with the requirements reqs on the given device.
// A lower number represents a higher priority, and Zero represents
// an inability for the log to be replayed on the given device.
func GetReplayPriority(ctx context.Context, dev api.Device, reqs []api.Requirement) uint32 {
	priority := uint32(1)
	for _, r := range reqs {
		if dev.Capabilities.Has(r.Capability) {
			continue
		}
		if !r.Skippable {
			log.D(ctx, "%v cannot replay: missing %v first needed at event %v", dev.Name, r.Capability, r.FirstEvent)
			return 0
		}
		// Replayable, but some operations will be skipped.
		priority = 2
	}
	return priority
}
