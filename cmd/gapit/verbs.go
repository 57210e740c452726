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

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/reference"
	"github.com/google/gfxreplay/gapis/replay"
	"github.com/google/gfxreplay/gapis/replay/devices"
	"github.com/google/gfxreplay/gapis/resolve"
)

type usageView struct {
	ID     string `yaml:"id"`
	Event  uint64 `yaml:"event"`
	Access string `yaml:"access"`
}

func usageViews(us []reference.Usage) []usageView {
	out := make([]usageView, len(us))
	for i, u := range us {
		out[i] = usageView{ID: u.ID.String(), Event: u.EventID, Access: u.Access.String()}
	}
	return out
}

type scopeView struct {
	Scope string      `yaml:"scope"`
	Begin uint64      `yaml:"begin"`
	End   uint64      `yaml:"end"`
	Usage []usageView `yaml:"usage"`
}

type requirementView struct {
	Capability string `yaml:"capability"`
	FirstEvent uint64 `yaml:"first_event"`
	Skippable  bool   `yaml:"skippable"`
}

func requirementViews(reqs []api.Requirement) []requirementView {
	out := make([]requirementView, len(reqs))
	for i, r := range reqs {
		out[i] = requirementView{string(r.Capability), uint64(r.FirstEvent), r.Skippable}
	}
	return out
}

type structureView struct {
	Events       uint64            `yaml:"events"`
	Checkpoints  int               `yaml:"checkpoints"`
	Objects      map[string]int    `yaml:"objects"`
	Scopes       []scopeView       `yaml:"scopes"`
	Frames       []scopeView       `yaml:"frames"`
	InitialState []string          `yaml:"initial_state"`
	Requirements []requirementView `yaml:"requirements"`
	Unknown      []uint64          `yaml:"unknown,omitempty"`
}

func newStructureView(events uint64, checkpoints int, objects map[string]int, scopes, frames []replay.ScopeUsage, initial []string, reqs []api.Requirement, unknown []uint64) structureView {
	views := func(in []replay.ScopeUsage) []scopeView {
		out := make([]scopeView, len(in))
		for i, s := range in {
			out[i] = scopeView{s.Scope.String(), s.Begin, s.End, usageViews(s.Usage)}
		}
		return out
	}
	return structureView{
		Events:       events,
		Checkpoints:  checkpoints,
		Objects:      objects,
		Scopes:       views(scopes),
		Frames:       views(frames),
		InitialState: initial,
		Requirements: requirementViews(reqs),
		Unknown:      unknown,
	}
}

func (v structureView) writeText(w io.Writer) error {
	fmt.Fprintf(w, "events:      %d\n", v.Events)
	fmt.Fprintf(w, "checkpoints: %d\n", v.Checkpoints)
	kinds := make([]string, 0, len(v.Objects))
	for k := range v.Objects {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "objects:     %-20s %d\n", k, v.Objects[k])
	}
	for _, s := range v.Scopes {
		fmt.Fprintf(w, "scope %v [%d, %d]: %d identities\n", s.Scope, s.Begin, s.End, len(s.Usage))
	}
	for i, f := range v.Frames {
		fmt.Fprintf(w, "frame %d [%d, %d]: %d identities\n", i, f.Begin, f.End, len(f.Usage))
	}
	fmt.Fprintf(w, "initial state: %d identities\n", len(v.InitialState))
	for _, r := range v.Requirements {
		writeRequirement(w, r)
	}
	if len(v.Unknown) > 0 {
		fmt.Fprintf(w, "unknown chunks at events %v\n", v.Unknown)
	}
	return nil
}

func writeRequirement(w io.Writer, r requirementView) {
	skip := ""
	if r.Skippable {
		skip = " (skippable)"
	}
	fmt.Fprintf(w, "requires %v from event %d%s\n", r.Capability, r.FirstEvent, skip)
}

func structureViewOf(s *replay.Structure) structureView {
	objects := map[string]int{}
	for k, n := range s.Objects {
		objects[k.String()] = n
	}
	initial := make([]string, len(s.InitialState))
	for i, id := range s.InitialState {
		initial[i] = id.String()
	}
	checkpoints := 0
	if s.Index != nil {
		checkpoints = len(s.Index.Checkpoints)
	}
	return newStructureView(s.Events, checkpoints, objects, s.Scopes, s.Frames, initial, s.Requirements, s.Unknown)
}

func newDescribeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <log>",
		Short: "List the commands of a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLog(opts.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", l.Header())
			return replay.Describe(cmd.OutOrStdout(), vulkan.API, l)
		},
	}
}

func newStructureCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "structure <log>",
		Short: "Run the structured pass over a log and summarise it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, s, err := opts.structured(args[0])
			if err != nil {
				return err
			}
			defer e.Close(opts.ctx)
			v := structureViewOf(s)
			return opts.output(cmd.OutOrStdout(), v, v.writeText)
		},
	}
}

func newReplayCommand(opts *rootOptions) *cobra.Command {
	target := int64(-1)
	cmd := &cobra.Command{
		Use:   "replay <log>",
		Short: "Replay a log on the configured device",
		Long: `Replay a log on the configured soft device, up to and including
the target event, or to the end of the log if no target is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, s, err := opts.structured(args[0])
			if err != nil {
				return err
			}
			defer e.Close(opts.ctx)
			var c replay.Cursor
			if target < 0 {
				c, err = e.RunActiveFullPass(opts.ctx)
			} else {
				c, err = e.RunActivePass(opts.ctx, uint64(target))
			}
			if err != nil {
				return err
			}
			log.I(opts.ctx, "Replayed %d of %d events on %v", c.EventID+1, s.Events, e.Driver().Device().Name)
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", c)
			return nil
		},
	}
	cmd.Flags().Int64Var(&target, "target", -1, "last event to replay")
	return cmd
}

func newUsageCommand(opts *rootOptions) *cobra.Command {
	var from, to uint64
	cmd := &cobra.Command{
		Use:   "usage <log>",
		Short: "List the identities touched by a range of events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, s, err := opts.structured(args[0])
			if err != nil {
				return err
			}
			defer e.Close(opts.ctx)
			if !cmd.Flags().Changed("to") && s.Events > 0 {
				to = s.Events - 1
			}
			usage, err := e.ResourceUsage(from, to)
			if err != nil {
				return err
			}
			views := usageViews(usage)
			return opts.output(cmd.OutOrStdout(), views, func(w io.Writer) error {
				for _, u := range views {
					fmt.Fprintf(w, "%6d %-13s %s\n", u.Event, u.Access, u.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first event of the range")
	cmd.Flags().Uint64Var(&to, "to", 0, "last event of the range (default last event of the log)")
	return cmd
}

func newRequirementsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "requirements <log>",
		Short: "List the device capabilities a log needs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.structured(args[0])
			if err != nil {
				return err
			}
			defer e.Close(opts.ctx)
			reqs, err := e.Requirements()
			if err != nil {
				return err
			}
			views := requirementViews(reqs)
			return opts.output(cmd.OutOrStdout(), views, func(w io.Writer) error {
				for _, r := range views {
					writeRequirement(w, r)
				}
				return nil
			})
		},
	}
}

// parseDevice parses a name:cap1,cap2 device description.
func parseDevice(s string) api.Device {
	name, list, _ := strings.Cut(s, ":")
	var caps []api.Capability
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, api.Capability(c))
		}
	}
	return api.Device{Name: name, Capabilities: api.NewCapabilities(caps...)}
}

func newDevicesCommand(opts *rootOptions) *cobra.Command {
	var descs []string
	cmd := &cobra.Command{
		Use:   "devices <log>",
		Short: "Rank replay devices by how well they can replay a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, s, err := opts.structured(args[0])
			if err != nil {
				return err
			}
			defer e.Close(opts.ctx)
			all := []api.Device{opts.driver().Device()}
			for _, d := range descs {
				all = append(all, parseDevice(d))
			}
			_, compat := devices.ForReplay(opts.ctx, s.Requirements, devices.Sorted(all), vulkan.GetReplayPriority)
			w := cmd.OutOrStdout()
			for _, c := range compat {
				state := "compatible, priority " + strconv.Itoa(int(c.Priority))
				if !c.Compatible {
					state = "incompatible"
				}
				fmt.Fprintf(w, "%-16s %v", c.Device.Name, state)
				if len(c.Missing) > 0 {
					fmt.Fprintf(w, ", missing %v", api.NewCapabilities(c.Missing...))
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&descs, "device", nil, "extra device as name:cap1,cap2")
	return cmd
}

func newAttachmentsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attachments <log>",
		Short: "List the changes of the visible framebuffer attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLog(opts.ctx, args[0])
			if err != nil {
				return err
			}
			changes, err := resolve.FramebufferChanges(opts.ctx, l)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i := 0; i < changes.Count(); i++ {
				fmt.Fprintf(w, "attachment %d:\n", i)
				for _, c := range changes.Changes(i) {
					if c.Err != nil {
						fmt.Fprintf(w, "  after %6d: %v\n", c.After, c.Err)
						continue
					}
					fmt.Fprintf(w, "  after %6d: %v %dx%d format %d resizable %v\n",
						c.After, c.Image, c.Width, c.Height, c.Format, c.CanResize)
				}
			}
			return nil
		},
	}
}
