// Copyright (C) 2020 Google Inc.
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
	"os"

	"github.com/spf13/cobra"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/framegraph"
)

func newFramegraphCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "framegraph <log>",
		Short: "Create frame graph from a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := opts.ctx
			l, err := openLog(ctx, args[0])
			if err != nil {
				return err
			}

			log.I(ctx, "Creating frame graph from log: %s", args[0])
			fg, err := vulkan.GetFramegraph(ctx, l, opts.driver())
			if err != nil {
				return log.Errf(ctx, err, "GetFramegraph(%v)", args[0])
			}

			filePath := out
			if filePath == "" {
				filePath = "framegraph.dot"
			}
			if filePath == "-" {
				return framegraph.WriteDOT(cmd.OutOrStdout(), fg)
			}

			file, err := os.Create(filePath)
			if err != nil {
				return log.Errf(ctx, err, "Creating file (%v)", filePath)
			}
			defer file.Close()

			if err := framegraph.WriteDOT(file, fg); err != nil {
				return log.Errf(ctx, err, "Writing frame graph to %v", filePath)
			}
			log.I(ctx, "Frame graph with %d nodes and %d edges written to %v", len(fg.Nodes), len(fg.Edges), filePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output DOT file, - for stdout (default framegraph.dot)")
	return cmd
}
