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
	"os"

	"github.com/spf13/cobra"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/replay"
)

func newRepackCommand(opts *rootOptions) *cobra.Command {
	var out, compression string
	cmd := &cobra.Command{
		Use:   "repack <log>",
		Short: "Rewrite a log with another chunk area framing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := opts.ctx
			c, err := chunk.ParseCompression(compression)
			if err != nil {
				return err
			}
			l, err := openLog(ctx, args[0])
			if err != nil {
				return err
			}
			// A log whose chunks do not match its declared count is not
			// rewritten with a new one.
			e := replay.New(vulkan.API, l, opts.driver(), opts.engineOptions("repack"))
			defer e.Close(ctx)
			if _, err := e.RunStructuredPass(ctx); err != nil {
				return err
			}

			before := l.Compression()
			l.SetCompression(c)
			filePath := out
			if filePath == "" {
				filePath = args[0]
			}
			if err := os.WriteFile(filePath, l.Bytes(), 0o644); err != nil {
				return log.Errf(ctx, err, "Writing log %v", filePath)
			}
			log.I(ctx, "Repacked %v from %v to %v", args[0], before, c)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output log (default rewrites the input)")
	cmd.Flags().StringVar(&compression, "compression", chunk.Zstd.String(), "chunk area framing (none|zstd)")
	return cmd
}
