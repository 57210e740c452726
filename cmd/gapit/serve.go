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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapir/client"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/server"
	"github.com/google/gfxreplay/gapis/service"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		addr, token string
		idle        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve replay over grpc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.ConfigFrom(opts.config)
			if cmd.Flags().Changed("auth-token") {
				cfg.AuthToken = token
			}
			if cmd.Flags().Changed("idle-timeout") {
				cfg.IdleTimeout = idle
			}
			if !cmd.Flags().Changed("addr") {
				addr = opts.config.Server.Address
			}
			svc := service.New(vulkan.API, func(context.Context) (api.Driver, error) {
				return opts.driver(), nil
			}, opts.engineOptions("serve"))
			return server.Listen(opts.ctx, addr, svc, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from config)")
	cmd.Flags().StringVar(&token, "auth-token", "", "token clients must present")
	cmd.Flags().DurationVar(&idle, "idle-timeout", 0, "stop after this long without requests")
	return cmd
}

func newRemoteCommand(opts *rootOptions) *cobra.Command {
	var (
		addr, token string
		target      int64
	)
	cmd := &cobra.Command{
		Use:   "remote <log>",
		Short: "Upload a log to a replay server and replay it there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(opts.ctx)
			defer cancel()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return log.Errf(ctx, err, "Reading log %v", args[0])
			}
			if !cmd.Flags().Changed("addr") {
				addr = opts.config.Server.Address
			}
			c, err := client.Connect(ctx, addr, token)
			if err != nil {
				return err
			}
			defer c.Close()
			hbCtx, stopHeartbeat := context.WithCancel(ctx)
			defer stopHeartbeat()
			go c.Heartbeat(hbCtx, client.DefaultHeartbeatInterval)

			h, err := c.OpenLog(ctx, data)
			if err != nil {
				return err
			}
			defer c.CloseLog(ctx, h)
			log.I(ctx, "Opened %v as %v", args[0], h)

			s, err := c.RunStructuredPass(ctx, h)
			if err != nil {
				return err
			}
			initial := make([]string, len(s.InitialState))
			for i, id := range s.InitialState {
				initial[i] = id.String()
			}
			v := newStructureView(s.Events, s.Checkpoints, s.Objects, s.Scopes, s.Frames, initial, s.Requirements, s.Unknown)
			if err := opts.output(cmd.OutOrStdout(), v, v.writeText); err != nil {
				return err
			}

			if target < 0 {
				cursor, err := c.RunActiveFullPass(ctx, h)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", cursor)
				return nil
			}
			cursor, err := c.RunActivePass(ctx, h, uint64(target))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", cursor)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server address (default from config)")
	cmd.Flags().StringVar(&token, "auth-token", "", "token the server expects")
	cmd.Flags().Int64Var(&target, "target", -1, "last event to replay")
	return cmd
}
