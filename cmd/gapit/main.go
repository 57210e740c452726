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

// The gapit command inspects, replays and serves chunk logs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/vulkan"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/config"
	"github.com/google/gfxreplay/gapis/replay"
)

// rootOptions holds the flags shared by every verb.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	LogStyle   string
	Format     string

	ctx    context.Context
	config *config.Config
}

var logStyles = map[string]log.Style{
	log.Brief.Name:    log.Brief,
	log.Normal.Name:   log.Normal,
	log.Detailed.Name: log.Detailed,
}

func newRootCommand(ctx context.Context) *cobra.Command {
	opts := &rootOptions{ctx: ctx}
	cmd := &cobra.Command{
		Use:           "gapit",
		Short:         "Inspect and replay graphics chunk logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "replay configuration document")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log severity, overrides the configured level")
	cmd.PersistentFlags().StringVar(&opts.LogStyle, "log-style", log.Normal.Name, "log style (brief|normal|detailed)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|yaml)")

	cmd.AddCommand(
		newDescribeCommand(opts),
		newStructureCommand(opts),
		newReplayCommand(opts),
		newUsageCommand(opts),
		newRequirementsCommand(opts),
		newDevicesCommand(opts),
		newAttachmentsCommand(opts),
		newFramegraphCommand(opts),
		newRepackCommand(opts),
		newServeCommand(opts),
		newRemoteCommand(opts),
	)
	return cmd
}

func (opts *rootOptions) setup() error {
	c := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if c, err = config.Load(opts.ConfigPath); err != nil {
			return err
		}
	}
	if opts.LogLevel != "" {
		c.LogLevel = opts.LogLevel
		if err := c.Validate(); err != nil {
			return err
		}
	}
	style, ok := logStyles[opts.LogStyle]
	if !ok {
		return errors.Errorf("invalid log style %q", opts.LogStyle)
	}
	if opts.Format != "text" && opts.Format != "yaml" {
		return errors.Errorf("invalid format %q: must be text or yaml", opts.Format)
	}
	opts.config = c
	opts.ctx = log.PutHandler(opts.ctx, style.Handler(log.Std()))
	opts.ctx = log.PutFilter(opts.ctx, log.SeverityFilter(c.Severity()))
	return nil
}

// driver returns the configured soft replay device.
func (opts *rootOptions) driver() *vulkan.SoftDevice {
	caps := make([]api.Capability, len(opts.config.Device.Capabilities))
	for i, c := range opts.config.Device.Capabilities {
		caps[i] = api.Capability(c)
	}
	return vulkan.NewSoftDevice(opts.config.Device.Name, caps...)
}

func (opts *rootOptions) engineOptions(tag string) replay.Options {
	o := replay.OptionsFromConfig(opts.config)
	o.Tag = tag
	return o
}

// structured opens the log at path and runs the structured pass over it.
// The caller closes the returned engine.
func (opts *rootOptions) structured(path string) (*replay.Engine, *replay.Structure, error) {
	l, err := openLog(opts.ctx, path)
	if err != nil {
		return nil, nil, err
	}
	e := replay.New(vulkan.API, l, opts.driver(), opts.engineOptions("gapit"))
	s, err := e.RunStructuredPass(opts.ctx)
	if err != nil {
		e.Close(opts.ctx)
		return nil, nil, err
	}
	return e, s, nil
}

// output writes v as yaml when the yaml format is selected, otherwise it
// calls text.
func (opts *rootOptions) output(w io.Writer, v interface{}, text func(io.Writer) error) error {
	if opts.Format == "yaml" {
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(v); err != nil {
			return err
		}
		return e.Close()
	}
	return text(w)
}

func openLog(ctx context.Context, path string) (*chunk.Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, log.Errf(ctx, err, "Reading log %v", path)
	}
	l, err := chunk.Open(data)
	if err != nil {
		return nil, log.Errf(ctx, err, "Opening log %v", path)
	}
	return l, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(ctx).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gapit: %v\n", err)
		os.Exit(1)
	}
}
