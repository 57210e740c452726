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

package config

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/google/gfxreplay/core/log"
)

// Config is the replay configuration document.
type Config struct {
	// CheckpointInterval is the minimum number of events between two
	// checkpoints of the seek index.
	CheckpointInterval uint64 `yaml:"checkpoint_interval"`
	// DefaultSkips allows skipping every operation the api marks skippable.
	DefaultSkips bool `yaml:"default_skips"`
	// SkipAllowList names further operations that may be skipped when the
	// replay device lacks a capability they need.
	SkipAllowList []string     `yaml:"skip_allow_list"`
	Device        DeviceConfig `yaml:"device"`
	Server        ServerConfig `yaml:"server"`
	LogLevel      string       `yaml:"log_level"`
}

// DeviceConfig describes the soft replay device.
type DeviceConfig struct {
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
}

// ServerConfig configures the replay service.
type ServerConfig struct {
	Address        string `yaml:"address"`
	AuthToken      string `yaml:"auth_token"`
	MaxConnections int    `yaml:"max_connections"`
	// IdleTimeout stops the server after that long without requests.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Default returns the configuration used when no document is given.
func Default() *Config {
	return &Config{
		CheckpointInterval: 64,
		DefaultSkips:       true,
		Device:             DeviceConfig{Name: "soft"},
		Server:             ServerConfig{Address: "localhost:8040", MaxConnections: 16},
		LogLevel:           "Info",
	}
}

// Load reads the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses a configuration document. Fields it does not set keep their
// defaults, and unknown fields are an error.
func Parse(data []byte) (*Config, error) {
	c := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return c, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.CheckpointInterval == 0 {
		return errors.New("checkpoint_interval must be positive")
	}
	if c.Server.MaxConnections < 0 {
		return errors.New("server.max_connections must not be negative")
	}
	if c.Server.IdleTimeout < 0 {
		return errors.New("server.idle_timeout must not be negative")
	}
	_, err := log.ParseSeverity(c.LogLevel)
	return err
}

// Severity returns the configured log severity.
func (c *Config) Severity() log.Severity {
	s, _ := log.ParseSeverity(c.LogLevel)
	return s
}
