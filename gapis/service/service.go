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

// Package service exposes replay of chunk logs behind opaque log handles.
package service

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/data/id"
	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/reference"
	"github.com/google/gfxreplay/gapis/replay"
)

// ErrUnknownLog is returned for handles that name no open log.
const ErrUnknownLog = fault.Const("Unknown log handle")

// LogHandle names an open log. It is derived from the log's bytes, so
// opening the same bytes twice yields the same handle.
type LogHandle = id.ID

// DriverFactory returns a fresh driver for a newly opened log.
type DriverFactory func(ctx context.Context) (api.Driver, error)

type openLog struct {
	engine *replay.Engine
	refs   int
}

// Service replays logs of one api. Each open log has its own engine and
// driver; passes on different logs may run concurrently.
type Service struct {
	api       *api.API
	newDriver DriverFactory
	opts      replay.Options

	mutex sync.Mutex
	logs  map[LogHandle]*openLog
}

// New returns a service replaying logs of a on drivers built by newDriver.
func New(a *api.API, newDriver DriverFactory, opts replay.Options) *Service {
	return &Service{api: a, newDriver: newDriver, opts: opts, logs: map[LogHandle]*openLog{}}
}

// API returns the api of the logs the service replays.
func (s *Service) API() *api.API { return s.api }

// OpenLog parses data as a chunk log and returns its handle.
func (s *Service) OpenLog(ctx context.Context, data []byte) (LogHandle, error) {
	h, err := id.Hash(func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return LogHandle{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if l, ok := s.logs[h]; ok {
		l.refs++
		return h, nil
	}
	l, err := chunk.Open(data)
	if err != nil {
		return LogHandle{}, log.Err(ctx, err, "Opening log")
	}
	d, err := s.newDriver(ctx)
	if err != nil {
		return LogHandle{}, log.Err(ctx, err, "Creating replay driver")
	}
	opts := s.opts
	opts.Tag = h.String()[:8]
	s.logs[h] = &openLog{engine: replay.New(s.api, l, d, opts), refs: 1}
	log.I(ctx, "Opened log %v: %v", h, l.Header())
	return h, nil
}

func (s *Service) engine(h LogHandle) (*replay.Engine, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l, ok := s.logs[h]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownLog, "%v", h)
	}
	return l.engine, nil
}

// Engine returns the engine replaying the log h.
func (s *Service) Engine(h LogHandle) (*replay.Engine, error) { return s.engine(h) }

// Logs returns the handles of every open log, sorted.
func (s *Service) Logs() []LogHandle {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]LogHandle, 0, len(s.logs))
	for h := range s.logs {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// RunStructuredPass runs the structured pass of the log h.
func (s *Service) RunStructuredPass(ctx context.Context, h LogHandle) (*replay.Structure, error) {
	e, err := s.engine(h)
	if err != nil {
		return nil, err
	}
	return e.RunStructuredPass(ctx)
}

// RunActivePass replays the log h up to and including target.
func (s *Service) RunActivePass(ctx context.Context, h LogHandle, target uint64) (replay.Cursor, error) {
	e, err := s.engine(h)
	if err != nil {
		return replay.Cursor{}, err
	}
	return e.RunActivePass(ctx, target)
}

// RunActiveFullPass replays the whole log h.
func (s *Service) RunActiveFullPass(ctx context.Context, h LogHandle) (replay.Cursor, error) {
	e, err := s.engine(h)
	if err != nil {
		return replay.Cursor{}, err
	}
	return e.RunActiveFullPass(ctx)
}

// GetResourceUsage returns how the events in [from, to] of the log h used
// each identity.
func (s *Service) GetResourceUsage(ctx context.Context, h LogHandle, from, to uint64) ([]reference.Usage, error) {
	e, err := s.engine(h)
	if err != nil {
		return nil, err
	}
	return e.ResourceUsage(from, to)
}

// Requirements returns the capabilities the log h needs.
func (s *Service) Requirements(ctx context.Context, h LogHandle) ([]api.Requirement, error) {
	e, err := s.engine(h)
	if err != nil {
		return nil, err
	}
	return e.Requirements()
}

// CloseLog releases one reference to the log h. The last release closes its
// engine and resets its driver; it fails with replay.ErrBusy while a pass
// runs, leaving the log open.
func (s *Service) CloseLog(ctx context.Context, h LogHandle) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l, ok := s.logs[h]
	if !ok {
		return errors.Wrapf(ErrUnknownLog, "%v", h)
	}
	if l.refs > 1 {
		l.refs--
		return nil
	}
	if err := l.engine.Close(ctx); err != nil {
		if errors.Is(err, replay.ErrBusy) {
			return err
		}
		log.W(ctx, "Resetting driver of log %v: %v", h, err)
	}
	delete(s.logs, h)
	log.I(ctx, "Closed log %v", h)
	return nil
}

// Shutdown closes every open log.
func (s *Service) Shutdown(ctx context.Context) {
	s.mutex.Lock()
	logs := s.logs
	s.logs = map[LogHandle]*openLog{}
	s.mutex.Unlock()
	for h, l := range logs {
		if err := l.engine.Close(ctx); err != nil {
			log.W(ctx, "Closing log %v: %v", h, err)
		}
	}
}
