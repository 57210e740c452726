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

// Package replay turns chunk logs back into real api calls. A structured
// pass learns the topology of a log and builds its checkpoint index; active
// passes then dispatch the log to a driver, stopping at a target event.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/api/transform2"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/config"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

// Mode is the kind of pass that produced a cursor.
type Mode uint8

const (
	Structured Mode = iota
	ActiveToTarget
	ActiveFull
)

func (m Mode) String() string {
	switch m {
	case Structured:
		return "Structured"
	case ActiveToTarget:
		return "ActiveToTarget"
	case ActiveFull:
		return "ActiveFull"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Cursor is where a pass stopped: the last event it processed.
type Cursor struct {
	EventID uint64
	Offset  uint64
	Mode    Mode
}

func (c Cursor) String() string { return fmt.Sprintf("%v event %d @%d", c.Mode, c.EventID, c.Offset) }

// Options configure an engine.
type Options struct {
	// CheckpointInterval is the minimum number of events between two
	// checkpoints of the index built by the structured pass.
	CheckpointInterval uint64
	// Skips lists the operations that may be dropped on devices lacking
	// a capability they need. Nil allows the api's default skips.
	Skips *SkipList
	// Tag names the engine in logs.
	Tag string
	// Transforms observe or rewrite the commands of every active pass. They
	// run after capability skipping, in order.
	Transforms []transform2.Transform
}

// OptionsFromConfig returns the engine options of a configuration.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		CheckpointInterval: c.CheckpointInterval,
		Skips:              NewSkipList(c.DefaultSkips, c.SkipAllowList...),
		Tag:                "replay",
	}
}

// Engine replays one log on one driver. Passes are serialised: a pass
// started while another runs fails with ErrBusy.
type Engine struct {
	mutex     sync.Mutex
	api       *api.API
	log       *chunk.Log
	driver    api.Driver
	opts      Options
	table     *identity.Table
	dispatch  *dispatcher
	metrics   *instruments
	progress  rate.Sometimes
	structure *Structure
	closed    bool

	// clean is true when the driver and table hold exactly the state of
	// every event before next.
	clean bool
	next  chunk.Cursor
	at    Cursor
}

// New returns an engine replaying l on d.
func New(a *api.API, l *chunk.Log, d api.Driver, opts Options) *Engine {
	if opts.CheckpointInterval == 0 {
		opts.CheckpointInterval = chunk.DefaultCheckpointInterval
	}
	if opts.Skips == nil {
		opts.Skips = NewSkipList(true)
	}
	if opts.Tag == "" {
		opts.Tag = "replay"
	}
	e := &Engine{
		api:      a,
		log:      l,
		driver:   d,
		opts:     opts,
		table:    identity.NewTable(identity.SessionPrefix(l.Session())),
		metrics:  newInstruments(),
		progress: rate.Sometimes{Interval: 2 * time.Second},
	}
	e.dispatch = newDispatcher(a, d, e.table, e.metrics)
	return e
}

func (e *Engine) acquire() error {
	if !e.mutex.TryLock() {
		return ErrBusy
	}
	if e.closed {
		e.mutex.Unlock()
		return ErrClosed
	}
	return nil
}

// Table returns the identity table of the replay.
func (e *Engine) Table() *identity.Table { return e.table }

// Driver returns the driver the engine replays on.
func (e *Engine) Driver() api.Driver { return e.driver }

// Structure returns the result of the last structured pass, or nil.
func (e *Engine) Structure() *Structure {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.structure
}

// RunStructuredPass decodes every chunk of the log once, without issuing any
// driver call. It validates the log, builds and installs its checkpoint
// index and records the resource usage of every scope.
func (e *Engine) RunStructuredPass(ctx context.Context) (*Structure, error) {
	if err := e.acquire(); err != nil {
		return nil, err
	}
	defer e.mutex.Unlock()
	ctx = log.Enter(ctx, "RunStructuredPass")
	ctx = log.V{"tag": e.opts.Tag}.Bind(ctx)

	s, err := structure(ctx, e.api, e.log, e.opts.CheckpointInterval, e.opts.Skips.Allows)
	e.metrics.passes.Add(ctx, 1, modeAttr(Structured))
	if err != nil {
		log.D(ctx, "Structured pass failed: %v", err)
		return nil, err
	}
	e.log.SetIndex(s.Index)
	e.structure = s
	log.D(ctx, "%d events, %d checkpoints, %d scopes, %d frames", s.Events, len(s.Index.Checkpoints), len(s.Scopes), len(s.Frames))
	return s, nil
}

// RunActivePass dispatches the log to the driver up to and including the
// target event. A pass resumes from where the previous one stopped when
// that is at or before the target; otherwise the driver is reset and replay
// restarts from the first checkpoint. A recording scope still open at the
// target is ended and run, so its commands up to the target take effect.
//
// Cancelling ctx stops the pass between two chunks and returns the context
// error with the cursor of the last dispatched chunk. The objects created so
// far are kept and a later pass resumes from there. A context error raised
// while a chunk is dispatched is a driver failure like any other.
func (e *Engine) RunActivePass(ctx context.Context, target uint64) (Cursor, error) {
	if err := e.acquire(); err != nil {
		return Cursor{}, err
	}
	defer e.mutex.Unlock()
	return e.active(ctx, target, ActiveToTarget)
}

// RunActiveFullPass dispatches the whole log to the driver.
func (e *Engine) RunActiveFullPass(ctx context.Context) (Cursor, error) {
	if err := e.acquire(); err != nil {
		return Cursor{}, err
	}
	defer e.mutex.Unlock()
	if e.structure == nil {
		return Cursor{}, ErrNotStructured
	}
	if e.structure.Events == 0 {
		return Cursor{Mode: ActiveFull}, nil
	}
	return e.active(ctx, e.structure.Events-1, ActiveFull)
}

func (e *Engine) active(ctx context.Context, target uint64, mode Mode) (Cursor, error) {
	ctx = log.Enter(ctx, "RunActivePass")
	ctx = log.V{"tag": e.opts.Tag, "target": target}.Bind(ctx)
	if e.structure == nil {
		return Cursor{}, ErrNotStructured
	}
	if target >= e.structure.Events {
		return Cursor{}, errors.Wrapf(chunk.ErrEventOutOfRange, "target %d, log has %d events", target, e.structure.Events)
	}
	e.metrics.passes.Add(ctx, 1, modeAttr(mode))

	// Already at the target, with no scope left to split.
	if e.clean && e.next.EventID == target+1 && len(e.dispatch.scopes) == 0 {
		e.at.Mode = mode
		return e.at, nil
	}
	// A cancelled pass may stop right after the target with scopes still
	// open. Resuming there only splits them.
	resume := e.next.EventID
	if !e.clean || resume > target+1 {
		if err := e.reset(ctx); err != nil {
			return Cursor{}, err
		}
		resume = 0
	}
	start := chunk.Cursor{}
	if err := e.log.Seek(&start, resume); err != nil {
		return Cursor{}, err
	}
	log.D(ctx, "Replaying events [%d, %d]", start.EventID, target)

	gen := newLogGenerator(e.api, e.log, start, target)
	if resume > 0 {
		gen.last = chunk.Chunk{EventID: e.at.EventID, Offset: e.at.Offset}
	}
	end := NewEndOfReplay()
	end.AddResult(func(ctx context.Context, s Summary) {
		log.D(ctx, "Pass wrote %d commands, last %v", s.Commands, s.Last)
	})
	cf := transform2.NewControlFlow(e.opts.Tag, e.api, &progress{gen: gen, engine: e, target: target}, e.dispatch)
	cf.AddTransform(newCapabilitySkip(e.api, e.driver.Device(), e.opts.Skips, e.metrics))
	cf.AddTransform(e.opts.Transforms...)
	cf.AddTransform(newCommandSplitter(e.api, e.dispatch.open), end)

	err := cf.TransformAll(ctx)
	var cancelled *transform2.CancelledError
	if errors.As(err, &cancelled) {
		// Everything before the generator's cursor has been dispatched.
		e.next, e.clean = gen.cursor, true
		e.at = Cursor{EventID: gen.last.EventID, Offset: gen.last.Offset, Mode: mode}
		log.D(ctx, "Pass cancelled before event %d", e.next.EventID)
		return e.at, cancelled.Cause
	}
	if err != nil {
		e.clean = false
		return Cursor{}, failure(err, gen.last)
	}
	e.next = gen.cursor
	e.clean = !e.dispatch.truncated
	e.at = Cursor{EventID: gen.last.EventID, Offset: gen.last.Offset, Mode: mode}
	return e.at, nil
}

func (e *Engine) reset(ctx context.Context) error {
	if e.next.EventID > 0 || e.table.Len() > 0 {
		log.D(ctx, "Resetting replay state at event %d", e.next.EventID)
	}
	if err := e.driver.Reset(ctx); err != nil {
		return err
	}
	e.table.Reset()
	e.dispatch.reset()
	e.next, e.at, e.clean = chunk.Cursor{}, Cursor{}, true
	return nil
}

// ResourceUsage returns how the events in [from, to] used each identity.
func (e *Engine) ResourceUsage(from, to uint64) ([]reference.Usage, error) {
	s := e.Structure()
	if s == nil {
		return nil, ErrNotStructured
	}
	if from > to || to >= s.Events {
		return nil, errors.Wrapf(chunk.ErrEventOutOfRange, "[%d, %d], log has %d events", from, to, s.Events)
	}
	return s.ResourceUsage(from, to), nil
}

// Requirements returns the capabilities the log needs.
func (e *Engine) Requirements() ([]api.Requirement, error) {
	s := e.Structure()
	if s == nil {
		return nil, ErrNotStructured
	}
	return s.Requirements, nil
}

// Resolve returns the replay handle of a logical identity.
func (e *Engine) Resolve(id identity.ID) (identity.Handle, error) {
	return e.table.Resolve(id)
}

// Close resets the driver and drops every identity. It fails with ErrBusy
// while a pass runs.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.mutex.Unlock()
	err := e.reset(ctx)
	e.closed = true
	return err
}

// progress reports the advance of long passes.
type progress struct {
	gen    *logGenerator
	engine *Engine
	target uint64
}

func (p *progress) GetNextCommand(ctx context.Context) (api.CmdID, *api.Cmd, error) {
	id, cmd, err := p.gen.GetNextCommand(ctx)
	if cmd != nil {
		p.engine.progress.Do(func() {
			log.I(ctx, "Replaying event %v of %d", id, p.target)
		})
	}
	return id, cmd, err
}

func (p *progress) IsEndOfCommands() bool { return p.gen.IsEndOfCommands() }
