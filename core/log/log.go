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

// Package log provides a context-carried logger.
//
// Handlers, filters, tags, trace chains and bound values all travel on the
// context.Context, so any function holding a context can log without extra
// plumbing.
package log

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Logger holds everything needed to construct and deliver a Message.
type Logger struct {
	handler Handler
	filter  Filter
	tag     string
	trace   []string
	values  *values
}

// From returns a Logger built from the values carried by ctx.
func From(ctx context.Context) *Logger {
	return &Logger{
		handler: GetHandler(ctx),
		filter:  GetFilter(ctx),
		tag:     GetTag(ctx),
		trace:   GetTrace(ctx),
		values:  getValues(ctx),
	}
}

// Bind returns a Logger with the values v bound to it.
func Bind(ctx context.Context, v V) *Logger {
	return From(v.Bind(ctx))
}

// D logs a debug message to the logging target.
func D(ctx context.Context, fmt string, args ...interface{}) { From(ctx).D(fmt, args...) }

// I logs a info message to the logging target.
func I(ctx context.Context, fmt string, args ...interface{}) { From(ctx).I(fmt, args...) }

// W logs a warning message to the logging target.
func W(ctx context.Context, fmt string, args ...interface{}) { From(ctx).W(fmt, args...) }

// E logs a error message to the logging target.
func E(ctx context.Context, fmt string, args ...interface{}) { From(ctx).E(fmt, args...) }

// F logs a fatal message to the logging target.
func F(ctx context.Context, fmt string, args ...interface{}) { From(ctx).F(fmt, args...) }

func (l *Logger) D(fmt string, args ...interface{}) { l.Logf(Debug, fmt, args...) }
func (l *Logger) I(fmt string, args ...interface{}) { l.Logf(Info, fmt, args...) }
func (l *Logger) W(fmt string, args ...interface{}) { l.Logf(Warning, fmt, args...) }
func (l *Logger) E(fmt string, args ...interface{}) { l.Logf(Error, fmt, args...) }
func (l *Logger) F(fmt string, args ...interface{}) { l.Logf(Fatal, fmt, args...) }

// Logf formats and delivers a message of severity s, if the filter allows it.
func (l *Logger) Logf(s Severity, fmt string, args ...interface{}) {
	h := l.handler
	if h == nil {
		return
	}
	if l.filter != nil && !l.filter.ShowSeverity(s) {
		return
	}
	h.Handle(l.Messagef(s, fmt, args...))
}

// Messagef returns a new Message with the given severity and formatted text.
func (l *Logger) Messagef(s Severity, text string, args ...interface{}) *Message {
	return l.Message(s, fmt.Sprintf(text, args...))
}

// Message returns a new Message with the given severity and text.
func (l *Logger) Message(s Severity, text string) *Message {
	m := &Message{
		Text:     text,
		Time:     time.Now(),
		Severity: s,
		Tag:      l.tag,
		Trace:    l.trace,
	}
	seen := map[string]bool{}
	for n := l.values; n != nil; n = n.parent {
		for name, value := range n.v {
			if seen[name] {
				continue
			}
			seen[name] = true
			m.Values = append(m.Values, &Value{Name: name, Value: value})
		}
	}
	sort.Sort(m.Values)
	return m
}

// Print is here to satisfy the standard logger interfaces.
func (l *Logger) Print(args ...interface{}) { l.I("%s", fmt.Sprint(args...)) }

// Printf is here to satisfy the standard logger interfaces.
func (l *Logger) Printf(format string, args ...interface{}) { l.I(format, args...) }
