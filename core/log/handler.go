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

package log

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Handler is the handler of log messages.
type Handler interface {
	Handle(*Message)
	Close()
}

type handler struct {
	handle func(*Message)
	close  func()
}

func (h handler) Handle(m *Message) { h.handle(m) }
func (h handler) Close()            { h.close() }

// NewHandler returns a Handler that calls handle for each message and close
// when the handler is closed.
func NewHandler(handle func(*Message), close func()) Handler {
	if close == nil {
		close = func() {}
	}
	return handler{handle, close}
}

// Writer is a function that writes out a formatted log message.
type Writer func(text string, severity Severity)

// Std returns a Writer that writes to stdout if the message severity is less
// than an error, otherwise it writes to stderr.
func Std() Writer {
	var mutex sync.Mutex
	return func(text string, severity Severity) {
		mutex.Lock()
		defer mutex.Unlock()
		out := os.Stdout
		if severity >= Error {
			out = os.Stderr
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
}

// Buffer returns a Writer that writes to the returned buffer.
func Buffer() (Writer, *bytes.Buffer) {
	buf, nl := &bytes.Buffer{}, false
	return func(text string, severity Severity) {
		if nl {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
		nl = true
	}, buf
}

// Style provides customization for printing messages.
type Style struct {
	Name      string
	Timestamp bool
	Tag       bool
	Trace     bool
	Values    bool
}

var (
	// Brief prints the text and short severity of the message.
	Brief = Style{Name: "brief"}
	// Normal prints the timestamp, tag, trace and short severity.
	Normal = Style{Name: "normal", Timestamp: true, Tag: true, Trace: true}
	// Detailed is Normal with the bound values.
	Detailed = Style{Name: "detailed", Timestamp: true, Tag: true, Trace: true, Values: true}
)

// Handler returns a Handler that formats messages with the style and hands
// them to w.
func (s Style) Handler(w Writer) Handler {
	return handler{
		handle: func(msg *Message) { w(s.Print(msg), msg.Severity) },
		close:  func() {},
	}
}

// Print returns the message formatted with the style.
func (s Style) Print(msg *Message) string {
	parts := make([]string, 0, 6)
	if s.Timestamp && !msg.Time.IsZero() {
		parts = append(parts, hhmmsssss(msg.Time))
	}
	parts = append(parts, msg.Severity.Short()+":")
	if s.Trace && len(msg.Trace) > 0 {
		parts = append(parts, fmt.Sprintf("%v", msg.Trace))
	}
	if s.Tag && msg.Tag != "" {
		parts = append(parts, fmt.Sprintf("[%s]", msg.Tag))
	}
	parts = append(parts, msg.Text)
	if s.Values && len(msg.Values) > 0 {
		t := make([]string, len(msg.Values))
		for i, v := range msg.Values {
			t[i] = fmt.Sprintf("%v: %v", v.Name, v.Value)
		}
		parts = append(parts, fmt.Sprintf("(%v)", strings.Join(t, ", ")))
	}
	return strings.Join(parts, " ")
}

func hhmmsssss(t time.Time) string {
	return fmt.Sprintf("%.2d:%.2d:%.2d.%.3d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
}

// ParseSeverity returns the severity with the given name, case-insensitive.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return Info, fmt.Errorf("unknown severity %q", name)
}
