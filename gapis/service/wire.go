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

package service

import (
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/pkg/errors"

	"github.com/google/gfxreplay/core/data/id"
	"github.com/google/gfxreplay/core/fault"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
	"github.com/google/gfxreplay/gapis/replay"
)

// ErrBadMessage is returned when a wire message lacks a field or holds a
// value of the wrong type.
const ErrBadMessage = fault.Const("Malformed service message")

// Summary is the part of a structured pass that crosses the wire.
type Summary struct {
	Events       uint64
	Checkpoints  int
	Scopes       []replay.ScopeUsage
	Frames       []replay.ScopeUsage
	Objects      map[string]int
	InitialState []identity.ID
	Requirements []api.Requirement
	Unknown      []uint64
}

// Summarize returns the summary of a structured pass.
func Summarize(s *replay.Structure) *Summary {
	out := &Summary{
		Events:       s.Events,
		Scopes:       s.Scopes,
		Frames:       s.Frames,
		Objects:      map[string]int{},
		InitialState: s.InitialState,
		Requirements: s.Requirements,
		Unknown:      s.Unknown,
	}
	if s.Index != nil {
		out.Checkpoints = len(s.Index.Checkpoints)
	}
	for k, n := range s.Objects {
		out.Objects[k.String()] = n
	}
	return out
}

func num(v uint64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: float64(v)}}
}

func str(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func boolean(b bool) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: b}}
}

func list(vs []*structpb.Value) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: vs}}}
}

func object(s *structpb.Struct) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StructValue{StructValue: s}}
}

func fields(f map[string]*structpb.Value) *structpb.Struct { return &structpb.Struct{Fields: f} }

// reader decodes the fields of a message, keeping the first error.
type reader struct {
	s   *structpb.Struct
	err error
}

func (r *reader) field(name string) *structpb.Value {
	v, ok := r.s.GetFields()[name]
	if !ok && r.err == nil {
		r.err = errors.Wrapf(ErrBadMessage, "missing field %q", name)
	}
	return v
}

func (r *reader) num(name string) uint64 {
	v := r.field(name)
	if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok && r.err == nil {
		r.err = errors.Wrapf(ErrBadMessage, "field %q is not a number", name)
	}
	return uint64(v.GetNumberValue())
}

func (r *reader) str(name string) string { return r.field(name).GetStringValue() }

func (r *reader) boolean(name string) bool { return r.field(name).GetBoolValue() }

func (r *reader) list(name string) []*structpb.Value {
	return r.field(name).GetListValue().GetValues()
}

func (r *reader) id(name string) identity.ID {
	return r.parseID(r.str(name))
}

func (r *reader) parseID(s string) identity.ID {
	out, err := identity.ParseID(s)
	if err != nil && r.err == nil {
		r.err = errors.Wrap(ErrBadMessage, err.Error())
	}
	return out
}

func (r *reader) sub(v *structpb.Value) *reader {
	return &reader{s: v.GetStructValue(), err: r.err}
}

func (r *reader) join(sub *reader) {
	if r.err == nil {
		r.err = sub.err
	}
}

// LogRequest is the message naming an open log.
func LogRequest(h LogHandle) *structpb.Struct {
	return fields(map[string]*structpb.Value{"log": str(h.String())})
}

// ActivePassRequest is the message asking to replay a log up to target.
func ActivePassRequest(h LogHandle, target uint64) *structpb.Struct {
	return fields(map[string]*structpb.Value{"log": str(h.String()), "target": num(target)})
}

// UsageRequest is the message asking for the resource usage of the events
// in [from, to].
func UsageRequest(h LogHandle, from, to uint64) *structpb.Struct {
	return fields(map[string]*structpb.Value{"log": str(h.String()), "from": num(from), "to": num(to)})
}

// DecodeLog returns the log handle of a request.
func DecodeLog(s *structpb.Struct) (LogHandle, error) {
	r := &reader{s: s}
	text := r.str("log")
	if r.err != nil {
		return LogHandle{}, r.err
	}
	return ParseHandle(text)
}

// ParseHandle parses a log handle printed by its String method.
func ParseHandle(s string) (LogHandle, error) {
	h, err := id.Parse(s)
	if err != nil {
		return LogHandle{}, errors.Wrapf(ErrBadMessage, "log handle %q: %v", s, err)
	}
	return h, nil
}

// DecodeActivePass returns the log and target of an active pass request.
func DecodeActivePass(s *structpb.Struct) (LogHandle, uint64, error) {
	h, err := DecodeLog(s)
	if err != nil {
		return LogHandle{}, 0, err
	}
	r := &reader{s: s}
	target := r.num("target")
	return h, target, r.err
}

// DecodeUsageRequest returns the log and event range of a usage request.
func DecodeUsageRequest(s *structpb.Struct) (LogHandle, uint64, uint64, error) {
	h, err := DecodeLog(s)
	if err != nil {
		return LogHandle{}, 0, 0, err
	}
	r := &reader{s: s}
	from, to := r.num("from"), r.num("to")
	return h, from, to, r.err
}

// EncodeCursor returns the wire form of a replay cursor.
func EncodeCursor(c replay.Cursor) *structpb.Struct {
	return fields(map[string]*structpb.Value{
		"event":  num(c.EventID),
		"offset": num(c.Offset),
		"mode":   num(uint64(c.Mode)),
	})
}

// DecodeCursor parses the wire form of a replay cursor.
func DecodeCursor(s *structpb.Struct) (replay.Cursor, error) {
	r := &reader{s: s}
	c := replay.Cursor{EventID: r.num("event"), Offset: r.num("offset"), Mode: replay.Mode(r.num("mode"))}
	return c, r.err
}

func encodeUsages(usages []reference.Usage) *structpb.Value {
	vs := make([]*structpb.Value, len(usages))
	for i, u := range usages {
		vs[i] = object(fields(map[string]*structpb.Value{
			"id":     str(u.ID.String()),
			"event":  num(u.EventID),
			"access": num(uint64(u.Access)),
		}))
	}
	return list(vs)
}

func (r *reader) usages(name string) []reference.Usage {
	vs := r.list(name)
	if len(vs) == 0 {
		return nil
	}
	out := make([]reference.Usage, len(vs))
	for i, v := range vs {
		u := r.sub(v)
		out[i] = reference.Usage{ID: u.id("id"), EventID: u.num("event"), Access: reference.Access(u.num("access"))}
		r.join(u)
	}
	return out
}

// EncodeUsage returns the wire form of a resource usage list.
func EncodeUsage(usages []reference.Usage) *structpb.Struct {
	return fields(map[string]*structpb.Value{"usage": encodeUsages(usages)})
}

// DecodeUsage parses the wire form of a resource usage list.
func DecodeUsage(s *structpb.Struct) ([]reference.Usage, error) {
	r := &reader{s: s}
	out := r.usages("usage")
	return out, r.err
}

func encodeRequirements(reqs []api.Requirement) *structpb.Value {
	vs := make([]*structpb.Value, len(reqs))
	for i, q := range reqs {
		vs[i] = object(fields(map[string]*structpb.Value{
			"capability":  str(string(q.Capability)),
			"first_event": num(uint64(q.FirstEvent)),
			"skippable":   boolean(q.Skippable),
		}))
	}
	return list(vs)
}

func (r *reader) requirements(name string) []api.Requirement {
	vs := r.list(name)
	if len(vs) == 0 {
		return nil
	}
	out := make([]api.Requirement, len(vs))
	for i, v := range vs {
		q := r.sub(v)
		out[i] = api.Requirement{
			Capability: api.Capability(q.str("capability")),
			FirstEvent: api.CmdID(q.num("first_event")),
			Skippable:  q.boolean("skippable"),
		}
		r.join(q)
	}
	return out
}

// EncodeRequirements returns the wire form of the requirements of a log.
func EncodeRequirements(reqs []api.Requirement) *structpb.Struct {
	return fields(map[string]*structpb.Value{"requirements": encodeRequirements(reqs)})
}

// DecodeRequirements parses the wire form of the requirements of a log.
func DecodeRequirements(s *structpb.Struct) ([]api.Requirement, error) {
	r := &reader{s: s}
	out := r.requirements("requirements")
	return out, r.err
}

func encodeScopes(scopes []replay.ScopeUsage) *structpb.Value {
	vs := make([]*structpb.Value, len(scopes))
	for i, sc := range scopes {
		vs[i] = object(fields(map[string]*structpb.Value{
			"scope": str(sc.Scope.String()),
			"begin": num(sc.Begin),
			"end":   num(sc.End),
			"usage": encodeUsages(sc.Usage),
		}))
	}
	return list(vs)
}

func (r *reader) scopes(name string) []replay.ScopeUsage {
	vs := r.list(name)
	if len(vs) == 0 {
		return nil
	}
	out := make([]replay.ScopeUsage, len(vs))
	for i, v := range vs {
		sc := r.sub(v)
		out[i] = replay.ScopeUsage{Scope: sc.id("scope"), Begin: sc.num("begin"), End: sc.num("end"), Usage: sc.usages("usage")}
		r.join(sc)
	}
	return out
}

// EncodeSummary returns the wire form of a structured pass summary.
func EncodeSummary(s *Summary) *structpb.Struct {
	ids := make([]*structpb.Value, len(s.InitialState))
	for i, x := range s.InitialState {
		ids[i] = str(x.String())
	}
	unknown := make([]*structpb.Value, len(s.Unknown))
	for i, e := range s.Unknown {
		unknown[i] = num(e)
	}
	objects := map[string]*structpb.Value{}
	for k, n := range s.Objects {
		objects[k] = num(uint64(n))
	}
	return fields(map[string]*structpb.Value{
		"events":        num(s.Events),
		"checkpoints":   num(uint64(s.Checkpoints)),
		"scopes":        encodeScopes(s.Scopes),
		"frames":        encodeScopes(s.Frames),
		"objects":       object(fields(objects)),
		"initial_state": list(ids),
		"requirements":  encodeRequirements(s.Requirements),
		"unknown":       list(unknown),
	})
}

// DecodeSummary parses the wire form of a structured pass summary.
func DecodeSummary(s *structpb.Struct) (*Summary, error) {
	r := &reader{s: s}
	out := &Summary{
		Events:       r.num("events"),
		Checkpoints:  int(r.num("checkpoints")),
		Scopes:       r.scopes("scopes"),
		Frames:       r.scopes("frames"),
		Objects:      map[string]int{},
		Requirements: r.requirements("requirements"),
	}
	for _, v := range r.list("initial_state") {
		out.InitialState = append(out.InitialState, r.parseID(v.GetStringValue()))
	}
	for _, v := range r.list("unknown") {
		out.Unknown = append(out.Unknown, uint64(v.GetNumberValue()))
	}
	for k, v := range r.field("objects").GetStructValue().GetFields() {
		out.Objects[k] = int(v.GetNumberValue())
	}
	return out, r.err
}
