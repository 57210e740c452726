// Copyright (C) 2017 Google Inc.
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

// Package api describes the graphics APIs whose commands are recorded into
// chunk logs: their operation tables, parameter schemas and the driver
// interface replay issues real calls through.
package api

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/gfxreplay/core/data/id"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/patch"
)

// ID is an API identifier.
type ID id.ID

// IsValid returns true if the id is not the default zero value.
func (i ID) IsValid() bool  { return id.ID(i).IsValid() }
func (i ID) String() string { return id.ID(i).String() }

// API is the description of one graphics API: its closed set of operations
// and the schema of their parameter structures.
type API struct {
	name   string
	id     ID
	schema *patch.Schema
	ops    map[chunk.Opcode]*OpInfo
	byName map[string]*OpInfo
}

// New builds an API from its operation table. It panics if an opcode or name
// is used twice, if an opcode is reserved, or if an operation names a
// parameter type missing from the schema.
func New(name string, schema *patch.Schema, ops ...OpInfo) *API {
	a := &API{
		name:   name,
		id:     ID(id.OfBytes([]byte(name), []byte(schema.Version))),
		schema: schema,
		ops:    make(map[chunk.Opcode]*OpInfo, len(ops)),
		byName: make(map[string]*OpInfo, len(ops)),
	}
	for i := range ops {
		op := ops[i]
		switch {
		case op.Opcode == chunk.OpInvalid, op.Opcode.IsReservedUnknown():
			panic(fmt.Errorf("%v: %v uses invalid opcode %v", name, op.Name, op.Opcode))
		case a.ops[op.Opcode] != nil:
			panic(fmt.Errorf("%v: opcode %v used by %v and %v", name, op.Opcode, a.ops[op.Opcode].Name, op.Name))
		case a.byName[op.Name] != nil:
			panic(fmt.Errorf("%v: operation %v declared twice", name, op.Name))
		}
		if op.Params != 0 {
			if _, ok := schema.Layout(op.Params); !ok {
				panic(fmt.Errorf("%v: %v takes undeclared structure %d", name, op.Name, op.Params))
			}
		}
		a.ops[op.Opcode] = &op
		a.byName[op.Name] = &op
	}
	return a
}

// Name returns the official name of the api.
func (a *API) Name() string { return a.name }

// ID returns the unique API identifier, derived from the name and schema
// version.
func (a *API) ID() ID { return a.id }

// Schema returns the parameter structure schema of the api.
func (a *API) Schema() *patch.Schema { return a.schema }

// Op returns the operation with the given opcode.
func (a *API) Op(op chunk.Opcode) (*OpInfo, bool) {
	info, ok := a.ops[op]
	return info, ok
}

// OpByName returns the operation with the given name.
func (a *API) OpByName(name string) (*OpInfo, bool) {
	info, ok := a.byName[name]
	return info, ok
}

// Ops returns all operations ordered by opcode.
func (a *API) Ops() []*OpInfo {
	out := make([]*OpInfo, 0, len(a.ops))
	for _, op := range a.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

// OpName returns the name of the opcode, or its number if it is not part of
// the api.
func (a *API) OpName(op chunk.Opcode) string {
	if info, ok := a.ops[op]; ok {
		return info.Name
	}
	return op.String()
}

var (
	mutex sync.RWMutex
	apis  = map[string]*API{}
)

// Register adds an api to the understood set.
// It is illegal to register the same name twice.
func Register(a *API) {
	mutex.Lock()
	defer mutex.Unlock()
	if _, present := apis[a.name]; present {
		panic(fmt.Errorf("API %s registered more than once", a.name))
	}
	apis[a.name] = a
}

// Find looks up a graphics API by name.
// If the name has not been registered, it returns nil.
func Find(name string) *API {
	mutex.RLock()
	defer mutex.RUnlock()
	return apis[name]
}

// All returns all registered apis sorted by name.
func All() []*API {
	mutex.RLock()
	defer mutex.RUnlock()
	out := make([]*API, 0, len(apis))
	for _, a := range apis {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
