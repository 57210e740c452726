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

// Package id provides content-derived identifiers.
package id

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Size is the size of an ID.
const Size = 20

// ID is a codeable unique identifier.
type ID [Size]byte

// IsValid returns true if the id is not the default value.
func (id ID) IsValid() bool {
	return id != ID{}
}

// Format is the fmt.Formatter implementation for ID.
func (id ID) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, "%x", id[:])
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Parse parses lowercase string s as a 20 byte hex-encoded ID.
func Parse(s string) (ID, error) {
	out := ID{}
	bytes, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(bytes) != Size {
		return out, fmt.Errorf("Invalid ID size: got %d, expected %d", len(bytes), Size)
	}
	copy(out[:], bytes)
	return out, nil
}

var hashPool = sync.Pool{New: func() interface{} {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		panic(err)
	}
	return h
}}

// Hash creates a new ID by hashing the bytes written to w by f.
func Hash(f func(w io.Writer) error) (ID, error) {
	h := hashPool.Get().(hash.Hash)
	defer hashPool.Put(h)
	h.Reset()
	err := f(h)
	out := ID{}
	copy(out[:], h.Sum(nil))
	return out, err
}

// OfBytes returns the ID of the concatenated byte slices.
func OfBytes(data ...[]byte) ID {
	out, _ := Hash(func(w io.Writer) error {
		for _, d := range data {
			w.Write(d)
		}
		return nil
	})
	return out
}
