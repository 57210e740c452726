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

package api

// CmdFlags is a bitfield describing characteristics of a command.
type CmdFlags uint32

const (
	Clear CmdFlags = 1 << iota
	Transfer
	EndOfFrame
	UserMarker
	Submission
)

// IsClear returns true if the command is a clear call.
func (f CmdFlags) IsClear() bool { return (f & Clear) != 0 }

// IsTransfer returns true if the command copies or writes memory.
func (f CmdFlags) IsTransfer() bool { return (f & Transfer) != 0 }

// IsEndOfFrame returns true if the command represents the end of a frame.
func (f CmdFlags) IsEndOfFrame() bool { return (f & EndOfFrame) != 0 }

// IsUserMarker returns true if the command represents a debug marker.
func (f CmdFlags) IsUserMarker() bool { return (f & UserMarker) != 0 }

// IsSubmission returns true if the command is a submission
func (f CmdFlags) IsSubmission() bool { return (f & Submission) != 0 }
