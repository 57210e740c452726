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

package transform2

import (
	"context"
	"fmt"
	"os"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/config"
	"github.com/google/gfxreplay/gapis/identity"
	"github.com/google/gfxreplay/gapis/reference"
)

type fileLog struct {
	file *os.File
	api  *api.API
	// accesses logs the identities each command touches.
	accesses bool
}

// NewFileLog returns a Transformer that will log all commands passed through it
// to the text file at path.
func NewFileLog(ctx context.Context, path string, a *api.API) (*fileLog, error) {
	f, err := os.Create(path)
	if err != nil {
		log.W(ctx, "Failed to create replay log file %v: %v", path, err)
		return nil, err
	}
	return &fileLog{file: f, api: a, accesses: config.LogAccessesInTransforms}, nil
}

func (logTransform *fileLog) Name() string { return "file_log" }

func (logTransform *fileLog) BeginTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	return inputCommands, nil
}

func (logTransform *fileLog) ClearTransformResources(ctx context.Context) {
	// Do nothing
}

func (logTransform *fileLog) EndTransform(ctx context.Context, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	for _, cmd := range inputCommands {
		logTransform.write("end", cmd)
	}
	return inputCommands, logTransform.file.Close()
}

func (logTransform *fileLog) TransformCommand(ctx context.Context, id api.CmdID, inputCommands []*api.Cmd) ([]*api.Cmd, error) {
	for _, cmd := range inputCommands {
		logTransform.write(id, cmd)
	}
	return inputCommands, nil
}

func (logTransform *fileLog) write(id interface{}, cmd *api.Cmd) {
	fmt.Fprintf(logTransform.file, "%v: %v\n", id, logTransform.api.Format(cmd))
	if logTransform.accesses {
		logTransform.api.Accesses(cmd, func(i identity.ID, a reference.Access) {
			fmt.Fprintf(logTransform.file, "    %v %v\n", a, i)
		})
	}
}
