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

package replay

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/google/gfxreplay/gapis/replay"

// instruments are the counters a replay engine reports through the global
// meter provider.
type instruments struct {
	passes     metric.Int64Counter
	chunks     metric.Int64Counter
	patchBytes metric.Int64Counter
	skipped    metric.Int64Counter
}

func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	return &instruments{
		passes:     counter("gfxreplay.replay.passes", "Replay passes run", "{pass}"),
		chunks:     counter("gfxreplay.replay.chunks", "Chunks dispatched to the driver", "{chunk}"),
		patchBytes: counter("gfxreplay.replay.patch_bytes", "Bytes of patched parameter structures", "By"),
		skipped:    counter("gfxreplay.replay.skipped", "Chunks skipped on the replay device", "{chunk}"),
	}
}

func modeAttr(m Mode) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("mode", m.String()))
}
