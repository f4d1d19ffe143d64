/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics declares the opencensus measures & views of the
// DailyTask controller. Views are exported by the prometheus
// exporter that is registered during start.
package metrics

import (
	"context"
	"time"

	"github.com/golang/glog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Outcomes of a status write
const (
	OutcomeStatus   = "status"
	OutcomeFallback = "fallback"
	OutcomeAborted  = "aborted"
	OutcomeFailed   = "failed"
)

// Results of a resync
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	// KeyEventType tags a measurement with the watch event type
	KeyEventType = tag.MustNewKey("event_type")

	// KeyOutcome tags a measurement with the status write outcome
	KeyOutcome = tag.MustNewKey("outcome")

	// KeyResult tags a measurement with the resync result
	KeyResult = tag.MustNewKey("result")
)

var (
	// WatchEvents counts the events received from watch streams
	WatchEvents = stats.Int64(
		"dailytask/watch_events",
		"Number of watch events received",
		stats.UnitDimensionless,
	)

	// DecodeErrors counts the objects that could not be decoded
	DecodeErrors = stats.Int64(
		"dailytask/decode_errors",
		"Number of listed or streamed objects skipped due to decode errors",
		stats.UnitDimensionless,
	)

	// Resyncs counts the list based resyncs
	Resyncs = stats.Int64(
		"dailytask/resyncs",
		"Number of list based resyncs",
		stats.UnitDimensionless,
	)

	// StatusWrites counts the status writes by outcome
	StatusWrites = stats.Int64(
		"dailytask/status_writes",
		"Number of status writes",
		stats.UnitDimensionless,
	)

	// ReconcileLatency measures a single reconciliation
	ReconcileLatency = stats.Float64(
		"dailytask/reconcile_latency",
		"Time taken to compute & write the status of one resource",
		stats.UnitMilliseconds,
	)
)

// Views of all the measures
var Views = []*view.View{
	{
		Name:        "dailytask/watch_events_total",
		Description: WatchEvents.Description(),
		Measure:     WatchEvents,
		TagKeys:     []tag.Key{KeyEventType},
		Aggregation: view.Count(),
	},
	{
		Name:        "dailytask/decode_errors_total",
		Description: DecodeErrors.Description(),
		Measure:     DecodeErrors,
		Aggregation: view.Count(),
	},
	{
		Name:        "dailytask/resyncs_total",
		Description: Resyncs.Description(),
		Measure:     Resyncs,
		TagKeys:     []tag.Key{KeyResult},
		Aggregation: view.Count(),
	},
	{
		Name:        "dailytask/status_writes_total",
		Description: StatusWrites.Description(),
		Measure:     StatusWrites,
		TagKeys:     []tag.Key{KeyOutcome},
		Aggregation: view.Count(),
	},
	{
		Name:        "dailytask/reconcile_latency_ms",
		Description: ReconcileLatency.Description(),
		Measure:     ReconcileLatency,
		TagKeys:     []tag.Key{KeyOutcome},
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	},
}

// Register registers all the views
func Register() error {
	return view.Register(Views...)
}

// Unregister unregisters all the views
func Unregister() {
	view.Unregister(Views...)
}

func record(mutators []tag.Mutator, ms ...stats.Measurement) {
	err := stats.RecordWithTags(context.Background(), mutators, ms...)
	if err != nil {
		glog.V(4).Infof("Failed to record metric: %v", err)
	}
}

// RecordWatchEvent counts one watch event of the given type
func RecordWatchEvent(eventType string) {
	record([]tag.Mutator{tag.Upsert(KeyEventType, eventType)}, WatchEvents.M(1))
}

// RecordDecodeError counts one skipped object
func RecordDecodeError() {
	stats.Record(context.Background(), DecodeErrors.M(1))
}

// RecordResync counts one resync with the given result
func RecordResync(result string) {
	record([]tag.Mutator{tag.Upsert(KeyResult, result)}, Resyncs.M(1))
}

// RecordStatusWrite counts one status write with the given outcome
// & the time taken to reconcile
func RecordStatusWrite(outcome string, took time.Duration) {
	record(
		[]tag.Mutator{tag.Upsert(KeyOutcome, outcome)},
		StatusWrites.M(1),
		ReconcileLatency.M(float64(took)/float64(time.Millisecond)),
	)
}
