// Package metrics instruments generation runs.
package metrics

import "time"

// Run results
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Recorder receives the measurements of generation runs
type Recorder interface {
	// RecordRun records one finished run and how long it took.
	RecordRun(result string, duration time.Duration)
	// RecordParts records the outcome of each part of a successful run.
	RecordParts(assigned, pending, relaxed int)
	// RecordFairness records the fairness score of a unit after a run.
	RecordFairness(unitID string, score float64)
}

// NopRecorder discards every measurement
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

// NewNop creates a recorder that does nothing
func NewNop() NopRecorder { return NopRecorder{} }

func (NopRecorder) RecordRun(string, time.Duration) {}
func (NopRecorder) RecordParts(int, int, int)       {}
func (NopRecorder) RecordFairness(string, float64)  {}
