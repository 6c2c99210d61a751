package progress

import "time"

// Tracker accumulates transfer totals for one batch. It is pure
// accounting: every reading is recomputed from the two sums, so there
// is no incremental state to drift.
//
// Tracker is not safe for concurrent use; the batch worker owns it.
type Tracker struct {
	bytes uint64
	busy  time.Duration
}

// Update adds one item's transfer to the running totals and returns the
// new mean speed in Mbit/s.
func (t *Tracker) Update(bytes uint64, elapsed time.Duration) float64 {
	t.bytes += bytes
	t.busy += elapsed
	return t.MeanMbps()
}

// MeanMbps is cumulative bits over cumulative transfer seconds, in
// Mbit/s. Zero until any transfer time has accumulated.
func (t *Tracker) MeanMbps() float64 {
	secs := t.busy.Seconds()
	if secs == 0 {
		return 0
	}
	return float64(t.bytes) * 8 / (secs * 1e6)
}

// TotalBytes returns the cumulative payload size.
func (t *Tracker) TotalBytes() uint64 {
	return t.bytes
}

// ETA estimates the time remaining as mean-time-per-completed-item
// times the items left. ok is false while nothing has completed, since
// there is no average to project from.
//
// sinceStart is wall time for the whole batch so far, not just transfer
// time: per-item overhead and backoff waits belong in the estimate.
func ETA(completed, total int, sinceStart time.Duration) (eta time.Duration, ok bool) {
	if completed == 0 {
		return 0, false
	}
	avg := sinceStart / time.Duration(completed)
	return avg * time.Duration(total-completed), true
}

// Snapshot is one observer-facing reading of batch progress, emitted
// after every item whether it succeeded or failed.
type Snapshot struct {
	Completed int
	Total     int
	Bytes     uint64
	MeanMbps  float64
	ETA       time.Duration
	HasETA    bool
}
