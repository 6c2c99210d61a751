package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gocloud.dev/blob"
	"golang.org/x/time/rate"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/fetch"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/naming"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/progress"
)

// ErrRunInProgress is returned by Run while another run on the same
// Runner is still active.
var ErrRunInProgress = errors.New("batch: a run is already in progress")

// Item is one fetchable entry: its position among the valid input URLs
// and the URL itself. Blank input rows are filtered out upstream and
// never become Items, so Index is dense.
type Item struct {
	Index int
	URL   string
}

// Failure records one failed item, in input order.
type Failure struct {
	URL     string
	Message string
}

// Summary is the aggregate outcome of one run.
type Summary struct {
	Successes      int
	Failures       int
	CancelledEarly bool
	// FirstFailure points into Failed, for the one-line report.
	FirstFailure *Failure
	Failed       []Failure
	TotalBytes   uint64
	Elapsed      time.Duration
}

// Fetcher performs one logical fetch with retries.
type Fetcher interface {
	Do(ctx context.Context, url string) (*fetch.Result, error)
}

// Options configures a Runner.
type Options struct {
	// Fetcher performs the per-item retrieval. Required.
	Fetcher Fetcher

	// Bucket is the destination for output objects. Required.
	Bucket *blob.Bucket

	// StartIndex is the first output number, normally computed by
	// naming.StartIndex from the destination's existing names.
	// Default: 1
	StartIndex uint64

	// OnProgress, if set, receives a snapshot after every item. It is
	// called on the batch worker and must not block; hand it to a
	// progress.Reporter or equivalent.
	OnProgress func(progress.Snapshot)

	// Limiter, if set, paces item starts. Image hosts appreciate it.
	Limiter *rate.Limiter
}

// Runner executes batches, one at a time.
type Runner struct {
	opts Options

	running   atomic.Bool
	cancelled atomic.Bool
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.StartIndex == 0 {
		opts.StartIndex = 1
	}
	return &Runner{opts: opts}
}

// Cancel requests a cooperative stop. The request is observed at the
// next item boundary; the in-flight fetch, including any retries,
// completes first. Items not yet attempted are neither fetched nor
// counted as failed. A request made when no run is active sticks and
// cancels the next run at its first boundary; the flag clears when a
// run finishes.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
}

// Run fetches every item in order and returns the summary. Per-item
// failures are recorded in the summary, never returned as an error;
// the only error Run itself returns is ErrRunInProgress. A cancelled
// ctx behaves like Cancel: the loop stops at the next item boundary
// and the summary reports CancelledEarly.
func (r *Runner) Run(ctx context.Context, items []Item) (*Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)
	defer r.cancelled.Store(false)

	var (
		tracker progress.Tracker
		summary = &Summary{}
		started = time.Now()
	)

	for _, item := range items {
		if r.cancelled.Load() || ctx.Err() != nil {
			summary.CancelledEarly = true
			break
		}

		if r.opts.Limiter != nil {
			if err := r.opts.Limiter.Wait(ctx); err != nil {
				summary.CancelledEarly = true
				break
			}
		}

		res, err := r.opts.Fetcher.Do(ctx, item.URL)
		if err == nil {
			err = r.store(ctx, item, res)
		}

		if err != nil {
			summary.Failures++
			summary.Failed = append(summary.Failed, Failure{URL: item.URL, Message: err.Error()})
		} else {
			summary.Successes++
			tracker.Update(uint64(len(res.Body)), res.Elapsed)
		}

		r.emit(&tracker, summary.Successes+summary.Failures, len(items), started)
	}

	summary.TotalBytes = tracker.TotalBytes()
	summary.Elapsed = time.Since(started)
	if len(summary.Failed) > 0 {
		summary.FirstFailure = &summary.Failed[0]
	}

	return summary, nil
}

// store writes a successful payload to its numbered destination object.
// The output index is consumed by the attempt, not the outcome: a later
// item never reuses an earlier item's number.
func (r *Runner) store(ctx context.Context, item Item, res *fetch.Result) error {
	ext := naming.Extension(res.ContentType, item.URL)
	key := naming.Filename(r.opts.StartIndex+uint64(item.Index), ext)

	opts := &blob.WriterOptions{ContentType: res.ContentType}
	if err := r.opts.Bucket.WriteAll(ctx, key, res.Body, opts); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (r *Runner) emit(t *progress.Tracker, completed, total int, started time.Time) {
	if r.opts.OnProgress == nil {
		return
	}

	s := progress.Snapshot{
		Completed: completed,
		Total:     total,
		Bytes:     t.TotalBytes(),
		MeanMbps:  t.MeanMbps(),
	}
	s.ETA, s.HasETA = progress.ETA(completed, total, time.Since(started))

	r.opts.OnProgress(s)
}
