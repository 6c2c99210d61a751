package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of items in the batch.
	Total int

	// Label names the batch in the header, typically the destination.
	Label string

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to redraw the progress line.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter renders batch progress to a terminal. It is a passive sink:
// Observe stores the latest snapshot and returns immediately, and a
// ticker goroutine does the rendering. Intermediate snapshots that
// arrive between ticks are simply superseded.
type Reporter struct {
	opts Options

	mu      sync.Mutex
	latest  Snapshot
	started bool
	stopped bool

	startTime time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewReporter creates a progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start prints the header and begins the render loop.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	r.startTime = time.Now()

	fmt.Fprintf(r.opts.Output, "[inatdl] Fetching %d images -> %s\n", r.opts.Total, r.opts.Label)

	go r.updateLoop()
}

// Observe records a snapshot for the next redraw. It never blocks.
func (r *Reporter) Observe(s Snapshot) {
	r.mu.Lock()
	r.latest = s
	r.mu.Unlock()
}

// Stop ends the render loop and prints the final status line. Safe to
// call more than once, or on a Reporter that was never started; when a
// loop is running it waits for the final line to be written.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	if !started {
		return
	}

	close(r.stopCh)
	<-r.doneCh
}

func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			close(r.doneCh)
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

func (r *Reporter) printProgress() {
	s := r.snapshot()

	eta := "estimating..."
	if s.HasETA {
		eta = formatDuration(s.ETA)
	}

	fmt.Fprintf(r.opts.Output, "\r[inatdl] %d/%d images | %.2f Mbit/s | ETA: %s    ",
		s.Completed,
		s.Total,
		s.MeanMbps,
		eta,
	)
}

func (r *Reporter) printFinalStatus() {
	s := r.snapshot()
	duration := time.Since(r.startTime)

	fmt.Fprintf(r.opts.Output, "\r[inatdl] %d/%d images | %s fetched | %.2f Mbit/s mean    \n",
		s.Completed,
		s.Total,
		formatBytes(int64(s.Bytes)),
		s.MeanMbps,
	)
	fmt.Fprintf(r.opts.Output, "[inatdl] Total time: %s\n", formatDuration(duration))
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// FormatDuration is exported for use by other packages.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
