package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Kind classifies a fetch failure. The set is closed so callers can
// switch over it exhaustively.
type Kind uint8

const (
	// KindTimeout means a single attempt exceeded its time budget.
	KindTimeout Kind = iota + 1
	// KindTransport covers DNS and connection-level failures.
	KindTransport
	// KindClient is an HTTP 4xx response. Not retried.
	KindClient
	// KindServer is an HTTP 5xx response.
	KindServer
	// KindTooSmall is a 2xx response whose body is below MinSize. Not
	// retried: the server answered, it just didn't answer with an image.
	KindTooSmall
	// KindExhausted means retryable failures used up every attempt. The
	// message carries the last underlying cause.
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport error"
	case KindClient:
		return "client error"
	case KindServer:
		return "server error"
	case KindTooSmall:
		return "content too small"
	case KindExhausted:
		return "retries exhausted"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt at the same URL may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindTransport, KindServer:
		return true
	}
	return false
}

// Error is a classified fetch failure.
type Error struct {
	Kind Kind
	URL  string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %s", e.URL, e.Kind, e.Msg)
}

// KindOf extracts the failure kind from err, or 0 when err is not a
// fetch error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Result is a successful fetch.
type Result struct {
	Body        []byte
	ContentType string
	// Elapsed spans the whole logical fetch, retries and backoff
	// included. It feeds the batch throughput accounting.
	Elapsed time.Duration
	// Attempts is how many tries the fetch took.
	Attempts int
}

// Options configures the fetch client.
type Options struct {
	// Timeout bounds each individual attempt, first byte to last.
	// Default: 30s
	Timeout time.Duration

	// MaxAttempts is the total number of attempts, the first try
	// included. Default: 3
	MaxAttempts int

	// BaseDelay is the backoff unit: the wait before attempt n+1 is
	// BaseDelay * n. Default: 2s
	BaseDelay time.Duration

	// MinSize is the smallest 2xx payload accepted as a real image, in
	// bytes. Shorter bodies fail as KindTooSmall without retry.
	// Default: 100
	MinSize int

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MinSize:     100,
		UserAgent:   "inatdl/1.0",
	}
}

// Client fetches images over HTTP with retries.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a fetch client. Zero fields in opts fall back to
// their defaults (except MinSize: an explicit 0 disables the gate).
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.MinSize < 0 {
		opts.MinSize = def.MinSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Do performs one logical fetch: up to MaxAttempts tries with a growing
// delay between retryable failures. Fatal failures return immediately.
func (c *Client) Do(ctx context.Context, url string) (*Result, error) {
	start := time.Now()
	var last *Error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, &Error{Kind: KindTransport, URL: url, Msg: err.Error()}
			}
		}

		res, ferr := c.attempt(ctx, url)
		if ferr == nil {
			res.Attempts = attempt
			res.Elapsed = time.Since(start)
			return res, nil
		}
		if !ferr.Kind.Retryable() {
			return nil, ferr
		}
		last = ferr
	}

	return nil, &Error{
		Kind: KindExhausted,
		URL:  url,
		Msg:  fmt.Sprintf("failed after %d attempts: %s", c.opts.MaxAttempts, last.Msg),
	}
}

// attempt performs a single GET and classifies its outcome.
func (c *Client) attempt(ctx context.Context, url string) (*Result, *Error) {
	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindClient, URL: url, Msg: err.Error()}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindServer, URL: url, Msg: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &Error{Kind: KindClient, URL: url, Msg: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 300:
		// The client follows redirects itself; anything left is odd
		// enough to treat as fatal.
		return nil, &Error{Kind: KindClient, URL: url, Msg: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(url, err)
	}

	if len(body) < c.opts.MinSize {
		return nil, &Error{
			Kind: KindTooSmall,
			URL:  url,
			Msg:  fmt.Sprintf("payload is %d bytes (minimum %d), likely an error page", len(body), c.opts.MinSize),
		}
	}

	return &Result{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// classify maps a transport-level error to a failure kind.
func (c *Client) classify(url string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: url, Msg: fmt.Sprintf("timeout after %s", c.opts.Timeout)}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, URL: url, Msg: fmt.Sprintf("timeout after %s", c.opts.Timeout)}
	}
	return &Error{Kind: KindTransport, URL: url, Msg: err.Error()}
}

// backoff waits BaseDelay*n before the next attempt, or returns early
// when ctx is done.
func (c *Client) backoff(ctx context.Context, n int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.opts.BaseDelay * time.Duration(n)):
		return nil
	}
}
