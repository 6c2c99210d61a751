package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MinSize:     100,
	}
}

func payload(n int) []byte {
	return []byte(strings.Repeat("x", n))
}

func TestSuccessFirstAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload(500))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	res, err := client.Do(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if len(res.Body) != 500 {
		t.Errorf("expected 500 bytes, got %d", len(res.Body))
	}
	if res.ContentType != "image/png" {
		t.Errorf("expected content type image/png, got %q", res.ContentType)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	if res.Elapsed <= 0 {
		t.Error("expected positive elapsed time")
	}
}

func TestTimeoutsThenSuccess(t *testing.T) {
	// Timed-out handlers are still running when the retry lands, so the
	// counter must be atomic.
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			time.Sleep(500 * time.Millisecond)
			return
		}
		w.Write(payload(200))
	}))
	defer server.Close()

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond

	client := NewClient(opts)
	res, err := client.Do(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if res.Attempts != 3 {
		t.Errorf("expected success on attempt 3, got %d", res.Attempts)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 requests on the wire, got %d", got)
	}
}

func TestClientErrorNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testOptions())
	_, err := client.Do(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}

	if KindOf(err) != KindClient {
		t.Errorf("expected KindClient, got %v", KindOf(err))
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a 4xx, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected message to carry the status, got %q", err.Error())
	}
}

func TestServerErrorExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testOptions())
	_, err := client.Do(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for persistent 500")
	}

	if KindOf(err) != KindExhausted {
		t.Errorf("expected KindExhausted, got %v", KindOf(err))
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected message to report attempt count, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("expected message to carry the last cause, got %q", err.Error())
	}
}

func TestServerErrorThenSuccess(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(payload(150))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	res, err := client.Do(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestTooSmallNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write(payload(10))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	_, err := client.Do(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for tiny payload")
	}

	if KindOf(err) != KindTooSmall {
		t.Errorf("expected KindTooSmall, got %v", KindOf(err))
	}
	// Deliberate policy: a 200 with a tiny body is treated as fatal,
	// even though the resource might legitimately be that small.
	// Retrying cannot help either way.
	if attempts != 1 {
		t.Errorf("too-small payload must consume exactly 1 attempt, got %d", attempts)
	}
}

func TestMinSizeZeroDisablesGate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload(10))
	}))
	defer server.Close()

	opts := testOptions()
	opts.MinSize = 0

	client := NewClient(opts)
	res, err := client.Do(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(res.Body) != 10 {
		t.Errorf("expected 10 bytes, got %d", len(res.Body))
	}
}

func TestTransportErrorExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // nothing listening anymore

	client := NewClient(testOptions())
	_, err := client.Do(context.Background(), url)
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if KindOf(err) != KindExhausted {
		t.Errorf("expected KindExhausted, got %v", KindOf(err))
	}
}

func TestBackoffRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	opts := testOptions()
	opts.BaseDelay = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	client := NewClient(opts)
	_, err := client.Do(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("backoff ignored context cancellation, took %s", elapsed)
	}
}

func TestKindRetryable(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
	}{
		{KindTimeout, true},
		{KindTransport, true},
		{KindServer, true},
		{KindClient, false},
		{KindTooSmall, false},
		{KindExhausted, false},
	}

	for _, tt := range tests {
		if got := tt.kind.Retryable(); got != tt.retryable {
			t.Errorf("%v.Retryable() = %v, want %v", tt.kind, got, tt.retryable)
		}
	}
}

func TestKindOfForeignError(t *testing.T) {
	if got := KindOf(context.Canceled); got != 0 {
		t.Errorf("expected 0 for a non-fetch error, got %v", got)
	}
}
