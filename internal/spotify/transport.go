package spotify

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// LimitConfig bounds outbound traffic to Spotify.
type LimitConfig struct {
	// MaxConcurrent caps in-flight requests. Zero disables the cap.
	MaxConcurrent int64
	// RequestsPerSecond is the sustained request rate. Zero disables rate limiting.
	RequestsPerSecond float64
	// Burst is the token bucket size. Values below 1 are treated as 1.
	Burst int
}

// LimitedTransport is an http.RoundTripper that caps concurrent requests and
// request rate. A request holds its slot until its response body is closed.
type LimitedTransport struct {
	base    http.RoundTripper
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

var _ http.RoundTripper = (*LimitedTransport)(nil)

// NewLimitedTransport wraps base (http.DefaultTransport when nil).
func NewLimitedTransport(base http.RoundTripper, cfg LimitConfig) *LimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	t := &LimitedTransport{base: base}
	if cfg.MaxConcurrent > 0 {
		t.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	if cfg.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	return t
}

// RoundTrip waits for a free slot and a rate token, then forwards the request.
func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	release := func() {}
	if t.sem != nil {
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for upstream slot: %w", err)
		}
		release = sync.OnceFunc(func() { t.sem.Release(1) })
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			release()
			return nil, fmt.Errorf("waiting for upstream rate limit: %w", err)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		release()
		return nil, err
	}

	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

// releasingBody frees the transport slot when the body is closed.
type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

// NewHTTPClient returns an http.Client using a LimitedTransport with the given timeout.
func NewHTTPClient(cfg LimitConfig, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewLimitedTransport(nil, cfg),
		Timeout:   timeout,
	}
}
