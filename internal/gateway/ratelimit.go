package gateway

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// hostRateLimiter keeps one secondary rate limit waiter per upstream host,
// so a limited host only delays requests to itself.
type hostRateLimiter struct {
	base       http.RoundTripper
	sleepLimit time.Duration

	mu      sync.Mutex
	waiters map[string]http.RoundTripper
}

func newHostRateLimiter(base http.RoundTripper, sleepLimit time.Duration) *hostRateLimiter {
	return &hostRateLimiter{
		base:       base,
		sleepLimit: sleepLimit,
		waiters:    make(map[string]http.RoundTripper),
	}
}

// waiterFor returns the waiter for host, building it on first use.
func (l *hostRateLimiter) waiterFor(host string) (http.RoundTripper, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.waiters[host]; ok {
		return w, nil
	}
	w, err := github_ratelimit.NewRateLimitWaiter(l.base, github_ratelimit.WithSingleSleepLimit(l.sleepLimit, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter for %q: %w", host, err)
	}
	l.waiters[host] = w
	return w, nil
}

func (l *hostRateLimiter) RoundTrip(req *http.Request) (*http.Response, error) {
	w, err := l.waiterFor(req.URL.Host)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	return w.RoundTrip(req)
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the pool.
func (l *hostRateLimiter) CloseIdleConnections() {
	if c, ok := l.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
