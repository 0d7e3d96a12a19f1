package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMiddlewareLimitsPerClient(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 2, time.Minute, nil)
	h := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PROPFIND", "/carddav/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := do("10.0.0.1:1234"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	rr := do("10.0.0.1:1234")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	if rr := do("10.0.0.2:1234"); rr.Code != http.StatusOK {
		t.Fatalf("other client must have its own bucket, got %d", rr.Code)
	}
}

func TestClientIPHonorsTrustedProxiesOnly(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, []string{"192.168.0.0/16", "10.1.1.1", "bogus"})
	if len(l.trustedProxies) != 2 {
		t.Fatalf("expected two parsed proxies, got %d", len(l.trustedProxies))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.168.1.1")

	req.RemoteAddr = "192.168.1.1:443"
	if got := l.clientIP(req); got != "203.0.113.9" {
		t.Fatalf("trusted proxy: got %s", got)
	}
	req.RemoteAddr = "10.1.1.1:443"
	if got := l.clientIP(req); got != "203.0.113.9" {
		t.Fatalf("trusted single ip: got %s", got)
	}
	req.RemoteAddr = "198.51.100.7:443"
	if got := l.clientIP(req); got != "198.51.100.7" {
		t.Fatalf("untrusted peer must not be able to spoof, got %s", got)
	}
}

func TestClientIPFallsBackToRealIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:80"
	req.Header.Set("X-Real-IP", "203.0.113.4")
	if got := l.clientIP(req); got != "203.0.113.4" {
		t.Fatalf("got %s", got)
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, nil)
	l.now = func() time.Time { return now }

	l.getLimiter("a")
	now = now.Add(3 * time.Minute)
	l.getLimiter("b")
	l.sweep()

	if _, ok := l.limiters["a"]; ok {
		t.Fatalf("idle bucket kept")
	}
	if _, ok := l.limiters["b"]; !ok {
		t.Fatalf("fresh bucket dropped")
	}
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, nil)
	l.maxEntries = 2
	l.now = func() time.Time { now = now.Add(time.Second); return now }

	l.getLimiter("a")
	l.getLimiter("b")
	l.getLimiter("c")
	if _, ok := l.limiters["a"]; ok || len(l.limiters) != 2 {
		t.Fatalf("oldest entry should be evicted: %v", l.limiters)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
