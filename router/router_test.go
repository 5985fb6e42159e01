package router

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/ratelimit"
	"go.uber.org/zap"
)

// allowedPOSTs sends n POSTs from one socket address, each with a
// different X-Forwarded-For, through a 1/min limiter and counts the 200s.
func allowedPOSTs(t *testing.T, trustProxy bool, n int) int {
	t.Helper()
	cfg := &config.CoreConfig{MaxRequestBodyBytes: 64 << 10, TrustProxyHeaders: trustProxy}
	r := New(cfg, zap.NewNop())

	store := ratelimit.NewMemoryStore(1, 1)
	t.Cleanup(func() { _ = store.Close() })
	r.With(ratelimit.Middleware(store, ratelimit.Config{})).Post("/contact", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	allowed := 0
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(""))
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i+1))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	return allowed
}

func TestForwardedForIgnoredByDefault(t *testing.T) {
	if got := allowedPOSTs(t, false, 20); got != 1 {
		t.Errorf("spoofed X-Forwarded-For: %d of 20 POSTs allowed, want 1", got)
	}
}

func TestForwardedForTrustedBehindProxy(t *testing.T) {
	if got := allowedPOSTs(t, true, 5); got != 5 {
		t.Errorf("distinct clients behind a trusted proxy: %d of 5 allowed, want 5", got)
	}
}
