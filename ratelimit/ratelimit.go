// ratelimit/ratelimit.go
// Package ratelimit throttles contact submissions per client.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/submission"
	"go.uber.org/zap"
)

// LimitedMessage is the response message for throttled requests.
const LimitedMessage = "Too many submissions. Please wait a minute and try again."

// Store decides whether one more request for key is allowed. When it is
// not, retryAfter says how long the client should wait.
type Store interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys on the client IP from RemoteAddr. Put chi's RealIP
// middleware in front when running behind a proxy.
func IPKeyFunc(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Config configures Middleware.
type Config struct {
	// KeyFunc defaults to IPKeyFunc.
	KeyFunc KeyFunc

	// Methods lists the methods that are limited. Defaults to POST only.
	Methods []string

	// OnLimited is called for every rejected request, before the response
	// is written.
	OnLimited func(r *http.Request)

	Logger *zap.Logger
}

// Middleware rejects requests over the store's limit with 429, a
// Retry-After header and the contact JSON envelope. Store errors fail open.
func Middleware(store Store, cfg Config) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKeyFunc
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{http.MethodPost}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limited := make(map[string]bool, len(cfg.Methods))
	for _, m := range cfg.Methods {
		limited[m] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyFunc(r)
			ok, retryAfter, err := store.Allow(r.Context(), key)
			if err != nil {
				cfg.Logger.Warn("rate limit store failed; allowing request",
					zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.OnLimited != nil {
				cfg.OnLimited(r)
			}
			cfg.Logger.Info("submission rate limited",
				zap.String("key", key), zap.Duration("retry_after", retryAfter))

			secs := int((retryAfter + time.Second - 1) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			httputil.WriteJSON(w, http.StatusTooManyRequests, submission.Fail(LimitedMessage))
		})
	}
}
