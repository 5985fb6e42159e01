// health/health.go
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/contactform/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Check probes one dependency and returns nil when it is healthy.
// ctx is derived from the request and bounded by the handler's timeout.
type Check func(ctx context.Context) error

// Response is the JSON body written by Handler.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DefaultTimeout bounds each readiness run.
const DefaultTimeout = 3 * time.Second

// Handler runs checks concurrently on each request. With no checks it is
// a plain liveness probe answering {"status":"ok"}. If any check fails
// the status is 503 and the failing check reads "error: ...".
func Handler(checks map[string]Check, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
		defer cancel()

		errs := make([]error, len(names))
		var wg sync.WaitGroup
		for i, name := range names {
			check := checks[name]
			if check == nil {
				continue
			}
			wg.Add(1)
			go func(i int, check Check) {
				defer wg.Done()
				errs[i] = check(ctx)
			}(i, check)
		}
		wg.Wait()

		resp := Response{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for i, name := range names {
			if errs[i] == nil {
				resp.Checks[name] = "ok"
				continue
			}
			resp.Status = "error"
			status = http.StatusServiceUnavailable
			resp.Checks[name] = "error: " + errs[i].Error()
			logger.Warn("health check failed", zap.String("check", name), zap.Error(errs[i]))
		}
		httputil.WriteJSON(w, status, resp)
	})
}

// Mount attaches GET /healthz (liveness, no checks) and GET /readyz
// (readiness, running checks) to r.
func Mount(r chi.Router, ready map[string]Check, logger *zap.Logger) {
	r.Method(http.MethodGet, "/healthz", Handler(nil, logger))
	r.Method(http.MethodGet, "/readyz", Handler(ready, logger))
}
