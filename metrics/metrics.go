// metrics/metrics.go
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// reqDuration is a histogram of HTTP request durations in seconds, labeled
// by route, method, and status code.
var reqDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests.",
		// buckets in seconds; a submission includes a mail round trip
		Buckets: []float64{0.01, 0.1, 0.3, 1.2, 5, 30},
	},
	[]string{"path", "method", "status"},
)

// submissions counts contact submissions by outcome.
var submissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Contact form submissions by outcome.",
	},
	[]string{"outcome"},
)

// Submission outcomes recorded by RecordSubmission.
const (
	OutcomeSent             = "sent"
	OutcomeInvalid          = "invalid"
	OutcomeBadRequest       = "bad_request"
	OutcomeDispatchFailed   = "dispatch_failed"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeRateLimited      = "rate_limited"
)

// unmatchedRoute labels requests that matched no chi route, so that
// scanners cannot grow the label set.
const unmatchedRoute = "unmatched"

// RecordSubmission increments the submission counter for outcome.
// Recording works whether or not RegisterDefault has run.
func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

// SubmissionCount returns the current counter value for outcome.
func SubmissionCount(outcome string) float64 {
	var m dto.Metric
	if err := submissions.WithLabelValues(outcome).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// RegisterDefault registers the Go runtime and process collectors, the HTTP
// request duration histogram and the submission counter with the default
// registry. Calling it more than once is harmless; any other registration
// failure is fatal.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
	mustRegister(logger, "submission counter", submissions)
}

func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	err := prometheus.Register(c)
	var already prometheus.AlreadyRegisteredError
	if err == nil || errors.As(err, &already) {
		return
	}
	if logger == nil {
		panic("metrics: failed to register " + name + ": " + err.Error())
	}
	logger.Fatal("failed to register "+name, zap.Error(err))
}

// HTTPMetrics is a middleware that records request duration into the
// http_request_duration_seconds histogram, labeled with the chi route
// pattern rather than the raw path. Place it after the Recoverer so
// panics are recorded as 500.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		switch {
		case status == 0:
			// nothing written; net/http sends 200
			status = http.StatusOK
		case status < 100 || status > 599:
			status = http.StatusInternalServerError
		}

		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		reqDuration.WithLabelValues(path, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler returns an http.Handler that exposes the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
