// router/router.go
package router

import (
	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/logging"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router pre-wired with the standard middleware stack:
// - RequestID
// - RealIP (only when trust_proxy_headers is set)
// - Recoverer (panic → 500 JSON envelope)
// - body size limit (MaxRequestBodyBytes)
// - metrics HTTP middleware
// - request logging
// - security headers, CORS and compression (all config driven)
// - NotFound / MethodNotAllowed JSON handlers
// Routes are mounted by the caller.
func New(coreCfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Request context & safety
	r.Use(chimw.RequestID)
	if coreCfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(logging.Recoverer(logger))

	r.Use(middleware.LimitBodySize(coreCfg.MaxRequestBodyBytes))

	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))

	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.CompressFromConfig(coreCfg, logger))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
