// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/contactform/config"
	"github.com/go-chi/cors"
)

// corsExposed are response headers a cross-origin form script may read:
// the submission reference and the rate limiter's Retry-After.
var corsExposed = []string{"X-Submission-Reference", "Retry-After"}

// corsDefaultHeaders apply when cors_allowed_headers is empty.
var corsDefaultHeaders = []string{"Accept", "Content-Type"}

// CORSFromConfig lets a form hosted on another origin post to the
// endpoint. It is a no-op unless enable_cors is set.
func CORSFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.CORS.EnableCORS {
		return func(next http.Handler) http.Handler { return next }
	}

	allowed := coreCfg.CORS.CORSAllowedHeaders
	if len(allowed) == 0 {
		allowed = corsDefaultHeaders
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   coreCfg.CORS.CORSAllowedOrigins,
		AllowedMethods:   coreCfg.CORS.CORSAllowedMethods,
		AllowedHeaders:   allowed,
		ExposedHeaders:   mergeHeaders(corsExposed, coreCfg.CORS.CORSExposedHeaders),
		AllowCredentials: coreCfg.CORS.CORSAllowCredentials,
		MaxAge:           coreCfg.CORS.CORSMaxAge,
	})
}

func mergeHeaders(base, extra []string) []string {
	out := append([]string{}, base...)
	seen := make(map[string]bool, len(out)+len(extra))
	for _, h := range out {
		seen[http.CanonicalHeaderKey(h)] = true
	}
	for _, h := range extra {
		if k := http.CanonicalHeaderKey(h); !seen[k] {
			seen[k] = true
			out = append(out, h)
		}
	}
	return out
}
