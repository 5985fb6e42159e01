// middleware/security.go
package middleware

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/contactform/config"
)

// SecurityHeadersOptions configures the security headers middleware.
// An empty string (or zero) disables the corresponding header.
type SecurityHeadersOptions struct {
	// XFrameOptions controls iframe embedding ("DENY", "SAMEORIGIN").
	XFrameOptions string

	// XContentTypeOptions prevents MIME type sniffing ("nosniff").
	XContentTypeOptions string

	// ReferrerPolicy controls how much referrer information is sent.
	ReferrerPolicy string

	// ContentSecurityPolicy for JSON responses; nothing is ever rendered,
	// so everything can be denied.
	ContentSecurityPolicy string

	// HSTSMaxAge sets Strict-Transport-Security max-age in seconds.
	// Only sent when the request arrived over TLS.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
	HSTSPreload           bool
}

// DefaultSecurityHeadersOptions returns options suited to a JSON endpoint
// that is posted to by browsers but never framed or rendered.
func DefaultSecurityHeadersOptions() SecurityHeadersOptions {
	return SecurityHeadersOptions{
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubDomains: true,
	}
}

// SecurityHeaders returns middleware that sets the configured headers on
// every response.
func SecurityHeaders(opts SecurityHeadersOptions) func(next http.Handler) http.Handler {
	var hsts string
	if opts.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(opts.HSTSMaxAge)
		if opts.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		if opts.HSTSPreload {
			hsts += "; preload"
		}
	}

	set := func(h http.Header, key, value string) {
		if value != "" {
			h.Set(key, value)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			set(h, "X-Frame-Options", opts.XFrameOptions)
			set(h, "X-Content-Type-Options", opts.XContentTypeOptions)
			set(h, "Referrer-Policy", opts.ReferrerPolicy)
			set(h, "Content-Security-Policy", opts.ContentSecurityPolicy)
			if r.TLS != nil {
				set(h, "Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersFromConfig returns the default security headers, with HSTS
// dropped entirely unless the service is configured to serve HTTPS.
func SecurityHeadersFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	opts := DefaultSecurityHeadersOptions()
	if coreCfg == nil || !coreCfg.HTTP.UseHTTPS {
		opts.HSTSMaxAge = 0
	}
	return SecurityHeaders(opts)
}
