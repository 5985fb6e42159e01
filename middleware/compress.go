// middleware/compress.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/contactform/config"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// compressibleTypes are the only response types the service produces.
var compressibleTypes = []string{"application/json", "text/plain"}

// CompressFromConfig returns a gzip/deflate middleware for JSON and text
// responses, or an identity middleware when compression is disabled.
// Levels outside 1-9 are clamped with a warning.
func CompressFromConfig(coreCfg *config.CoreConfig, logger *zap.Logger) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.EnableCompression {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	level := coreCfg.CompressionLevel
	switch {
	case level < 1:
		level = 1
	case level > 9:
		level = 9
	}
	if level != coreCfg.CompressionLevel && logger != nil {
		logger.Warn("compression level clamped",
			zap.Int("configured", coreCfg.CompressionLevel),
			zap.Int("used", level))
	}
	return middleware.Compress(level, compressibleTypes...)
}
