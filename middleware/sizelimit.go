// middleware/sizelimit.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/submission"
)

// TooLargeMessage answers a body whose declared length is over the limit.
const TooLargeMessage = "Submission is too large."

// LimitBodySize caps request bodies at maxBytes. A declared Content-Length
// over the cap is refused with 413 before the handler runs; bodies without
// one are cut off by http.MaxBytesReader while being read. maxBytes <= 0
// disables the limit.
func LimitBodySize(maxBytes int64) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, submission.Fail(TooLargeMessage))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
