// middleware/contenttype.go
package middleware

import (
	"mime"
	"net/http"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/submission"
)

// InvalidFormMessage is returned for bodies that are not a form post.
const InvalidFormMessage = "Invalid form submission."

// RequireForm returns a middleware that rejects POST requests whose
// Content-Type is neither application/x-www-form-urlencoded nor
// multipart/form-data with 400 and the contact JSON envelope. Other methods
// pass through so the handler can answer them with 405.
func RequireForm() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || (mt != "application/x-www-form-urlencoded" && mt != "multipart/form-data") {
				httputil.WriteJSON(w, http.StatusBadRequest, submission.Fail(InvalidFormMessage))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
