package middleware

import (
	"net/http"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/submission"
	"go.uber.org/zap"
)

// Messages for requests that never reach a route handler.
const (
	NotFoundMessage         = "The requested resource was not found."
	MethodNotAllowedMessage = "Method not allowed. Please use POST request."
)

// NotFoundHandler returns a handler that logs a 404 and answers with the
// contact JSON envelope. Pass it to chi.Router.NotFound.
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Info("not_found",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_ip", r.RemoteAddr),
			)
		}
		httputil.WriteJSON(w, http.StatusNotFound, submission.Fail(NotFoundMessage))
	}
}

// MethodNotAllowedHandler returns a handler that logs a 405 and answers
// with the contact JSON envelope. Pass it to chi.Router.MethodNotAllowed.
func MethodNotAllowedHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Info("method_not_allowed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_ip", r.RemoteAddr),
			)
		}
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, submission.Fail(MethodNotAllowedMessage))
	}
}
