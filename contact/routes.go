package contact

import (
	"net/http"

	"github.com/dalemusser/contactform/middleware"
	"github.com/go-chi/chi/v5"
)

// Mount attaches h at path for every method, so that wrong methods get
// the endpoint's own 405 envelope. mws run before the form content check,
// e.g. a rate limiter.
func Mount(r chi.Router, path string, h http.Handler, mws ...func(http.Handler) http.Handler) {
	chain := append(chi.Middlewares{}, mws...)
	chain = append(chain, middleware.RequireForm())
	r.With(chain...).Handle(path, h)
}
