package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHandler_Liveness(t *testing.T) {
	code, resp := get(t, Handler(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestHandler_Readiness(t *testing.T) {
	checks := map[string]Check{
		"submission_log": func(context.Context) error { return nil },
		"redis":          func(context.Context) error { return errors.New("connection refused") },
		"unset":          nil,
	}
	code, resp := get(t, Handler(checks, nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, map[string]string{
		"submission_log": "ok",
		"redis":          "error: connection refused",
		"unset":          "ok",
	}, resp.Checks)
}

func TestHandler_ChecksSeeDeadline(t *testing.T) {
	checks := map[string]Check{
		"deadline": func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		},
	}
	code, _ := get(t, Handler(checks, nil), "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestMount(t *testing.T) {
	r := chi.NewRouter()
	Mount(r, map[string]Check{"x": func(context.Context) error { return nil }}, nil)

	code, resp := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Checks)

	code, resp = get(t, r, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Checks["x"])
}
