package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/submission"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) submission.Response {
	t.Helper()
	var resp submission.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not a contact response: %v (%q)", err, rec.Body.String())
	}
	return resp
}

func TestRequireForm(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"urlencoded", http.MethodPost, "application/x-www-form-urlencoded", http.StatusOK},
		{"urlencoded charset", http.MethodPost, "application/x-www-form-urlencoded; charset=UTF-8", http.StatusOK},
		{"multipart", http.MethodPost, "multipart/form-data; boundary=xyz", http.StatusOK},
		{"json", http.MethodPost, "application/json", http.StatusBadRequest},
		{"missing", http.MethodPost, "", http.StatusBadRequest},
		{"get passes through", http.MethodGet, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/contact", strings.NewReader(""))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			RequireForm()(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusBadRequest {
				resp := decode(t, rec)
				if resp.Success || resp.Message != InvalidFormMessage {
					t.Errorf("response = %+v", resp)
				}
			}
		})
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if resp := decode(t, rec); resp.Success || resp.Message != NotFoundMessage {
		t.Errorf("response = %+v", resp)
	}

	rec = httptest.NewRecorder()
	MethodNotAllowedHandler(nil)(rec, httptest.NewRequest(http.MethodPut, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if resp := decode(t, rec); resp.Success || resp.Message != MethodNotAllowedMessage {
		t.Errorf("response = %+v", resp)
	}
}

func TestLimitBodySize(t *testing.T) {
	var readErr error
	h := LimitBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 32)))
	req.ContentLength = -1 // chunked: only the reader can enforce the cap
	h.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("read error = %v, want MaxBytesError", readErr)
	}
}

func TestLimitBodySize_DeclaredLength(t *testing.T) {
	called := false
	h := LimitBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 32))))

	if called {
		t.Error("handler should not run")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if resp := decode(t, rec); resp.Success || resp.Message != TooLargeMessage {
		t.Errorf("response = %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	if !called {
		t.Error("handler should run for a body under the limit")
	}
}

func TestCORSFromConfig(t *testing.T) {
	cfg := &config.CoreConfig{CORS: config.CORSConfig{
		EnableCORS:         true,
		CORSAllowedOrigins: []string{"https://paperpackaginghub.com"},
		CORSAllowedMethods: []string{http.MethodPost},
	}}
	h := CORSFromConfig(cfg)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.Header.Set("Origin", "https://paperpackaginghub.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://paperpackaginghub.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Submission-Reference") {
		t.Errorf("Access-Control-Expose-Headers = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin = %q", got)
	}
}

func TestCompressFromConfig_Disabled(t *testing.T) {
	h := CompressFromConfig(&config.CoreConfig{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none", got)
	}
}

func TestMergeHeaders(t *testing.T) {
	got := mergeHeaders(corsExposed, []string{"retry-after", "Link"})
	want := []string{"X-Submission-Reference", "Retry-After", "Link"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("mergeHeaders = %v, want %v", got, want)
	}
}
