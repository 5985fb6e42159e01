package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalemusser/contactform/config"
	"go.uber.org/zap"
)

func TestIsValidHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"paperpackaginghub.com", true},
		{"paperpackaginghub.com:8080", true},
		{"[::1]:8443", true},
		{"[::1]", true},
		{"::1", true},
		{"", false},
		{"example.com:0", false},
		{"example.com:99999", false},
		{"example.com:abc", false},
		{"[]", false},
		{"[not-an-ip]:80", false},
		{"evil.com\r\nSet-Cookie: x=1", false},
		{"http://evil.com", false},
		{"/path", false},
	}
	for _, tt := range tests {
		if got := isValidHost(tt.host); got != tt.want {
			t.Errorf("isValidHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestHTTPRedirectHandler(t *testing.T) {
	h := httpRedirectHandler()

	req := httptest.NewRequest(http.MethodGet, "http://paperpackaginghub.com/contact?x=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://paperpackaginghub.com/contact?x=1" {
		t.Errorf("Location = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "http://paperpackaginghub.com/", nil)
	req.Host = "bad\nhost"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidateTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(cert, []byte("cert"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(key, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := validateTLSFiles(cert, key); err != nil {
		t.Errorf("valid files: %v", err)
	}
	if err := validateTLSFiles("", key); err == nil {
		t.Error("expected error for missing cert path")
	}
	if err := validateTLSFiles(filepath.Join(dir, "nope.pem"), key); err == nil {
		t.Error("expected error for nonexistent cert")
	}
	if err := validateTLSFiles(dir, key); err == nil {
		t.Error("expected error for directory cert path")
	}

	if err := os.Chmod(key, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := validateTLSFiles(cert, key); !errors.Is(err, errInsecureKey) {
		t.Errorf("err = %v, want errInsecureKey", err)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.CoreConfig{HTTP: config.HTTPConfig{ShutdownTimeout: 5 * time.Second}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, ln, nil, handler, zap.NewNop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenAndServeWithContext_NilArgs(t *testing.T) {
	if err := ListenAndServeWithContext(context.Background(), nil, http.NotFoundHandler(), nil); err == nil {
		t.Error("expected error for nil cfg")
	}
	if err := ListenAndServeWithContext(context.Background(), &config.CoreConfig{}, nil, nil); err == nil {
		t.Error("expected error for nil handler")
	}
}
