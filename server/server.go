// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dalemusser/contactform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// errInsecureKey marks a key file readable by group or others.
var errInsecureKey = errors.New("overly permissive permissions")

// WithShutdownSignals returns a context that is canceled when the process
// receives SIGINT or SIGTERM. The returned cancel function also stops
// signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if logger != nil && parent.Err() == nil {
			logger.Info("shutdown signal received")
		}
	}()
	return ctx, cancel
}

// ListenAndServeWithContext starts the HTTP server, or the HTTPS server plus
// a port 80 redirect (and ACME http-01) server, and blocks until ctx is
// canceled or a server fails. Routes come entirely from handler.
func ListenAndServeWithContext(ctx context.Context, cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("server: cfg is nil")
	}
	if handler == nil {
		return errors.New("server: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.HTTP.UseHTTPS {
		addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", addr, err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		return Serve(ctx, cfg, ln, nil, handler, logger)
	}

	tlsCfg, aux, warm, err := tlsSetup(cfg, logger)
	if err != nil {
		return err
	}

	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	baseLn, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen https %s: %w", addr, err)
	}
	if warm != nil {
		go warm(ctx)
	}
	logger.Info("HTTPS server listening",
		zap.String("addr", baseLn.Addr().String()),
		zap.Bool("lets_encrypt", cfg.TLS.UseLetsEncrypt),
		zap.String("domain", cfg.TLS.Domain))
	return Serve(ctx, cfg, tls.NewListener(baseLn, tlsCfg), aux, handler, logger)
}

// Serve runs handler on ln (and aux, if non-nil, via its own
// ListenAndServe) until ctx is canceled, then shuts both down within
// cfg.HTTP.ShutdownTimeout. A failure of either server stops the other.
func Serve(ctx context.Context, cfg *config.CoreConfig, ln net.Listener, aux *http.Server, handler http.Handler, logger *zap.Logger) error {
	srv := newHTTPServer(cfg, handler, logger)

	serveErr := make(chan error, 1)
	go func() { serveErr <- ignoreClosed(srv.Serve(ln)) }()

	// nil channel: never ready when there is no aux server
	var auxErr chan error
	if aux != nil {
		auxErr = make(chan error, 1)
		go func() { auxErr <- ignoreClosed(aux.ListenAndServe()) }()
		logger.Info("redirect server listening", zap.String("addr", aux.Addr))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down server…")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if aux != nil {
				_ = aux.Shutdown(shutdownCtx)
			}
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = ln.Close()
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped gracefully")
			return nil

		case err := <-serveErr:
			if aux != nil {
				_ = aux.Close()
			}
			_ = ln.Close()
			if err != nil {
				return fmt.Errorf("primary server error: %w", err)
			}
			return nil

		case err := <-auxErr:
			if err != nil {
				_ = srv.Close()
				_ = ln.Close()
				return fmt.Errorf("auxiliary server error: %w", err)
			}
			aux, auxErr = nil, nil
		}
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func newHTTPServer(cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	// Route stdlib error logs into zap at Warn level.
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

// tlsSetup builds the TLS config for the HTTPS listener and the port 80
// server that accompanies it. With Let's Encrypt the port 80 server also
// answers http-01 challenges, and warm (non-nil) fetches the certificate
// once that server is up.
func tlsSetup(cfg *config.CoreConfig, logger *zap.Logger) (tlsCfg *tls.Config, aux *http.Server, warm func(context.Context), err error) {
	if cfg.TLS.UseLetsEncrypt {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		if cfg.TLS.ACMEDirectoryURL != "" {
			m.Client = &acme.Client{DirectoryURL: cfg.TLS.ACMEDirectoryURL}
		}
		aux = newHTTPServer(cfg, m.HTTPHandler(httpRedirectHandler()), logger)
		aux.Addr = ":80"
		warm = func(ctx context.Context) {
			if err := waitForCert(ctx, m, cfg.TLS.Domain, 60*time.Second); err != nil {
				logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
			}
		}
		return &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate}, aux, warm, nil
	}

	if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
		if !errors.Is(err, errInsecureKey) || cfg.Env == "prod" {
			return nil, nil, nil, err
		}
		logger.Warn("TLS key file security warning (would block in prod)", zap.Error(err))
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load TLS cert/key: %w", err)
	}

	aux = newHTTPServer(cfg, httpRedirectHandler(), logger)
	aux.Addr = ":80"
	return &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}, aux, nil, nil
}

// httpRedirectHandler redirects any HTTP request to HTTPS preserving host
// and path. Hosts and URIs that could inject headers are rejected.
func httpRedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqURI := r.URL.RequestURI()
		if !isValidHost(r.Host) || strings.IndexFunc(reqURI, isControl) >= 0 {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+reqURI, http.StatusMovedPermanently)
	})
}

func isControl(c rune) bool {
	return c < 0x20 || c == 0x7f
}

// isValidHost reports whether a Host header is safe to echo into a
// redirect Location.
func isValidHost(host string) bool {
	if host == "" || strings.Contains(host, "://") || strings.HasPrefix(host, "/") {
		return false
	}

	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		n, perr := strconv.Atoi(port)
		if perr != nil || n <= 0 || n > 65535 {
			return false
		}
		name = h
	}
	if name == "" || strings.IndexFunc(name, isControl) >= 0 {
		return false
	}

	if strings.HasPrefix(name, "[") || strings.Contains(name, ":") {
		ip := strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
		if i := strings.IndexByte(ip, '%'); i >= 0 {
			ip = ip[:i]
		}
		return net.ParseIP(ip) != nil
	}
	return true
}

// validateTLSFiles checks that the certificate and key files exist and that
// the key is not readable by group or others. The latter is reported as
// errInsecureKey so callers can downgrade it to a warning outside prod.
func validateTLSFiles(certFile, keyFile string) error {
	if strings.TrimSpace(certFile) == "" || strings.TrimSpace(keyFile) == "" {
		return errors.New("manual TLS selected but cert_file / key_file not provided")
	}
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			return fmt.Errorf("cannot access TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
	}

	if runtime.GOOS == "windows" {
		return nil
	}
	info, _ := os.Stat(keyFile)
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Errorf("TLS key file %s has %w %o (recommended: 0600)", keyFile, errInsecureKey, perm)
	}
	return nil
}

// waitForCert blocks until autocert has a certificate for host, the
// timeout passes, or ctx ends.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for cert for %q: %w (last error: %v)", host, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
