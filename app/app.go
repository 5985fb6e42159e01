// app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/logging"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/server"
	"github.com/dalemusser/contactform/version"
	"go.uber.org/zap"
)

// Hooks defines the integration points a service provides to Run.
// C is the app config type, D the bundle of connected backends.
type Hooks[C any, D any] struct {
	// Name is used only for logging/diagnostics.
	Name string

	// LoadConfig returns the core config and the app config.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, C, error)

	// ConnectBackends connects mail transports, Redis, and anything else
	// the app needs. ctx carries core.ConnectTimeout.
	ConnectBackends func(ctx context.Context, core *config.CoreConfig, appCfg C, logger *zap.Logger) (D, error)

	// Prepare runs startup checks that need the backends (e.g. that the
	// submission log is writable). May be nil.
	Prepare func(ctx context.Context, core *config.CoreConfig, appCfg C, deps D, logger *zap.Logger) error

	// BuildHandler constructs the final http.Handler: router, middleware,
	// and routes.
	BuildHandler func(core *config.CoreConfig, appCfg C, deps D, logger *zap.Logger) (http.Handler, error)

	// Close releases backends after the server stops. May be nil.
	Close func(deps D) error
}

// Run executes the standard startup sequence:
//
//  1. Bootstrap logger
//  2. Load core + app config (Hooks.LoadConfig)
//  3. Build final logger based on core config
//  4. Register default metrics
//  5. Connect backends (Hooks.ConnectBackends)
//  6. Startup checks (Hooks.Prepare, if provided)
//  7. Wire shutdown signals to a context
//  8. Build the HTTP handler (Hooks.BuildHandler)
//  9. Serve until shutdown, then Hooks.Close
func Run[C any, D any](ctx context.Context, hooks Hooks[C, D]) error {
	bootstrap := logging.BootstrapLogger()
	defer func() { _ = bootstrap.Sync() }()
	bootstrap.Info("bootstrap logger initialized",
		zap.String("app", hooks.Name),
		zap.String("version", version.String()))

	coreCfg, appCfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}
	bootstrap.Info("config loaded",
		zap.String("env", coreCfg.Env),
		zap.String("log_level", coreCfg.LogLevel),
	)

	logger := logging.MustBuildLogger(coreCfg.LogLevel, coreCfg.Env)
	defer func() { _ = logger.Sync() }()
	logger.Info("logger initialized", zap.String("app", hooks.Name))
	logger.Debug("core config", zap.String("config", coreCfg.Dump()))
	httputil.SetLogger(logger)

	metrics.RegisterDefault(logger)

	connectCtx, cancelConnect := context.WithTimeout(ctx, coreCfg.ConnectTimeout)
	deps, err := hooks.ConnectBackends(connectCtx, coreCfg, appCfg, logger)
	cancelConnect()
	if err != nil {
		logger.Error("backend connect failed", zap.Error(err))
		return fmt.Errorf("connect backends: %w", err)
	}
	if hooks.Close != nil {
		defer func() {
			if err := hooks.Close(deps); err != nil {
				logger.Warn("closing backends", zap.Error(err))
			}
		}()
	}

	if hooks.Prepare != nil {
		prepCtx, cancel := context.WithTimeout(ctx, coreCfg.ConnectTimeout)
		err := hooks.Prepare(prepCtx, coreCfg, appCfg, deps, logger)
		cancel()
		if err != nil {
			logger.Error("startup checks failed", zap.Error(err))
			return fmt.Errorf("prepare: %w", err)
		}
	}

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	handler, err := hooks.BuildHandler(coreCfg, appCfg, deps, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, coreCfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
