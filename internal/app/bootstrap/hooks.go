package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/contactform/app"
	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/contact"
	"github.com/dalemusser/contactform/health"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/notify"
	"github.com/dalemusser/contactform/ratelimit"
	"github.com/dalemusser/contactform/router"
	"github.com/dalemusser/contactform/sublog"
	"github.com/dalemusser/contactform/version"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoadConfig loads core config and the contact keys, all under CONTACT_.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, values, err := config.LoadWithAppConfig(logger, EnvPrefix, AppKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}
	appCfg, err := appConfigFrom(values)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

// ConnectBackends builds the mail transport and the rate limiter store.
func ConnectBackends(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (Deps, error) {
	transport, err := newTransport(ctx, appCfg, logger)
	if err != nil {
		return Deps{}, err
	}
	deps := Deps{
		Dispatcher: notify.NewDispatcher(appCfg.RecipientEmail, transport, logger),
		Log:        sublog.New(appCfg.SubmissionLogPath),
	}
	logger.Info("mail transport ready",
		zap.String("transport", appCfg.MailTransport),
		zap.String("recipient", appCfg.RecipientEmail))

	switch {
	case appCfg.RateLimitPerMinute == 0:
		logger.Warn("rate limiting disabled")
	case appCfg.RedisURL != "":
		opts, err := redis.ParseURL(appCfg.RedisURL)
		if err != nil {
			return Deps{}, fmt.Errorf("parse redis_url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return Deps{}, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
		}
		deps.Redis = client
		deps.Limiter = ratelimit.NewRedisStore(client, appCfg.RateLimitPerMinute)
		logger.Info("rate limiter using redis",
			zap.String("addr", opts.Addr),
			zap.Int("per_minute", appCfg.RateLimitPerMinute))
	default:
		deps.Limiter = ratelimit.NewMemoryStore(appCfg.RateLimitPerMinute, appCfg.RateLimitBurst)
		logger.Info("rate limiter using memory",
			zap.Int("per_minute", appCfg.RateLimitPerMinute),
			zap.Int("burst", appCfg.RateLimitBurst))
	}
	return deps, nil
}

func newTransport(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (notify.Transport, error) {
	switch appCfg.MailTransport {
	case TransportSMTP:
		return notify.NewSMTPTransport(appCfg.SMTP), nil
	case TransportSES:
		t, err := notify.NewSESTransport(ctx, appCfg.SES)
		if err != nil {
			return nil, err
		}
		return t, nil
	case TransportLog:
		return notify.LogTransport{Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown mail_transport %q", appCfg.MailTransport)
}

// Prepare fails startup when the submission log cannot be written.
func Prepare(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps Deps, logger *zap.Logger) error {
	if err := deps.Log.Writable(ctx); err != nil {
		return fmt.Errorf("submission log: %w", err)
	}
	logger.Info("submission log writable", zap.String("path", deps.Log.Path()))
	return nil
}

// BuildHandler mounts the contact endpoint, health probes and metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps Deps, logger *zap.Logger) (http.Handler, error) {
	r := router.New(coreCfg, logger)

	ready := map[string]health.Check{
		"submission_log": deps.Log.Writable,
	}
	if rs, ok := deps.Limiter.(*ratelimit.RedisStore); ok {
		ready["redis"] = rs.Ping
	}
	health.Mount(r, ready, logger)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	version.Mount(r)

	h := contact.NewHandler(deps.Dispatcher, deps.Log, logger)
	if appCfg.MailTimeout > 0 {
		h.Timeout = appCfg.MailTimeout
	}

	var mws []func(http.Handler) http.Handler
	if deps.Limiter != nil {
		mws = append(mws, ratelimit.Middleware(deps.Limiter, ratelimit.Config{
			OnLimited: func(*http.Request) { metrics.RecordSubmission(metrics.OutcomeRateLimited) },
			Logger:    logger,
		}))
	}
	contact.Mount(r, appCfg.ContactPath, h, mws...)

	return r, nil
}

// Close releases the limiter and the Redis connection.
func Close(deps Deps) error {
	var errs []error
	if c, ok := deps.Limiter.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if deps.Redis != nil {
		errs = append(errs, deps.Redis.Close())
	}
	return errors.Join(errs...)
}

// Hooks wires the contact service into the app lifecycle.
var Hooks = app.Hooks[AppConfig, Deps]{
	Name:            "contactd",
	LoadConfig:      LoadConfig,
	ConnectBackends: ConnectBackends,
	Prepare:         Prepare,
	BuildHandler:    BuildHandler,
	Close:           Close,
}
