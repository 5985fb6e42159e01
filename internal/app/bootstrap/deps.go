package bootstrap

import (
	"github.com/dalemusser/contactform/notify"
	"github.com/dalemusser/contactform/ratelimit"
	"github.com/dalemusser/contactform/sublog"
	"github.com/redis/go-redis/v9"
)

// Deps holds the backends the service connects at startup.
type Deps struct {
	Dispatcher *notify.Dispatcher
	Log        *sublog.Log

	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimit.Store

	// Redis is set only when redis_url is configured.
	Redis *redis.Client
}
