package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/walkbot/core/config"
	"github.com/m3rciful/walkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions are the application hooks of the shared chain.
type MiddlewareOptions struct {
	// OnLimited answers a throttled update; nil drops it silently.
	OnLimited func(tele.Context) error
	// Traffic receives per-update counters; nil disables aggregation.
	Traffic *middleware.Traffic
}

// DefaultMiddlewares builds the shared chain: recover, optional rate limit, logging and metrics.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   cfg.RateLimit.ExcludeUpdates,
				OnLimited: opts.OnLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MetricsMiddleware(opts.Traffic)},
	)
}
