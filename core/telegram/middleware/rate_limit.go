package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/walkbot/core/config"
	"github.com/m3rciful/walkbot/core/logger"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// sweepEvery is how many Allow calls pass between evictions of idle users.
const sweepEvery = 256

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update classes (coreconfig.UpdateMessage, coreconfig.UpdateCallback)
	// that are never throttled.
	Exclude   []string
	OnLimited tele.HandlerFunc
	Now       func() time.Time
}

// Limiter enforces a minimum interval between accepted updates of one user.
type Limiter struct {
	interval time.Duration

	mu    sync.Mutex
	last  map[int64]time.Time
	calls int
}

// NewLimiter returns a Limiter; a non-positive interval allows everything.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, last: make(map[int64]time.Time)}
}

// Allow records an update from userID at now. When it comes too early it returns false and
// the time elapsed since the last accepted update; rejected updates do not extend the window.
func (l *Limiter) Allow(userID int64, now time.Time) (time.Duration, bool) {
	if l.interval <= 0 {
		return 0, true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		for id, t := range l.last {
			if now.Sub(t) >= l.interval {
				delete(l.last, id)
			}
		}
	}
	if prev, ok := l.last[userID]; ok {
		if since := now.Sub(prev); since < l.interval {
			return since, false
		}
	}
	l.last[userID] = now
	return 0, true
}

// Tracked reports how many users are inside their window bookkeeping.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

func updateClass(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return coreconfig.UpdateCallback
	case u.Message != nil:
		return coreconfig.UpdateMessage
	}
	return "other"
}

// RateLimitMiddleware drops updates that arrive faster than opts.Interval per user and
// calls OnLimited for them.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiter := NewLimiter(opts.Interval)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, k := range opts.Exclude {
		exclude[strings.ToLower(strings.TrimSpace(k))] = true
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			class := updateClass(c.Update())
			if user == nil || exclude[class] {
				return next(c)
			}
			since, ok := limiter.Allow(user.ID, now())
			if ok {
				return next(c)
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "rate_limit",
				slog.String("status", "skip"),
				slog.String("kind", class),
				slog.Duration("since_last", since),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
