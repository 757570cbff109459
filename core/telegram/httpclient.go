package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/netutil"
)

const (
	dialTimeout     = 5 * time.Second
	tlsHandshake    = 5 * time.Second
	idleConnTimeout = 90 * time.Second
	// responseSlack is added on top of the long-poll wait before a getUpdates call is given up.
	responseSlack = 5 * time.Second
	retryAttempts = 2
	retryBackoff  = time.Second
)

var errNoRewind = errors.New("telegram: request body cannot be replayed")

// BuildHTTPClient returns a client for Bot API calls. pollTimeout is the long-poll wait;
// header and total deadlines are extended past it so getUpdates is not cut short.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	headerTimeout := pollTimeout + responseSlack
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   headerTimeout + 3*responseSlack,
		Transport: &retryTransport{base: transport, retries: retryAttempts, backoff: retryBackoff},
	}
}

// retryTransport repeats requests that failed before reaching Telegram. API level errors
// arrive as responses and are left to the caller.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	for attempt := 1; ; attempt++ {
		curr := req
		if attempt > 1 {
			curr = req.Clone(ctx)
			if req.Body != nil {
				if req.GetBody == nil {
					return nil, errNoRewind
				}
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				curr.Body = body
			}
		}

		resp, err := base.RoundTrip(curr)
		if err == nil || attempt > t.retries || !netutil.ShouldRetry(err) {
			return resp, err
		}

		delay := netutil.Backoff(t.backoff, attempt, err)
		logger.LogEvent(ctx, logger.TWire, slog.LevelDebug, "transport.retry",
			slog.String("method", path.Base(req.URL.Path)),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error_kind", string(netutil.Classify(err))),
			slog.String("error", netutil.Redact(err)),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
