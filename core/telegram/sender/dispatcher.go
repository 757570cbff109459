// Package sender runs outbound Telegram calls off the update goroutine. Jobs for one chat
// share a lane and are delivered in the order they were accepted.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the lane is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

const component = "tg.sender"

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the buffer of each lane.
	QueueSize int
	// Workers is the number of lanes; every lane has one worker.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

// Job is one outbound call.
type Job struct {
	// ChatID selects the lane. Zero is a valid chat and always maps to the first lane.
	ChatID   int64
	Action   string
	Endpoint string
	// Run must be idempotent if retries are desired.
	Run func() error
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Queued  int    `json:"queued"`
	Sent    uint64 `json:"sent"`
	Retried uint64 `json:"retried"`
	Failed  uint64 `json:"failed"`
}

type queued struct {
	ctx context.Context
	Job
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts  Options
	lanes []chan queued

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	sent, retried, failed atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, lanes: make([]chan queued, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan queued, opts.QueueSize)
		go d.worker(d.lanes[i])
	}
	return d
}

// Enqueue schedules j on its chat's lane without blocking.
func (d *Dispatcher) Enqueue(ctx context.Context, j Job) error {
	if j.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lanes[d.lane(j.ChatID)] <- queued{ctx: ctx, Job: j}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) lane(chat int64) int {
	n := int64(len(d.lanes))
	i := chat % n
	if i < 0 {
		i = -i
	}
	return int(i)
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Sent:    d.sent.Load(),
		Retried: d.retried.Load(),
		Failed:  d.failed.Load(),
	}
	for _, l := range d.lanes {
		s.Queued += len(l)
	}
	return s
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(lane <-chan queued) {
	defer d.wg.Done()
	for q := range lane {
		d.deliver(q)
	}
}

func (d *Dispatcher) deliver(q queued) {
	ctx := q.ctx
	deadline, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attrs := jobAttrs(q.Job)
	attempts := d.opts.MaxRetries + 1

	var (
		err  error
		made int
	)
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		if err = q.Run(); err == nil {
			d.sent.Add(1)
			logger.Debug(ctx, component, "send.success", append(attrs,
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", logger.RoundMS(time.Since(start))),
			)...)
			return
		}
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := netutil.Backoff(d.opts.RetryBackoff, attempt, err)
		d.retried.Add(1)
		logger.Debug(ctx, component, "send.retry", append(attrs,
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error_kind", string(netutil.Classify(err))),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-deadline.Done():
			timer.Stop()
			err = errors.Join(err, deadline.Err())
			break retry
		case <-timer.C:
		}
	}

	d.failed.Add(1)
	logger.Error(ctx, component, "send.fail", append(attrs,
		slog.String("error", netutil.Redact(err)),
		slog.String("error_kind", string(netutil.Classify(err))),
		slog.Int("attempts", made),
		slog.Duration("elapsed", logger.RoundMS(time.Since(start))),
	)...)
}

func jobAttrs(j Job) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", j.Action),
		slog.Int64("to", j.ChatID),
	}
	if j.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.Endpoint))
	}
	return attrs
}
