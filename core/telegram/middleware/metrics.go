package middleware

import (
	"maps"
	"sync"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// Traffic aggregates handled updates by kind and the replies they produced.
type Traffic struct {
	mu        sync.Mutex
	updates   map[string]uint64
	replies   uint64
	keyboards uint64
}

// TrafficSnapshot is a copy of Traffic counters.
type TrafficSnapshot struct {
	Updates   map[string]uint64 `json:"updates"`
	Replies   uint64            `json:"replies"`
	Keyboards uint64            `json:"keyboards"`
}

// NewTraffic returns empty counters.
func NewTraffic() *Traffic {
	return &Traffic{updates: make(map[string]uint64)}
}

func (t *Traffic) record(kind string, r *replies) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates[kind]++
	t.replies += uint64(r.n.Load())
	if r.kb.Load() {
		t.keyboards++
	}
}

// Snapshot returns the counters so far.
func (t *Traffic) Snapshot() TrafficSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrafficSnapshot{Updates: maps.Clone(t.updates), Replies: t.replies, Keyboards: t.keyboards}
}

// UpdateKind names an update: callback, a message kind, or other.
func UpdateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return messageKind(u.Message)
	}
	return "other"
}

// replies may be bumped from dispatcher workers after the handler returned.
type replies struct {
	n  atomic.Int32
	kb atomic.Bool
}

func (r *replies) add(opts []interface{}) {
	r.n.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				r.kb.Store(true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				r.kb.Store(true)
			}
		}
	}
}

// countingContext counts successful outbound calls made through the update context.
type countingContext struct {
	tele.Context
	r *replies
}

func (m countingContext) count(err error, opts []interface{}) error {
	if err == nil {
		m.r.add(opts)
	}
	return err
}

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m countingContext) Edit(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

func (m countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrReply(what, opts...), opts)
}

// MetricsMiddleware counts the replies of every update and adds them to t when t is not nil.
func MetricsMiddleware(t *Traffic) func(tele.HandlerFunc) tele.HandlerFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			r := &replies{}
			c.Set(repliesKey, r)
			err := next(countingContext{Context: c, r: r})
			if t != nil {
				t.record(UpdateKind(c.Update()), r)
			}
			return err
		}
	}
}

// GetCounters returns how many replies the current update produced and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	r, ok := c.Get(repliesKey).(*replies)
	if !ok {
		return 0, false
	}
	return int(r.n.Load()), r.kb.Load()
}
