package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	sender *tele.User
	chat   *tele.Chat
	store  map[string]interface{}
	sent   int
}

func newFakeContext(userID, chatID int64) *fakeContext {
	c := &fakeContext{
		update: tele.Update{ID: 1, Message: &tele.Message{Text: "hi"}},
		store:  map[string]interface{}{},
	}
	if userID != 0 {
		c.sender = &tele.User{ID: userID}
	}
	if chatID != 0 {
		c.chat = &tele.Chat{ID: chatID}
	}
	return c
}

func (c *fakeContext) Update() tele.Update               { return c.update }
func (c *fakeContext) Sender() *tele.User                { return c.sender }
func (c *fakeContext) Chat() *tele.Chat                  { return c.chat }
func (c *fakeContext) Get(key string) interface{}        { return c.store[key] }
func (c *fakeContext) Set(key string, value interface{}) { c.store[key] = value }
func (c *fakeContext) Send(interface{}, ...interface{}) error {
	c.sent++
	return nil
}

func passed(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

func TestIsModerator(t *testing.T) {
	require.True(t, IsModerator(newFakeContext(7, 7), ModeratorOptions{ModeratorIDs: []int64{7, 8}}))
	require.False(t, IsModerator(newFakeContext(9, -100), ModeratorOptions{ModeratorIDs: []int64{7}, ModeratorChatID: -100}))
	require.True(t, IsModerator(newFakeContext(9, -100), ModeratorOptions{ModeratorChatID: -100}))
	require.False(t, IsModerator(newFakeContext(9, 9), ModeratorOptions{ModeratorChatID: -100}))
	require.False(t, IsModerator(newFakeContext(9, 9), ModeratorOptions{}))
	require.False(t, IsModerator(newFakeContext(0, -100), ModeratorOptions{ModeratorChatID: -100}))
}

func TestModeratorOnlyMiddleware(t *testing.T) {
	var ok, rejected int
	mw := ModeratorOnlyMiddleware(ModeratorOptions{ModeratorIDs: []int64{7}, OnReject: passed(&rejected)})
	h := mw(passed(&ok))

	require.NoError(t, h(newFakeContext(7, 7)))
	require.NoError(t, h(newFakeContext(8, 8)))
	require.Equal(t, 1, ok)
	require.Equal(t, 1, rejected)
}

type stateFunc func(tele.Context) string

func (f stateFunc) GetState(c tele.Context) string { return f(c) }

func TestStateGuard(t *testing.T) {
	var ok, mismatched int
	state := "preview"
	guard := State(stateFunc(func(tele.Context) string { return state }), passed(&mismatched), "preview")
	h := guard(passed(&ok))

	require.NoError(t, h(newFakeContext(1, 1)))
	state = "topic"
	require.NoError(t, h(newFakeContext(1, 1)))
	require.Equal(t, 1, ok)
	require.Equal(t, 1, mismatched)

	silent := State(stateFunc(func(tele.Context) string { return "" }), nil, "preview")(passed(&ok))
	require.NoError(t, silent(newFakeContext(1, 1)))
	require.Equal(t, 1, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	var ok, limited int
	clock := time.Unix(1000, 0)
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   []string{" Callback "},
		OnLimited: passed(&limited),
		Now:       func() time.Time { return clock },
	})
	h := mw(passed(&ok))

	require.NoError(t, h(newFakeContext(5, 5)))
	require.NoError(t, h(newFakeContext(5, 5)))
	require.NoError(t, h(newFakeContext(6, 6)))
	require.Equal(t, 2, ok)
	require.Equal(t, 1, limited)

	cb := newFakeContext(5, 5)
	cb.update = tele.Update{ID: 2, Callback: &tele.Callback{Data: "submit"}}
	require.NoError(t, h(cb))
	require.Equal(t, 3, ok)

	clock = clock.Add(time.Second)
	require.NoError(t, h(newFakeContext(5, 5)))
	require.Equal(t, 4, ok)
}

func TestLimiterEvictsIdleUsers(t *testing.T) {
	l := NewLimiter(time.Second)
	start := time.Unix(0, 0)
	for i := 0; i < sweepEvery-1; i++ {
		_, ok := l.Allow(int64(i), start)
		require.True(t, ok)
	}
	require.Equal(t, sweepEvery-1, l.Tracked())

	_, ok := l.Allow(-1, start.Add(2*time.Second))
	require.True(t, ok)
	require.Equal(t, 1, l.Tracked())

	_, ok = NewLimiter(0).Allow(1, start)
	require.True(t, ok)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	require.NotPanics(t, func() {
		require.NoError(t, h(newFakeContext(1, 1)))
	})
}

func TestMetricsMiddlewareCountsReplies(t *testing.T) {
	traffic := NewTraffic()
	h := MetricsMiddleware(traffic)(func(c tele.Context) error {
		if err := c.Send("one"); err != nil {
			return err
		}
		return c.Send("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})

	c := newFakeContext(7, 7)
	require.NoError(t, h(c))
	n, kb := GetCounters(c)
	require.Equal(t, 2, n)
	require.True(t, kb)
	require.Equal(t, 2, c.sent)

	cb := newFakeContext(7, 7)
	cb.update = tele.Update{ID: 2, Callback: &tele.Callback{Data: "submit"}}
	require.NoError(t, MetricsMiddleware(traffic)(func(tele.Context) error { return nil })(cb))

	snap := traffic.Snapshot()
	require.Equal(t, map[string]uint64{"text": 1, "callback": 1}, snap.Updates)
	require.Equal(t, uint64(2), snap.Replies)
	require.Equal(t, uint64(1), snap.Keyboards)

	n, kb = GetCounters(newFakeContext(1, 1))
	require.Zero(t, n)
	require.False(t, kb)
}

func TestUpdateKind(t *testing.T) {
	require.Equal(t, "photo", UpdateKind(tele.Update{Message: &tele.Message{Photo: &tele.Photo{}}}))
	require.Equal(t, "location", UpdateKind(tele.Update{Message: &tele.Message{Location: &tele.Location{}}}))
	require.Equal(t, "other", UpdateKind(tele.Update{}))
}
