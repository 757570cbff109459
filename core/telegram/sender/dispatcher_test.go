package sender

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/walkbot/core/logger"
)

func TestEnqueueKeepsChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 32})
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, d.Enqueue(context.Background(), Job{ChatID: -1001, Action: "test", Run: func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}}))
	}
	d.Close()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	require.Equal(t, want, got)
	require.Equal(t, uint64(20), d.Stats().Sent)
}

func TestRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), Job{ChatID: 7, Run: func() error {
		calls++
		if calls < 3 {
			return errors.New("telegram: bad gateway (502)")
		}
		return nil
	}}))
	d.Close()

	require.Equal(t, 3, calls)
	st := d.Stats()
	require.Equal(t, uint64(1), st.Sent)
	require.Equal(t, uint64(2), st.Retried)
	require.Zero(t, st.Failed)
}

func TestPermanentErrorFailsOnce(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), Job{ChatID: 7, Run: func() error {
		calls++
		return errors.New("telegram: bot was blocked by the user (403)")
	}}))
	d.Close()

	require.Equal(t, 1, calls)
	require.Equal(t, uint64(1), d.Stats().Failed)
}

func TestFailureLogsAttemptsMade(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { logger.L = prev })

	d := NewDispatcher(Options{Workers: 1, MaxRetries: 4, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), Job{ChatID: 7, Action: "test", Run: func() error {
		calls++
		if calls == 1 {
			return errors.New("telegram: bad gateway (502)")
		}
		return errors.New("telegram: chat not found (400)")
	}}))
	d.Close()

	require.Equal(t, 2, calls)
	require.Contains(t, buf.String(), `"event":"send.fail"`)
	require.Contains(t, buf.String(), `"attempts":2`)
}

func TestEnqueueRejections(t *testing.T) {
	block := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	run := func() error {
		<-block
		return nil
	}
	require.Error(t, d.Enqueue(context.Background(), Job{}))

	require.NoError(t, d.Enqueue(context.Background(), Job{Run: run}))
	require.Eventually(t, func() bool { return d.Stats().Queued == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Enqueue(context.Background(), Job{Run: run}))
	require.ErrorIs(t, d.Enqueue(context.Background(), Job{Run: run}), ErrQueueFull)

	close(block)
	d.Close()
	require.ErrorIs(t, d.Enqueue(context.Background(), Job{Run: run}), ErrQueueClosed)
	d.Close()
}

func TestLaneIsStablePerChat(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4})
	defer d.Close()
	require.Equal(t, d.lane(-1001), d.lane(-1001))
	require.Equal(t, 1, d.lane(-1001))
	require.Equal(t, 0, d.lane(0))
	require.Less(t, d.lane(1<<62), 4)
}
