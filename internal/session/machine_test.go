package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/walk"
)

type recordingNotifier struct {
	got []walk.Announcement
	err error
}

func (n *recordingNotifier) NotifyModerator(_ context.Context, a walk.Announcement) error {
	n.got = append(n.got, a)
	return n.err
}

func newTestMachine() (*Machine, *announcement.MemoryStore, *recordingNotifier) {
	anns := announcement.NewMemoryStore()
	n := &recordingNotifier{}
	return NewMachine(NewMemoryStore(), anns, n), anns, n
}

func fillToPreview(t *testing.T, m *Machine, user int64) walk.Draft {
	t.Helper()
	ctx := context.Background()
	_, err := m.Start(ctx, user)
	require.NoError(t, err)
	inputs := []Input{
		TextInput("Walk in the park"),
		LocationInput(52.1, 21.0),
		TextInput("Friday 6pm"),
		TextInput("@alice"),
		TextInput("Bring snacks"),
		TextInput("skip"),
	}
	var res Result
	for _, in := range inputs {
		res, err = m.Handle(ctx, user, in)
		require.NoError(t, err)
	}
	require.Equal(t, StatePreview, res.State)
	return res.Draft
}

func TestMachineFillsDraft(t *testing.T) {
	m, _, _ := newTestMachine()
	d := fillToPreview(t, m, 1)
	require.Equal(t, walk.Draft{
		Topic:       "Walk in the park",
		Place:       walk.GeoPlace(52.1, 21.0),
		Datetime:    "Friday 6pm",
		Contact:     "@alice",
		Description: "Bring snacks",
	}, d)
	require.False(t, d.HasPhoto())
}

func TestMachineTooLongTopicKeepsState(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()
	_, err := m.Start(ctx, 1)
	require.NoError(t, err)

	_, err = m.Handle(ctx, 1, TextInput(strings.Repeat("x", 101)))
	require.ErrorAs(t, err, new(*ValidationError))
	sess, _ := m.Current(ctx, 1)
	require.Equal(t, StateTopic, sess.State)
	require.Empty(t, sess.Draft.Topic)
}

func TestMachineStartAlwaysFresh(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()
	fillToPreview(t, m, 1)
	_, err := m.Edit(ctx, 1, walk.FieldContact)
	require.NoError(t, err)

	res, err := m.Start(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StateTopic, res.State)
	sess, _ := m.Current(ctx, 1)
	require.Equal(t, Session{State: StateTopic}, sess)
}

func TestMachineCancelFromEveryState(t *testing.T) {
	ctx := context.Background()
	for _, st := range sequence {
		m, _, _ := newTestMachine()
		require.NoError(t, m.Store().SetField(ctx, 9, walk.FieldTopic, "walk"))
		require.NoError(t, m.Store().SetState(ctx, 9, st))

		res, err := m.Cancel(ctx, 9)
		require.NoError(t, err)
		require.Equal(t, st, res.Previous)
		require.Equal(t, StateIdle, res.State)

		sess, err := m.Current(ctx, 9)
		require.NoError(t, err)
		require.Equal(t, StateIdle, sess.State)
		require.True(t, sess.Draft.IsEmpty())
		n, _ := m.Store().Count(ctx)
		require.Zero(t, n, st)
	}
}

func TestMachineEditPlaceReturnsToPreview(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()
	before := fillToPreview(t, m, 1)

	res, err := m.Edit(ctx, 1, walk.FieldPlace)
	require.NoError(t, err)
	require.Equal(t, StatePlace, res.State)
	require.True(t, res.Editing)

	res, err = m.Handle(ctx, 1, TextInput("Old town square"))
	require.NoError(t, err)
	require.Equal(t, StatePreview, res.State)

	want := before
	want.Place = walk.TextPlace("Old town square")
	require.Equal(t, want, res.Draft)
	sess, _ := m.Current(ctx, 1)
	require.False(t, sess.Editing)
}

func TestMachineEditRequiresPreview(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()
	_, err := m.Edit(ctx, 1, walk.FieldTopic)
	require.ErrorIs(t, err, ErrNotInPreview)

	_, err = m.Start(ctx, 1)
	require.NoError(t, err)
	_, err = m.Edit(ctx, 1, walk.FieldTopic)
	require.ErrorIs(t, err, ErrNotInPreview)
	_, err = m.Submit(ctx, 1)
	require.ErrorIs(t, err, ErrNotInPreview)
}

func TestMachineSubmitCreatesSnapshot(t *testing.T) {
	ctx := context.Background()
	m, anns, n := newTestMachine()
	draft := fillToPreview(t, m, 1)

	res, err := m.Submit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StateIdle, res.State)
	require.Equal(t, walk.StatusPending, res.Announcement.Status)
	require.Equal(t, draft, res.Announcement.Draft)
	require.Len(t, n.got, 1)
	require.Equal(t, res.Announcement.ID, n.got[0].ID)

	list, err := anns.ListByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = m.Submit(ctx, 1)
	require.ErrorIs(t, err, ErrNotInPreview)
	list, _ = anns.ListByAuthor(ctx, 1)
	require.Len(t, list, 1)

	// editing a new draft does not reach the stored snapshot
	fillToPreview(t, m, 1)
	_, err = m.Edit(ctx, 1, walk.FieldTopic)
	require.NoError(t, err)
	_, err = m.Handle(ctx, 1, TextInput("Changed"))
	require.NoError(t, err)
	stored, _ := anns.FindPendingByAuthor(ctx, 1)
	require.Equal(t, "Walk in the park", stored.Topic)
}

func TestMachineSubmitWithPendingIsRefused(t *testing.T) {
	ctx := context.Background()
	m, anns, _ := newTestMachine()
	fillToPreview(t, m, 1)
	first, err := m.Submit(ctx, 1)
	require.NoError(t, err)

	fillToPreview(t, m, 1)
	_, err = m.Submit(ctx, 1)
	require.ErrorIs(t, err, announcement.ErrAlreadyPending)
	sess, _ := m.Current(ctx, 1)
	require.Equal(t, StatePreview, sess.State)

	_, err = anns.MarkRejected(ctx, first.Announcement.ID)
	require.NoError(t, err)
	second, err := m.Submit(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, first.Announcement.ID, second.Announcement.ID)
}

func TestMachineConcurrentSubmitCreatesOne(t *testing.T) {
	ctx := context.Background()
	m, anns, n := newTestMachine()
	fillToPreview(t, m, 1)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := m.Submit(ctx, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, ok)
	for _, err := range errs {
		require.True(t, errors.Is(err, ErrNotInPreview) || errors.Is(err, announcement.ErrAlreadyPending), err)
	}
	list, err := anns.ListByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, n.got, 1)
}

func TestMachinesSharingStoreKeepOnePending(t *testing.T) {
	ctx := context.Background()
	anns := announcement.NewMemoryStore()
	machines := []*Machine{
		NewMachine(NewMemoryStore(), anns, nil),
		NewMachine(NewMemoryStore(), anns, nil),
	}
	for _, m := range machines {
		fillToPreview(t, m, 1)
	}

	var wg sync.WaitGroup
	results := make([]error, len(machines))
	for i, m := range machines {
		wg.Add(1)
		go func(i int, m *Machine) {
			defer wg.Done()
			_, results[i] = m.Submit(ctx, 1)
		}(i, m)
	}
	wg.Wait()

	var pending int
	for _, err := range results {
		if err == nil {
			pending++
			continue
		}
		require.ErrorIs(t, err, announcement.ErrAlreadyPending)
	}
	require.Equal(t, 1, pending)
	list, err := anns.ListByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMachineSubmitSurvivesNotifyFailure(t *testing.T) {
	ctx := context.Background()
	m, anns, n := newTestMachine()
	n.err = errors.New("moderator chat unreachable")
	fillToPreview(t, m, 1)

	res, err := m.Submit(ctx, 1)
	require.NoError(t, err)
	got, err := anns.FindPendingByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, res.Announcement.ID, got.ID)
}

func TestMachineIgnoresIdleInput(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()
	_, err := m.Handle(ctx, 1, TextInput("hello"))
	require.ErrorIs(t, err, ErrIgnored)
	require.False(t, m.InProgress(ctx, 1))
	n, _ := m.Store().Count(ctx)
	require.Zero(t, n)
}
