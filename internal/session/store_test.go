package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/walkbot/internal/walk"
)

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, RedisOptions{Prefix: "test", TTL: time.Hour}),
	}
}

func TestStoreUnknownUserIsIdle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		st, err := s.State(ctx, 404)
		require.NoError(t, err, name)
		require.Equal(t, StateIdle, st, name)

		d, err := s.Draft(ctx, 404)
		require.NoError(t, err, name)
		require.True(t, d.IsEmpty(), name)

		require.NoError(t, s.Reset(ctx, 404), name)
	}
}

func TestStoreCreatesOnDemand(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		require.NoError(t, s.SetField(ctx, 1, walk.FieldTopic, "Walk"), name)
		require.NoError(t, s.SetState(ctx, 2, StateContact), name)

		d, err := s.Draft(ctx, 1)
		require.NoError(t, err, name)
		require.Equal(t, "Walk", d.Topic, name)

		st, err := s.State(ctx, 2)
		require.NoError(t, err, name)
		require.Equal(t, StateContact, st, name)

		n, err := s.Count(ctx)
		require.NoError(t, err, name)
		require.Equal(t, 2, n, name)

		require.ErrorIs(t, s.SetState(ctx, 3, State("bogus")), ErrUnknownState, name)
	}
}

func TestStoreStartDiscardsLeftovers(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		require.NoError(t, s.SetField(ctx, 1, walk.FieldPlace, walk.GeoPlace(1, 2)), name)
		require.NoError(t, s.SetState(ctx, 1, StatePreview), name)

		require.NoError(t, s.Start(ctx, 1), name)
		sess, err := s.Get(ctx, 1)
		require.NoError(t, err, name)
		require.Equal(t, Session{State: StateTopic}, sess, name)

		require.NoError(t, s.Reset(ctx, 1), name)
		n, _ := s.Count(ctx)
		require.Zero(t, n, name)
	}
}

func TestStoreUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		require.NoError(t, s.Start(ctx, 1), name)
		err := s.Update(ctx, 1, func(sess *Session) error {
			sess.State = StatePreview
			return ErrIgnored
		})
		require.ErrorIs(t, err, ErrIgnored, name)
		st, _ := s.State(ctx, 1)
		require.Equal(t, StateTopic, st, name)
	}
}

func TestRedisStoreSerializesDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedisStore(client, RedisOptions{Prefix: "walkbot:", TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, 42))
	require.NoError(t, s.SetField(ctx, 42, walk.FieldPlace, walk.GeoPlace(52.1, 21)))
	require.True(t, mr.Exists("walkbot:session:42"))

	raw, err := mr.Get("walkbot:session:42")
	require.NoError(t, err)
	require.JSONEq(t, `{"state":"topic","draft":{"place":{"kind":"geo","lat":52.1,"lon":21}}}`, raw)

	mr.FastForward(2 * time.Minute)
	st, err := s.State(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, StateIdle, st)
}
