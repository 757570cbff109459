package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/session"
)

func normalized(t *testing.T, mutate func(*Config)) *Config {
	t.Helper()
	cfg := validConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, Normalize(cfg))
	return cfg
}

func TestNewMemoryBackends(t *testing.T) {
	a, err := New(normalized(t, nil), nil, nil)
	require.NoError(t, err)
	require.IsType(t, &session.MemoryStore{}, a.sessions)
	require.IsType(t, &announcement.MemoryStore{}, a.store)
	require.Nil(t, a.http)
}

func TestNewRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := normalized(t, func(c *Config) {
		c.Storage.Sessions = BackendRedis
		c.Redis.Addr = mr.Addr()
		c.Redis.Prefix = "walks"
	})
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a, err := New(cfg, nil, rdb)
	require.NoError(t, err)
	require.IsType(t, &session.RedisStore{}, a.sessions)

	ctx := context.Background()
	_, err = a.machine.Start(ctx, 7)
	require.NoError(t, err)
	n, err := a.sessions.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNewRequiresBackendClients(t *testing.T) {
	cfg := normalized(t, func(c *Config) {
		c.Storage.Sessions = BackendRedis
		c.Redis.Addr = "localhost:6379"
	})
	_, err := New(cfg, nil, nil)
	require.Error(t, err)

	cfg = normalized(t, func(c *Config) {
		c.Storage.Announcements = BackendPostgres
		c.Database.Host = "db"
	})
	_, err = New(cfg, nil, nil)
	require.Error(t, err)
}

func TestTelegramRunOptions(t *testing.T) {
	a, err := New(normalized(t, nil), nil, nil)
	require.NoError(t, err)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.Same(t, &a.cfg.Core, opts.Config)
	require.NotEmpty(t, opts.Routes)
	require.NotEmpty(t, opts.Middlewares)

	for _, name := range []string{"/start", "/new", "/cancel", "/myevents", "/help", "/stats"} {
		_, ok := opts.Registry.Commands()[name]
		require.True(t, ok, name)
	}
	_, ok := opts.Registry.GetCallback("submit")
	require.True(t, ok)
	require.NotNil(t, opts.Registry.CallbackNotFound())
}

func TestStartStopServesHTTP(t *testing.T) {
	a, err := New(normalized(t, func(c *Config) { c.HTTP.Listen = "127.0.0.1:0" }), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, a.http)

	require.NoError(t, a.start(context.Background(), tg.Runtime{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.stop(ctx, tg.Runtime{}))
}
