package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisOptions configures RedisStore.
type RedisOptions struct {
	// Prefix namespaces keys as "<prefix>:session:<user>"; default "walkbot".
	Prefix string
	// TTL expires idle dialogues; refreshed on every write. Zero keeps keys forever.
	TTL time.Duration
}

type redisDocs struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func (r *redisDocs) key(user int64) string {
	return r.prefix + ":session:" + strconv.FormatInt(user, 10)
}

func (r *redisDocs) load(ctx context.Context, user int64) (Session, bool, error) {
	data, err := r.client.Get(ctx, r.key(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("session: redis get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("session: decode %s: %w", r.key(user), err)
	}
	return s, true, nil
}

func (r *redisDocs) save(ctx context.Context, user int64, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key(user), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *redisDocs) remove(ctx context.Context, user int64) error {
	if err := r.client.Del(ctx, r.key(user)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (r *redisDocs) count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+":session:*", 200).Result()
		if err != nil {
			return 0, fmt.Errorf("session: redis scan: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// RedisStore keeps sessions as JSON documents in Redis. Per-user locking is in-process,
// so a single bot instance must own the key prefix.
type RedisStore struct {
	*lockedStore
}

// NewRedisStore builds a Store over client.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	prefix := strings.TrimSuffix(strings.TrimSpace(opts.Prefix), ":")
	if prefix == "" {
		prefix = "walkbot"
	}
	return &RedisStore{lockedStore: newLockedStore(&redisDocs{client: client, prefix: prefix, ttl: opts.TTL})}
}
