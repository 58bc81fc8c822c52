// Package idempotency provides Redis-backed helpers for the two
// concerns that sit outside the durable Kafka-consumer dedup in
// pkg/consumer: staging in-flight HTTP writes behind an
// Idempotency-Key header, and keeping a periodic sweep from running
// concurrently across replicas.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) requestKey(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Reserve attempts to claim key for scope, returning true if this
// caller is the first to see it within the TTL window. A second
// caller supplying the same Idempotency-Key while the first is still
// in flight, or shortly after it completed, gets false back and
// should look up the prior result instead of repeating the write.
func (s *Store) Reserve(ctx context.Context, scope, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.requestKey(scope, key), "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, s.requestKey(scope, key)).Err()
}

// Lock is a short-lived distributed mutex used to keep a scheduled
// job — the hold-expiry sweep — from running on more than one
// replica at once. It is released explicitly on success and always
// expires on its own via TTL if the holder crashes mid-run.
type Lock struct {
	rdb   *redis.Client
	token string
}

func NewLock(rdb *redis.Client, token string) *Lock {
	return &Lock{rdb: rdb, token: token}
}

func (l *Lock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, "lock:"+name, l.token, ttl).Result()
}

// Release only clears the lock if it is still held by this token, so
// a slow holder can't accidentally release a lock a newer holder has
// since acquired after the TTL expired.
func (l *Lock) Release(ctx context.Context, name string) error {
	const script = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`
	return l.rdb.Eval(ctx, script, []string{"lock:" + name}, l.token).Err()
}
