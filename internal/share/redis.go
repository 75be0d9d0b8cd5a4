package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces share keys: shared_result:<id>.
const DefaultRedisPrefix = "shared_result:"

// RedisStore keeps each record as a JSON string with a native TTL.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// OpenRedis connects to the Redis server at url and pings it.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Put(ctx context.Context, r Record) error {
	// A stale record is stored without a TTL; Cleanup removes it.
	ttl := time.Until(r.ExpiresAt)
	if ttl <= 0 {
		ttl = 0
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding share %s: %w", r.ID, err)
	}
	if err := s.rdb.Set(ctx, s.key(r.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("storing share %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading share %s: %w", id, err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decoding share %s: %w", id, err)
	}
	return r, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting share %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Cleanup removes records whose stored ExpiresAt has passed but whose key
// is still alive, e.g. after the TTL was extended by hand.
func (s *RedisStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := s.scan(ctx, func(key string, r Record) error {
		if !r.Expired(now) {
			return nil
		}
		n, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
		removed += int(n)
		return nil
	})
	return removed, err
}

func (s *RedisStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	err := s.scan(ctx, func(_ string, r Record) error {
		st.Total++
		if r.Expired(now) {
			st.Expired++
		} else {
			st.Active++
		}
		return nil
	})
	return st, err
}

func (s *RedisStore) scan(ctx context.Context, fn func(key string, r Record) error) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", key, err)
		}
		var r Record
		if err := json.Unmarshal(b, &r); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		if err := fn(key, r); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning shares: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
