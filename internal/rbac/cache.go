package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Store is the pluggable backing for cached resolved authorizations. The
// contract is identical for in-process and shared out-of-process stores:
// Get returns (nil, false, nil) on a clean miss, and Set replaces the entry
// wholesale so readers only ever observe complete values.
type Store interface {
	Get(ctx context.Context, roleID int64) (*ResolvedAuthorization, bool, error)
	Set(ctx context.Context, roleID int64, auth *ResolvedAuthorization) error
	Delete(ctx context.Context, roleIDs ...int64) error
}

// memoryStore caches entries in a bounded LRU with TTL eviction. Entries are
// immutable pointers swapped atomically by the LRU, so concurrent readers
// never observe partial state.
type memoryStore struct {
	lru *expirable.LRU[int64, *ResolvedAuthorization]
}

// NewMemoryStore builds an in-process store holding up to size entries for
// at most ttl each.
func NewMemoryStore(size int, ttl time.Duration) Store {
	if size <= 0 {
		size = 256
	}
	return &memoryStore{lru: expirable.NewLRU[int64, *ResolvedAuthorization](size, nil, ttl)}
}

func (s *memoryStore) Get(ctx context.Context, roleID int64) (*ResolvedAuthorization, bool, error) {
	auth, ok := s.lru.Get(roleID)
	return auth, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, roleID int64, auth *ResolvedAuthorization) error {
	s.lru.Add(roleID, auth)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, roleIDs ...int64) error {
	for _, id := range roleIDs {
		s.lru.Remove(id)
	}
	return nil
}

// redisStore shares cached authorizations across processes as JSON payloads.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis backed store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func redisKey(roleID int64) string {
	return fmt.Sprintf("authz:role:%d", roleID)
}

func (s *redisStore) Get(ctx context.Context, roleID int64) (*ResolvedAuthorization, bool, error) {
	payload, err := s.client.Get(ctx, redisKey(roleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var auth ResolvedAuthorization
	if err := json.Unmarshal(payload, &auth); err != nil {
		return nil, false, err
	}
	return &auth, true, nil
}

func (s *redisStore) Set(ctx context.Context, roleID int64, auth *ResolvedAuthorization) error {
	payload, err := json.Marshal(auth)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(roleID), payload, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, roleIDs ...int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	keys := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		keys[i] = redisKey(id)
	}
	return s.client.Del(ctx, keys...).Err()
}
