package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	GroupKeyPrefix = "group:%s"
	PageKeyPrefix  = "page:%s"
)

// GroupTTL bounds how long a group changed outside GroupRepository (seeding,
// manual SQL) can still be served from cache.
const GroupTTL = time.Minute

func GroupKey(slug string) string {
	return fmt.Sprintf(GroupKeyPrefix, slug)
}

func PageKey(url string) string {
	return fmt.Sprintf(PageKeyPrefix, url)
}

// Store wraps an optional Redis client. A Store over a nil client is valid
// and behaves as an always-empty cache.
type Store struct {
	client *redis.Client
}

// NewStore returns a Store over client, which may be nil.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON loads key into dest. It reports false, nil on a miss or when caching is disabled.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from cache, or runs fetch to fill it and stores the result.
// Cache read and write failures fall through to fetch; fetch errors are returned as-is.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := s.GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = s.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate drops key.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if s.Enabled() {
		s.client.Del(ctx, key)
	}
}

// InvalidateGroup drops the cached group for slug.
func (s *Store) InvalidateGroup(ctx context.Context, slug string) {
	s.Invalidate(ctx, GroupKey(slug))
}
