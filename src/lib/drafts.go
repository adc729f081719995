package lib

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftTTL is how long an abandoned form draft survives before Redis drops it.
const DraftTTL = 30 * 24 * time.Hour

// DraftStore is the key-value surface the draft endpoints run against. Get
// returns an empty string and a nil error when the key is absent.
type DraftStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// DraftKey builds the storage key for a user's draft. Create mode has a
// single slot per user; edit mode has one slot per reservation.
func DraftKey(userId uint, mode string, reservationId uint) string {
	if mode == "edit" {
		return fmt.Sprintf("draft:%d:edit:%d", userId, reservationId)
	}
	return fmt.Sprintf("draft:%d:create", userId)
}

type RedisDraftStore struct {
	inner *redis.Client
}

func (s *RedisDraftStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.inner.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisDraftStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.inner.Set(ctx, key, value, ttl).Err()
}

func (s *RedisDraftStore) Remove(ctx context.Context, key string) error {
	return s.inner.Del(ctx, key).Err()
}

// MemoryDraftStore is the in-process implementation used by tests. TTLs are
// accepted and ignored.
type MemoryDraftStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{m: map[string]string{}}
}

func (s *MemoryDraftStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *MemoryDraftStore) Set(_ context.Context, key string, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryDraftStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

var draftStore DraftStore

func GetDraftStore() DraftStore {
	if draftStore != nil {
		return draftStore
	}
	draftStore = &RedisDraftStore{inner: GetRedisClient()}
	return draftStore
}

// NewDraftStore Replace draft store with custom implementation
func NewDraftStore(s DraftStore) DraftStore {
	draftStore = s
	return draftStore
}
