package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// NonceStore holds the single live challenge of each wallet.
type NonceStore interface {
	// Put stores n as the wallet's current challenge, replacing any previous one.
	Put(ctx context.Context, n *domain.Nonce, ttl time.Duration) error

	// Take atomically returns and deletes the wallet's challenge.
	// Returns storage.ErrNotFound if there is none.
	Take(ctx context.Context, wallet string) (*domain.Nonce, error)

	// Sweep deletes challenges issued at or before cutoff and returns how many.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryNonceStore is a process-local NonceStore.
type MemoryNonceStore struct {
	mu   sync.Mutex
	data map[string]domain.Nonce
}

// NewMemoryNonceStore creates an empty in-process nonce store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		data: make(map[string]domain.Nonce),
	}
}

// Compile-time interface check.
var _ NonceStore = (*MemoryNonceStore)(nil)

// Put stores n, evicting the previous challenge of the wallet.
func (s *MemoryNonceStore) Put(_ context.Context, n *domain.Nonce, _ time.Duration) error {
	if n == nil || n.Wallet == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	s.data[n.Wallet] = *n
	s.mu.Unlock()
	return nil
}

// Take returns and deletes the challenge of wallet.
func (s *MemoryNonceStore) Take(_ context.Context, wallet string) (*domain.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.data[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(s.data, wallet)
	return &n, nil
}

// Sweep deletes challenges issued at or before cutoff.
func (s *MemoryNonceStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for wallet, n := range s.data {
		if !n.IssuedAt.After(cutoff) {
			delete(s.data, wallet)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored challenges.
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// RedisNonceStore shares challenges between instances. Keys expire in Redis.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a Redis-backed nonce store.
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "droplive:nonce:",
	}
}

// Compile-time interface check.
var _ NonceStore = (*RedisNonceStore)(nil)

// Put stores n under the wallet key with expiry ttl.
func (s *RedisNonceStore) Put(ctx context.Context, n *domain.Nonce, ttl time.Duration) error {
	if n == nil || n.Wallet == "" {
		return storage.ErrInvalidInput
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal nonce: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+n.Wallet, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	return nil
}

// Take fetches and deletes the wallet key in one GETDEL.
func (s *RedisNonceStore) Take(ctx context.Context, wallet string) (*domain.Nonce, error) {
	raw, err := s.client.GetDel(ctx, s.prefix+wallet).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take nonce: %w", err)
	}

	var n domain.Nonce
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("unmarshal nonce: %w", err)
	}
	return &n, nil
}

// Sweep is a no-op: Redis expires keys itself.
func (s *RedisNonceStore) Sweep(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

// Ping checks the Redis connection.
func (s *RedisNonceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
