package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claim is what an idempotency key points at. An empty OrderID means the
// first request under the key is still running.
type Claim struct {
	OrderID string `json:"order_id"`
}

func (c Claim) InFlight() bool {
	return c.OrderID == ""
}

// IdempotencyStore deduplicates order creation by client-supplied key.
type IdempotencyStore interface {
	// Begin claims key. When the key is already claimed, claimed is false and
	// existing describes the earlier request.
	Begin(ctx context.Context, key string) (existing Claim, claimed bool, err error)
	// Complete binds key to the order it produced.
	Complete(ctx context.Context, key, orderID string) error
	// Abandon frees key after a failed attempt so the client may retry.
	Abandon(ctx context.Context, key string) error
}

const idempotencyPrefix = "idempotency:order:"

// RedisIdempotencyStore keeps claims in Redis with the cache TTL.
type RedisIdempotencyStore struct {
	cache *RedisCache
}

func NewRedisIdempotencyStore(cache *RedisCache) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{cache: cache}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (Claim, bool, error) {
	ok, err := s.cache.SetNX(ctx, idempotencyPrefix+key, Claim{})
	if err != nil {
		return Claim{}, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return Claim{}, true, nil
	}

	var existing Claim
	if err := s.cache.Get(ctx, idempotencyPrefix+key, &existing); err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired or abandoned between SETNX and GET; treat as in flight.
			return Claim{}, false, nil
		}
		return Claim{}, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return existing, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	return s.cache.Set(ctx, idempotencyPrefix+key, Claim{OrderID: orderID})
}

func (s *RedisIdempotencyStore) Abandon(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, idempotencyPrefix+key)
}

type memoryClaim struct {
	claim   Claim
	expires time.Time
}

// MemoryIdempotencyStore is the single-process fallback when Redis is not configured.
type MemoryIdempotencyStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]memoryClaim
	now    func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		ttl:    ttl,
		claims: make(map[string]memoryClaim),
		now:    time.Now,
	}
}

func (s *MemoryIdempotencyStore) Begin(_ context.Context, key string) (Claim, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if c, ok := s.claims[key]; ok && now.Before(c.expires) {
		return c.claim, false, nil
	}
	s.claims[key] = memoryClaim{expires: now.Add(s.ttl)}
	return Claim{}, true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claims[key] = memoryClaim{claim: Claim{OrderID: orderID}, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Abandon(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.claims, key)
	return nil
}
