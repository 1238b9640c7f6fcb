package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"

	"device-tracking-backend/config"
)

// Challenge is a pending one-time-code verification.
type Challenge struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	CodeHash  []byte    `json:"codeHash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ChallengeStore keeps challenges until they expire. Get returns
// ErrChallengeExpired for ids it does not hold.
type ChallengeStore interface {
	Put(ctx context.Context, c *Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Challenge, error)
	Delete(ctx context.Context, id string) error
}

// MemoryChallengeStore is a process-local ChallengeStore.
type MemoryChallengeStore struct {
	cache *cache.Cache
}

// NewMemoryChallengeStore creates an in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{cache: cache.New(5*time.Minute, 10*time.Minute)}
}

func (s *MemoryChallengeStore) Put(_ context.Context, c *Challenge, ttl time.Duration) error {
	cp := *c
	s.cache.Set(c.ID, cp, ttl)
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, id string) (*Challenge, error) {
	v, found := s.cache.Get(id)
	if !found {
		return nil, fmt.Errorf("challenge %s: %w", id, ErrChallengeExpired)
	}
	c := v.(Challenge)
	return &c, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// RedisChallengeStore shares challenges between instances through Redis.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a Redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, prefix: "otp:challenge:"}
}

func (s *RedisChallengeStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisChallengeStore) Put(ctx context.Context, c *Challenge, ttl time.Duration) error {
	jsonValue, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(c.ID), jsonValue, ttl).Err()
}

func (s *RedisChallengeStore) Get(ctx context.Context, id string) (*Challenge, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge %s: %w", id, ErrChallengeExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge %s: %w", id, err)
	}

	var c Challenge
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return nil, fmt.Errorf("corrupt challenge %s: %w", id, err)
	}
	return &c, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Close releases the Redis connection pool.
func (s *RedisChallengeStore) Close() error {
	return s.client.Close()
}

// NewChallengeStore builds the store named by auth.challenge_store.
func NewChallengeStore(cfg config.AuthConfig) (ChallengeStore, error) {
	switch cfg.ChallengeStore {
	case "memory":
		return NewMemoryChallengeStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisChallengeStore(client), nil
	default:
		return nil, fmt.Errorf("unknown challenge store %q", cfg.ChallengeStore)
	}
}
