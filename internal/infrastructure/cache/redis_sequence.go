package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// The key stores the last issued value; a missing key means nothing was issued yet.
var (
	nextScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	redis.call('SET', KEYS[1], tonumber(ARGV[1]) - 1)
end
return redis.call('INCR', KEYS[1])
`)

	advanceScript = redis.NewScript(`
local start = tonumber(ARGV[2])
local cur = tonumber(redis.call('GET', KEYS[1]) or (start - 1))
local target = tonumber(ARGV[1]) - 1
if target > cur then
	cur = target
end
redis.call('SET', KEYS[1], cur)
return cur
`)
)

// DefaultSequenceKeyPrefix namespaces sequence keys in Redis
const DefaultSequenceKeyPrefix = "invoicing:seq:"

// RedisSequence implements shared.Sequence on a Redis counter.
// Every operation is a single atomic command or script, so several service
// instances can share one sequence.
type RedisSequence struct {
	client *redis.Client
	key    string
	start  int64
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisSequenceWithClient creates a sequence on an existing Redis client
func NewRedisSequenceWithClient(client *redis.Client, keyPrefix, name string, start int64) *RedisSequence {
	if keyPrefix == "" {
		keyPrefix = DefaultSequenceKeyPrefix
	}
	return &RedisSequence{
		client: client,
		key:    keyPrefix + name,
		start:  start,
	}
}

// Next atomically increments the counter and returns the issued value
func (s *RedisSequence) Next(ctx context.Context) (int64, error) {
	v, err := nextScript.Run(ctx, s.client, []string{s.key}, s.start).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", s.key, err)
	}
	return v, nil
}

// Peek returns the value Next would issue
func (s *RedisSequence) Peek(ctx context.Context) (int64, error) {
	last, err := s.client.Get(ctx, s.key).Int64()
	if errors.Is(err, redis.Nil) {
		return s.start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence %s: %w", s.key, err)
	}
	return last + 1, nil
}

// AdvanceTo moves the sequence forward so that Peek returns at least min
func (s *RedisSequence) AdvanceTo(ctx context.Context, min int64) error {
	if err := advanceScript.Run(ctx, s.client, []string{s.key}, min, s.start).Err(); err != nil {
		return fmt.Errorf("failed to advance sequence %s: %w", s.key, err)
	}
	return nil
}

// Key returns the Redis key backing the sequence
func (s *RedisSequence) Key() string {
	return s.key
}

// Ensure RedisSequence implements Sequence
var _ shared.Sequence = (*RedisSequence)(nil)
