package cache

import (
	"fmt"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SequenceFactory creates ID sequences based on configuration
type SequenceFactory struct {
	redisConfig           config.RedisConfig
	start                 int64
	keyPrefix             string
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// SequenceFactoryOption is a functional option for configuring the factory
type SequenceFactoryOption func(*SequenceFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SequenceFactoryOption {
	return func(f *SequenceFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory sequences when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) SequenceFactoryOption {
	return func(f *SequenceFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithKeyPrefix overrides the Redis key prefix
func WithKeyPrefix(prefix string) SequenceFactoryOption {
	return func(f *SequenceFactory) {
		f.keyPrefix = prefix
	}
}

// NewSequenceFactory creates a new factory; start is the first ID of a fresh sequence
func NewSequenceFactory(cfg config.RedisConfig, start int64, opts ...SequenceFactoryOption) *SequenceFactory {
	f := &SequenceFactory{
		redisConfig:           cfg,
		start:                 start,
		keyPrefix:             DefaultSequenceKeyPrefix,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisSequences creates the invoice and payment sequences on one shared Redis client
func (f *SequenceFactory) CreateRedisSequences() (invoiceSeq, paymentSeq shared.Sequence, err error) {
	if f.client == nil {
		client, err := NewRedisClient(RedisConfig{
			Host:     f.redisConfig.Host,
			Port:     f.redisConfig.Port,
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Redis sequences: %w", err)
		}
		f.client = client
	}

	return NewRedisSequenceWithClient(f.client, f.keyPrefix, shared.SequenceInvoice, f.start),
		NewRedisSequenceWithClient(f.client, f.keyPrefix, shared.SequencePayment, f.start),
		nil
}

// CreateInMemorySequences creates process-local sequences.
// They do not share state across instances.
func (f *SequenceFactory) CreateInMemorySequences() (invoiceSeq, paymentSeq shared.Sequence) {
	return NewInMemorySequence(f.start), NewInMemorySequence(f.start)
}

// CreateSequences tries Redis first and falls back to in-memory sequences
// when Redis is unreachable and fallback is allowed
func (f *SequenceFactory) CreateSequences() (invoiceSeq, paymentSeq shared.Sequence, err error) {
	invoiceSeq, paymentSeq, err = f.CreateRedisSequences()
	if err == nil {
		f.logger.Info("using Redis ID sequences", zap.String("key_prefix", f.keyPrefix))
		return invoiceSeq, paymentSeq, nil
	}

	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("Redis required for ID sequences but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory ID sequences. "+
		"IDs are not coordinated across instances.",
		zap.Error(err),
	)
	invoiceSeq, paymentSeq = f.CreateInMemorySequences()
	return invoiceSeq, paymentSeq, nil
}

// Close releases the Redis client, if one was created
func (f *SequenceFactory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
