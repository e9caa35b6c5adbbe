package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/macro-engine/pkg/storage"
)

// DefaultSessionTTL is used when no session TTL is configured
const DefaultSessionTTL = time.Hour

// RedisStorage implements the Storage interface using Redis for character
// sessions and the filesystem for static resources (character specs, macros)
type RedisStorage struct {
	client     *redis.Client
	logger     *slog.Logger
	dataDir    string
	sessionTTL time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// bare host:port or a redis:// URL.
func NewRedisStorage(redisURL string, dataDir string, sessionTTL time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opt = parsed
	}

	if dataDir == "" {
		dataDir = "./data"
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	return &RedisStorage{
		client:     redis.NewClient(opt),
		logger:     logger,
		dataDir:    dataDir,
		sessionTTL: sessionTTL,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := range maxRetries {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
