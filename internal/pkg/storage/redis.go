package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/propline/internal/pkg/config"
)

// EvaluatedKey holds the latest ranked evaluated lines as JSON.
const EvaluatedKey = "propline:evaluated"

// Ensure RedisClient implements EvaluatedPublisher
var _ EvaluatedPublisher = (*RedisClient)(nil)

// redisWriter is the subset of go-redis used for publishing.
type redisWriter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type RedisClient struct {
	client redisWriter
	ttl    time.Duration
	stream string
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, ttl: cfg.TTL, stream: cfg.Stream}, nil
}

// PublishEvaluated stores the ranked list under EvaluatedKey with the
// configured TTL and, when a stream is configured, appends it there too.
func (r *RedisClient) PublishEvaluated(ctx context.Context, payload []byte, count int) error {
	if err := r.client.Set(ctx, EvaluatedKey, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store evaluated lines: %w", err)
	}
	if r.stream == "" {
		return nil
	}
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"count":        count,
			"payload":      payload,
			"published_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append evaluated lines to stream %s: %w", r.stream, err)
	}
	return nil
}

// Close closes connection to Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}
