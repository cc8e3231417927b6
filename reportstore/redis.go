package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trendscout/config"
	"trendscout/types"
)

const keyPrefix = "trendscout"

// Redis stores reports as JSON strings with a TTL
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	limit  int
}

// NewRedis connects to Redis and verifies connectivity
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisWithClient(client, cfg.ReportTTL), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = config.ReportTTL
	}
	return &Redis{client: client, ttl: ttl, limit: config.SessionHistoryLimit}
}

func runKey(runID string) string { return fmt.Sprintf("%s:run:%s", keyPrefix, runID) }

func sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:runs", keyPrefix, sessionID)
}

// Save implements Store
func (r *Redis) Save(ctx context.Context, report *types.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.RunID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runKey(report.RunID), payload, r.ttl)
		if report.Query.SessionID != "" {
			key := sessionKey(report.Query.SessionID)
			pipe.LRem(ctx, key, 0, report.RunID)
			pipe.LPush(ctx, key, report.RunID)
			pipe.LTrim(ctx, key, 0, int64(r.limit-1))
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.RunID, err)
	}
	return nil
}

// Get implements Store
func (r *Redis) Get(ctx context.Context, runID string) (*types.RunReport, error) {
	payload, err := r.client.Get(ctx, runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	var report types.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return &report, nil
}

// ListSession implements Store
func (r *Redis) ListSession(ctx context.Context, sessionID string, limit int) ([]string, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}
	ids, err := r.client.LRange(ctx, sessionKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs for session %s: %w", sessionID, err)
	}
	return ids, nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
