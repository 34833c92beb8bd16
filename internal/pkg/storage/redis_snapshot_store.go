package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harbibet/harbi/internal/pkg/config"
	"github.com/harbibet/harbi/internal/pkg/report"
)

// RedisSnapshotStore keeps the latest cycle report with a TTL (so external
// renderers always see fresh data or nothing) and backs notifier dedup:
// an unchanged opportunity is not re-announced every cycle.
type RedisSnapshotStore struct {
	client   *redis.Client
	ttl      time.Duration
	cooldown time.Duration
}

// NewRedisSnapshotStore connects and verifies the connection.
func NewRedisSnapshotStore(cfg *config.RedisConfig, cooldown time.Duration) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSnapshotStore{client: client, ttl: cfg.TTL, cooldown: cooldown}, nil
}

// StoreReport stores the cycle report under a fixed key with the TTL.
func (r *RedisSnapshotStore) StoreReport(ctx context.Context, rep *report.CycleReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle report: %w", err)
	}
	return r.client.Set(ctx, "harbi:report:latest", data, r.ttl).Err()
}

// LatestReport returns the last stored report, or nil when none is live.
func (r *RedisSnapshotStore) LatestReport(ctx context.Context) (*report.CycleReport, error) {
	data, err := r.client.Get(ctx, "harbi:report:latest").Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle report: %w", err)
	}
	var rep report.CycleReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cycle report: %w", err)
	}
	return &rep, nil
}

// SeenRecently implements report.Deduper: the first call for a key within
// the cooldown window returns false and arms the window.
func (r *RedisSnapshotStore) SeenRecently(ctx context.Context, key string) (bool, error) {
	set, err := r.client.SetNX(ctx, "harbi:alert:"+key, 1, r.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check alert cooldown: %w", err)
	}
	return !set, nil
}

// Close closes the connection to Redis.
func (r *RedisSnapshotStore) Close() error {
	return r.client.Close()
}
