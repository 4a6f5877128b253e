package services

import (
	"context"
	"fmt"
	"time"

	"relay-service/internal/database"
	"relay-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisService tracks which users currently hold at least one relay
// connection and backs the HTTP-side rate limiter. The relay core works
// without it; everything here is best-effort.
type RedisService struct {
	client *database.RedisClient
	logger *logger.Logger
}

func NewRedisService(client *database.RedisClient, log *logger.Logger) *RedisService {
	return &RedisService{
		client: client,
		logger: log,
	}
}

func (r *RedisService) SetUserOnline(ctx context.Context, userID string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, "online_users", userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, "online_users", userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, "online_users", userID).Result()
}

func (r *RedisService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return r.client.GetClient().SMembers(ctx, "online_users").Result()
}

// CheckRateLimit implements a sliding-window limiter over a sorted set.
// Returns true while the caller is under the limit.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).Unix()

	pipe := r.client.GetClient().Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	count := results[1].(*redis.IntCmd).Val()
	return count < int64(limit), nil
}
