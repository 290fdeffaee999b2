package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKey = "crimson:progress"

// RedisRepository keeps the mapping as one JSON document under a single key,
// mirroring the file backend's full-rewrite semantics.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(redisURL string) (*RedisRepository, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisRepository{rdb: redis.NewClient(opts)}, nil
}

// NewRedisRepositoryFromClient wraps an existing client, used by tests.
func NewRedisRepositoryFromClient(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func (r *RedisRepository) Load(ctx context.Context) (map[string]*UserProgress, error) {
	raw, err := r.rdb.Get(ctx, redisKey).Bytes()
	if err == redis.Nil {
		return make(map[string]*UserProgress), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var data map[string]*UserProgress
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse progress document: %w", err)
	}
	if data == nil {
		data = make(map[string]*UserProgress)
	}
	return data, nil
}

func (r *RedisRepository) Save(ctx context.Context, data map[string]*UserProgress) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisRepository) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
