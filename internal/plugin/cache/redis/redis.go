package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/botfront/authoring-service/internal/model"
	registrycache "github.com/botfront/authoring-service/internal/registry/cache"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.ProjectCache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: BOTFRONT_REDIS_URL is required")
	}
	return LoadFromURLWithTTL(ctx, cfg.RedisURL, cfg.CacheTTL)
}

// LoadFromURLWithTTL creates a project cache from a Redis URL with an explicit default TTL.
func LoadFromURLWithTTL(ctx context.Context, redisURL string, ttl time.Duration) (registrycache.ProjectCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisProjectCache{client: client, ttl: ttl}, nil
}

type redisProjectCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func projectKey(projectID string) string {
	return "bf-project:" + projectID
}

func (c *redisProjectCache) Available() bool {
	return true
}

func (c *redisProjectCache) Get(ctx context.Context, projectID string) (*model.Project, error) {
	data, err := c.client.Get(ctx, projectKey(projectID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *redisProjectCache) Set(ctx context.Context, project model.Project, ttl time.Duration) error {
	data, err := json.Marshal(project)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, projectKey(project.ID), data, ttl).Err()
}

func (c *redisProjectCache) Remove(ctx context.Context, projectID string) error {
	return c.client.Del(ctx, projectKey(projectID)).Err()
}

func (c *redisProjectCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, projectKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

var _ registrycache.ProjectCache = (*redisProjectCache)(nil)
