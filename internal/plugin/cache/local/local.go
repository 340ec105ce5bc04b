package local

import (
	"context"
	"fmt"
	"time"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/botfront/authoring-service/internal/model"
	registrycache "github.com/botfront/authoring-service/internal/registry/cache"
	"github.com/dgraph-io/ristretto/v2"
)

const (
	defaultTTL      = 5 * time.Minute
	defaultMaxItems = 10000
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "local",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.ProjectCache, error) {
	maxItems := int64(defaultMaxItems)
	ttl := defaultTTL
	if cfg := config.FromContext(ctx); cfg != nil {
		if cfg.LocalCacheMaxItems > 0 {
			maxItems = cfg.LocalCacheMaxItems
		}
		if cfg.CacheTTL > 0 {
			ttl = cfg.CacheTTL
		}
	}
	return New(maxItems, ttl)
}

// New creates an in-process project cache holding at most maxItems projects.
func New(maxItems int64, ttl time.Duration) (registrycache.ProjectCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, model.Project]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("local cache: %w", err)
	}
	return &localProjectCache{cache: c, ttl: ttl}, nil
}

type localProjectCache struct {
	cache *ristretto.Cache[string, model.Project]
	ttl   time.Duration
}

func (c *localProjectCache) Available() bool { return true }

func (c *localProjectCache) Get(_ context.Context, projectID string) (*model.Project, error) {
	p, ok := c.cache.Get(projectID)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *localProjectCache) Set(_ context.Context, project model.Project, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	c.cache.SetWithTTL(project.ID, project, 1, ttl)
	// Make the write visible to the next Get.
	c.cache.Wait()
	return nil
}

func (c *localProjectCache) Remove(_ context.Context, projectID string) error {
	c.cache.Del(projectID)
	return nil
}

func (c *localProjectCache) Clear(_ context.Context) error {
	c.cache.Clear()
	return nil
}

var _ registrycache.ProjectCache = (*localProjectCache)(nil)
