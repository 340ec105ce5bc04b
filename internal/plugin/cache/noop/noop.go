package noop

import (
	"context"
	"time"

	"github.com/botfront/authoring-service/internal/model"
	"github.com/botfront/authoring-service/internal/registry/cache"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (cache.ProjectCache, error) {
			return &noopProjectCache{}, nil
		},
	})
}

type noopProjectCache struct{}

func (n *noopProjectCache) Available() bool { return false }
func (n *noopProjectCache) Get(_ context.Context, _ string) (*model.Project, error) {
	return nil, nil
}
func (n *noopProjectCache) Set(_ context.Context, _ model.Project, _ time.Duration) error {
	return nil
}
func (n *noopProjectCache) Remove(_ context.Context, _ string) error { return nil }
func (n *noopProjectCache) Clear(_ context.Context) error            { return nil }

var _ cache.ProjectCache = (*noopProjectCache)(nil)
