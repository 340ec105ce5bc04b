package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/botfront/authoring-service/internal/model"
)

type projectCacheKey struct{}

// WithProjectCacheContext returns a new context carrying the given ProjectCache.
func WithProjectCacheContext(ctx context.Context, c ProjectCache) context.Context {
	return context.WithValue(ctx, projectCacheKey{}, c)
}

// ProjectCacheFromContext retrieves the ProjectCache from the context.
// Returns nil if none was set.
func ProjectCacheFromContext(ctx context.Context) ProjectCache {
	c, _ := ctx.Value(projectCacheKey{}).(ProjectCache)
	return c
}

// ProjectCache caches project documents looked up on every authoring write.
// Get returns nil, nil on a miss.
type ProjectCache interface {
	Available() bool
	Get(ctx context.Context, projectID string) (*model.Project, error)
	Set(ctx context.Context, project model.Project, ttl time.Duration) error
	Remove(ctx context.Context, projectID string) error
	// Clear drops every cached project.
	Clear(ctx context.Context) error
}

// Loader creates a cache from config.
type Loader func(ctx context.Context) (ProjectCache, error)

// Plugin represents a cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
