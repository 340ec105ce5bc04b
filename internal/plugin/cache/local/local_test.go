package local

import (
	"context"
	"testing"
	"time"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/botfront/authoring-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProjectCache(t *testing.T) {
	ctx := context.Background()
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	assert.True(t, c.Available())

	got, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, model.Project{ID: "p1", Name: "Bot"}, 0))
	got, err = c.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bot", got.Name)

	require.NoError(t, c.Remove(ctx, "p1"))
	got, err = c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocalProjectCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, err := New(100, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, model.Project{ID: "p1", Name: "One"}, 0))
	require.NoError(t, c.Set(ctx, model.Project{ID: "p2", Name: "Two"}, 0))
	require.NoError(t, c.Clear(ctx))

	for _, id := range []string{"p1", "p2"} {
		got, err := c.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got, id)
	}
}

func TestLoad_UsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LocalCacheMaxItems = 5
	cfg.CacheTTL = time.Second
	c, err := load(config.WithContext(context.Background(), &cfg))
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.(*localProjectCache).ttl)
}
