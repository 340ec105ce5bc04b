package metrics

import (
	"context"
	"time"

	"github.com/botfront/authoring-service/internal/model"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/security"
	"github.com/botfront/authoring-service/internal/story"
)

// Wrap returns an AuthoringStore that records StoreLatency for every operation.
func Wrap(inner store.AuthoringStore) store.AuthoringStore {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.AuthoringStore
}

func observe(op string, start time.Time) {
	if security.StoreLatency == nil {
		return
	}
	security.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) InsertStories(ctx context.Context, stories []model.Story) ([]string, error) {
	defer observe("insert_stories", time.Now())
	return m.inner.InsertStories(ctx, stories)
}

func (m *metricsStore) UpdateStories(ctx context.Context, updates []story.Update) (int, error) {
	defer observe("update_stories", time.Now())
	return m.inner.UpdateStories(ctx, updates)
}

func (m *metricsStore) DeleteStory(ctx context.Context, projectID string, storyID string) error {
	defer observe("delete_story", time.Now())
	return m.inner.DeleteStory(ctx, projectID, storyID)
}

func (m *metricsStore) GetStory(ctx context.Context, projectID string, storyID string) (*model.Story, error) {
	defer observe("get_story", time.Now())
	return m.inner.GetStory(ctx, projectID, storyID)
}

func (m *metricsStore) ListStories(ctx context.Context, projectID string, storyGroupID *string) ([]model.Story, error) {
	defer observe("list_stories", time.Now())
	return m.inner.ListStories(ctx, projectID, storyGroupID)
}

func (m *metricsStore) SearchStories(ctx context.Context, projectID string, query string) ([]store.StorySummary, error) {
	defer observe("search_stories", time.Now())
	return m.inner.SearchStories(ctx, projectID, query)
}

func (m *metricsStore) InsertStoryGroup(ctx context.Context, group model.StoryGroup) (string, error) {
	defer observe("insert_story_group", time.Now())
	return m.inner.InsertStoryGroup(ctx, group)
}

func (m *metricsStore) UpdateStoryGroup(ctx context.Context, update store.StoryGroupUpdate) error {
	defer observe("update_story_group", time.Now())
	return m.inner.UpdateStoryGroup(ctx, update)
}

func (m *metricsStore) DeleteStoryGroup(ctx context.Context, projectID string, groupID string) error {
	defer observe("delete_story_group", time.Now())
	return m.inner.DeleteStoryGroup(ctx, projectID, groupID)
}

func (m *metricsStore) ListStoryGroups(ctx context.Context, projectID string) ([]model.StoryGroup, error) {
	defer observe("list_story_groups", time.Now())
	return m.inner.ListStoryGroups(ctx, projectID)
}

func (m *metricsStore) UpsertBotResponse(ctx context.Context, resp model.BotResponse) (*model.BotResponse, error) {
	defer observe("upsert_bot_response", time.Now())
	return m.inner.UpsertBotResponse(ctx, resp)
}

func (m *metricsStore) GetBotResponse(ctx context.Context, projectID string, key string) (*model.BotResponse, error) {
	defer observe("get_bot_response", time.Now())
	return m.inner.GetBotResponse(ctx, projectID, key)
}

func (m *metricsStore) DeleteBotResponse(ctx context.Context, projectID string, key string) error {
	defer observe("delete_bot_response", time.Now())
	return m.inner.DeleteBotResponse(ctx, projectID, key)
}

func (m *metricsStore) ListBotResponses(ctx context.Context, projectID string, query *string) ([]model.BotResponse, error) {
	defer observe("list_bot_responses", time.Now())
	return m.inner.ListBotResponses(ctx, projectID, query)
}

func (m *metricsStore) InsertProject(ctx context.Context, project model.Project) (string, error) {
	defer observe("insert_project", time.Now())
	return m.inner.InsertProject(ctx, project)
}

func (m *metricsStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	defer observe("get_project", time.Now())
	return m.inner.GetProject(ctx, projectID)
}

func (m *metricsStore) UpdateProject(ctx context.Context, update store.ProjectUpdate) (*model.Project, error) {
	defer observe("update_project", time.Now())
	return m.inner.UpdateProject(ctx, update)
}

func (m *metricsStore) MigrationStatus(ctx context.Context) (*model.MigrationControl, error) {
	defer observe("migration_status", time.Now())
	return m.inner.MigrationStatus(ctx)
}

func (m *metricsStore) Migrate(ctx context.Context, opts registrymigrate.Options) (*model.MigrationControl, error) {
	defer observe("migrate", time.Now())
	return m.inner.Migrate(ctx, opts)
}

var _ store.AuthoringStore = (*metricsStore)(nil)
