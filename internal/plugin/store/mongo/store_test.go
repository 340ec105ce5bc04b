package mongo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/botfront/authoring-service/internal/config"
	_ "github.com/botfront/authoring-service/internal/migrations"
	"github.com/botfront/authoring-service/internal/model"
	_ "github.com/botfront/authoring-service/internal/plugin/cache/local"
	"github.com/botfront/authoring-service/internal/plugin/store/mongo"
	registrycache "github.com/botfront/authoring-service/internal/registry/cache"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/story"
	"github.com/botfront/authoring-service/internal/testutil/testmongo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDefaultDomain = "slots:\n  disambiguation_message:\n    type: unfeaturized\n"

const welcomeContents = "hello \n helpOptions \n how_are_you \n mood positive \n utter_hello \n utter_tXd-Pm66 \n utter_Xywmv8uc \n utter_hwZIDQ5P \n utter_0H5XEC9h \n action_help \n mood"

func setupTestStore(t *testing.T) (registrystore.AuthoringStore, context.Context) {
	t.Helper()

	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "default-settings.json"),
		[]byte(`{"settings":{"private":{"defaultDefaultDomain":"slots:\n  disambiguation_message:\n    type: unfeaturized\n"}}}`), 0o644))

	cfg := config.DefaultConfig()
	cfg.DBURL = testmongo.StartMongo(t)
	cfg.AssetsDir = assets
	ctx := config.WithContext(context.Background(), &cfg)

	// Ensure mongo store plugin is registered
	_ = mongo.ForceImport

	err := registrymigrate.RunAll(ctx)
	require.NoError(t, err)

	cacheLoader, err := registrycache.Select("local")
	require.NoError(t, err)
	projectCache, err := cacheLoader(ctx)
	require.NoError(t, err)
	ctx = registrycache.WithProjectCacheContext(ctx, projectCache)

	loader, err := registrystore.Select("mongo")
	require.NoError(t, err)
	store, err := loader(ctx)
	require.NoError(t, err)

	return store, ctx
}

func welcomeStory(id string) model.Story {
	return model.Story{
		ID:           id,
		Title:        "Welcome Story",
		StoryGroupID: "pYAvAsYw256uy8bGF",
		ProjectID:    "bf",
		Story:        "* hello\n - utter_hello",
		Branches: []model.Branch{
			{
				ID:       id + "_branch_A",
				Title:    "New Branch 1",
				Story:    "* helpOptions\n  - action_help\n  - utter_tXd-Pm66",
				Branches: []model.Branch{},
			},
			{
				ID:       id + "_branch_B",
				Title:    "New Branch 2",
				Story:    "* how_are_you\n  - utter_Xywmv8uc\n* mood{\"positive\": \"good\"}\n  - utter_hwZIDQ5P\n  - utter_0H5XEC9h\n  - slot{\"mood\":\"set\"}",
				Branches: []model.Branch{},
			},
		},
	}
}

func seedWelcomeStories(t *testing.T, store registrystore.AuthoringStore, ctx context.Context) {
	t.Helper()
	_, err := store.InsertProject(ctx, model.Project{ID: "bf", Name: "Botfront"})
	require.NoError(t, err)
	ids, err := store.InsertStories(ctx, []model.Story{welcomeStory("story_A"), welcomeStory("story_B")})
	require.NoError(t, err)
	require.Equal(t, []string{"story_A", "story_B"}, ids)
}

func assertWelcomeIndex(t *testing.T, store registrystore.AuthoringStore, ctx context.Context, id string) {
	t.Helper()
	got, err := store.GetStory(ctx, "bf", id)
	require.NoError(t, err)
	assert.Len(t, got.Events, 6)
	require.NotNil(t, got.TextIndex)
	assert.Equal(t, model.TextIndex{Contents: welcomeContents, Info: "Welcome Story"}, *got.TextIndex)
}

func TestUpdateStories_Array(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	n, err := store.UpdateStories(ctx, []story.Update{
		{ID: "story_A", ProjectID: "bf"},
		{ID: "story_B", ProjectID: "bf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertWelcomeIndex(t, store, ctx, "story_A")
	assertWelcomeIndex(t, store, ctx, "story_B")
}

func TestUpdateStories_MismatchedProjects(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	_, err := store.UpdateStories(ctx, []story.Update{
		{ID: "story_A", ProjectID: "bf"},
		{ID: "story_B", ProjectID: "non_matching_id"},
	})
	var verr *registrystore.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "projectId", verr.Field)
}

func TestUpdateStories_Single(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	_, err := store.UpdateStories(ctx, []story.Update{{ID: "story_A", ProjectID: "bf"}})
	require.NoError(t, err)
	assertWelcomeIndex(t, store, ctx, "story_A")
}

func TestUpdateStories_WithBranchPath(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	_, err := store.UpdateStories(ctx, []story.Update{{
		ID:        "story_A",
		ProjectID: "bf",
		Path:      []string{"story_A", "story_A_branch_A"},
	}})
	require.NoError(t, err)
	assertWelcomeIndex(t, store, ctx, "story_A")
}

func TestUpdateStories_BranchEditReindexes(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	text := "* helpOptions\n  - action_more_help"
	_, err := store.UpdateStories(ctx, []story.Update{{
		ID:        "story_A",
		ProjectID: "bf",
		Path:      []string{"story_A", "story_A_branch_A"},
		Story:     &text,
	}})
	require.NoError(t, err)

	got, err := store.GetStory(ctx, "bf", "story_A")
	require.NoError(t, err)
	assert.Contains(t, got.Events, "action_more_help")
	assert.NotContains(t, got.Events, "action_help")
	assert.Contains(t, got.TextIndex.Contents, "action_more_help")
}

func TestUpdateStories_Errors(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	var nf *registrystore.NotFoundError
	_, err := store.UpdateStories(ctx, []story.Update{{ID: "missing", ProjectID: "bf"}})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "story", nf.Resource)

	_, err = store.UpdateStories(ctx, []story.Update{{ID: "story_A", ProjectID: "bf", Path: []string{"story_A", "nope"}}})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "branch", nf.Resource)

	var verr *registrystore.ValidationError
	_, err = store.UpdateStories(ctx, []story.Update{{ID: "story_A", ProjectID: "bf", Path: []string{"story_B"}}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "path", verr.Field)
}

func TestInsertStories_UnknownProject(t *testing.T) {
	store, ctx := setupTestStore(t)

	_, err := store.InsertStories(ctx, []model.Story{welcomeStory("story_A")})
	var nf *registrystore.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "project", nf.Resource)
}

func TestSearchAndDeleteStories(t *testing.T) {
	store, ctx := setupTestStore(t)
	seedWelcomeStories(t, store, ctx)

	found, err := store.SearchStories(ctx, "bf", "HOW_ARE")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = store.SearchStories(ctx, "bf", "utter_nothing")
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, store.DeleteStory(ctx, "bf", "story_A"))
	var nf *registrystore.NotFoundError
	assert.True(t, errors.As(store.DeleteStory(ctx, "bf", "story_A"), &nf))

	stories, err := store.ListStories(ctx, "bf", nil)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "story_B", stories[0].ID)
}

func TestStoryGroups(t *testing.T) {
	store, ctx := setupTestStore(t)
	_, err := store.InsertProject(ctx, model.Project{ID: "bf", Name: "Botfront"})
	require.NoError(t, err)

	regular, err := store.InsertStoryGroup(ctx, model.StoryGroup{ProjectID: "bf", Name: "Regular"})
	require.NoError(t, err)
	intro, err := store.InsertStoryGroup(ctx, model.StoryGroup{ProjectID: "bf", Name: "Intro", IntroStory: true})
	require.NoError(t, err)

	project, err := store.GetProject(ctx, "bf")
	require.NoError(t, err)
	assert.Equal(t, []string{intro, regular}, project.StoryGroups)

	st := welcomeStory("story_A")
	st.StoryGroupID = regular
	_, err = store.InsertStories(ctx, []model.Story{st})
	require.NoError(t, err)

	groups, err := store.ListStoryGroups(ctx, "bf")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Intro", groups[0].Name)
	assert.Equal(t, []string{"story_A"}, groups[1].Children)

	name := "Renamed"
	require.NoError(t, store.UpdateStoryGroup(ctx, registrystore.StoryGroupUpdate{ID: regular, ProjectID: "bf", Name: &name}))

	require.NoError(t, store.DeleteStoryGroup(ctx, "bf", regular))
	stories, err := store.ListStories(ctx, "bf", nil)
	require.NoError(t, err)
	assert.Empty(t, stories)

	project, err = store.GetProject(ctx, "bf")
	require.NoError(t, err)
	assert.Equal(t, []string{intro}, project.StoryGroups)
}

func TestBotResponses(t *testing.T) {
	store, ctx := setupTestStore(t)
	_, err := store.InsertProject(ctx, model.Project{ID: "bf", Name: "Botfront"})
	require.NoError(t, err)

	resp := model.BotResponse{
		Key:       "utter_greet",
		ProjectID: "bf",
		Values: []model.ResponseValue{{
			Lang:     "en",
			Sequence: []model.SequenceStep{{Content: "text: Hello there"}},
		}},
	}
	saved, err := store.UpsertBotResponse(ctx, resp)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "utter_greet\nHello there", saved.TextIndex)

	resp.Values[0].Sequence[0].Content = "text: Hi"
	again, err := store.UpsertBotResponse(ctx, resp)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	assert.Equal(t, "utter_greet\nHi", again.TextIndex)

	query := "hi"
	list, err := store.ListBotResponses(ctx, "bf", &query)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = store.UpsertBotResponse(ctx, model.BotResponse{Key: "greet", ProjectID: "bf"})
	var verr *registrystore.ValidationError
	assert.True(t, errors.As(err, &verr))

	require.NoError(t, store.DeleteBotResponse(ctx, "bf", "utter_greet"))
	_, err = store.GetBotResponse(ctx, "bf", "utter_greet")
	var nf *registrystore.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestUpdateProject_InvalidatesCache(t *testing.T) {
	store, ctx := setupTestStore(t)
	_, err := store.InsertProject(ctx, model.Project{ID: "bf", Name: "Botfront"})
	require.NoError(t, err)

	_, err = store.GetProject(ctx, "bf")
	require.NoError(t, err)

	name := "Renamed"
	updated, err := store.UpdateProject(ctx, registrystore.ProjectUpdate{ID: "bf", Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	got, err := store.GetProject(ctx, "bf")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	_, err = store.UpdateProject(ctx, registrystore.ProjectUpdate{ID: "missing", Name: &name})
	var nf *registrystore.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestMigrationStatus(t *testing.T) {
	store, ctx := setupTestStore(t)

	status, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Locked)

	after, err := store.Migrate(ctx, registrymigrate.Options{To: registrymigrate.Latest})
	require.NoError(t, err)
	assert.Equal(t, status.Version, after.Version)
	assert.False(t, after.Locked)
}

func TestMigrate_ClearsProjectCache(t *testing.T) {
	store, ctx := setupTestStore(t)
	_, err := store.InsertProject(ctx, model.Project{ID: "bf", Name: "Botfront", DefaultDomain: &model.Domain{Content: "slots: {}"}})
	require.NoError(t, err)

	cached, err := store.GetProject(ctx, "bf")
	require.NoError(t, err)
	require.NotNil(t, cached.DefaultDomain)
	assert.Equal(t, "slots: {}", cached.DefaultDomain.Content)

	_, err = store.Migrate(ctx, registrymigrate.Options{To: 2, Rerun: true})
	require.NoError(t, err)

	got, err := store.GetProject(ctx, "bf")
	require.NoError(t, err)
	require.NotNil(t, got.DefaultDomain)
	assert.Equal(t, testDefaultDomain, got.DefaultDomain.Content)
}

func TestLoad_ClearsProjectCacheAfterStartupMigrations(t *testing.T) {
	store, ctx := setupTestStore(t)
	_, err := store.InsertProject(ctx, model.Project{ID: "bf", Name: "Botfront"})
	require.NoError(t, err)

	projectCache := registrycache.ProjectCacheFromContext(ctx)
	require.NoError(t, projectCache.Set(ctx, model.Project{ID: "bf", Name: "Stale"}, 0))

	loader, err := registrystore.Select("mongo")
	require.NoError(t, err)
	reloaded, err := loader(ctx)
	require.NoError(t, err)

	got, err := reloaded.GetProject(ctx, "bf")
	require.NoError(t, err)
	assert.Equal(t, "Botfront", got.Name)
}
