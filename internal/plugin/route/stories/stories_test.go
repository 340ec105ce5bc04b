package stories

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/botfront/authoring-service/internal/model"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/story"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	registrystore.AuthoringStore
	updates  []story.Update
	inserted []model.Story
}

func (f *fakeStore) InsertStories(_ context.Context, stories []model.Story) ([]string, error) {
	f.inserted = stories
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	return ids, nil
}

func (f *fakeStore) UpdateStories(_ context.Context, updates []story.Update) (int, error) {
	f.updates = updates
	for _, u := range updates {
		if u.ProjectID != updates[0].ProjectID {
			return 0, &registrystore.ValidationError{Field: "projectId", Message: "all stories must belong to the same project"}
		}
		if u.ID == "missing" {
			return 0, &registrystore.NotFoundError{Resource: "story", ID: u.ID}
		}
	}
	return len(updates), nil
}

func (f *fakeStore) GetStory(_ context.Context, projectID, storyID string) (*model.Story, error) {
	if storyID != "story_A" {
		return nil, &registrystore.NotFoundError{Resource: "story", ID: storyID}
	}
	return &model.Story{ID: storyID, ProjectID: projectID, Title: "Welcome Story"}, nil
}

func setup(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := &fakeStore{}
	MountRoutes(r, store, func(c *gin.Context) { c.Next() })
	return r, store
}

func call(r *gin.Engine, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/methods/"+method, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUpdate_Array(t *testing.T) {
	r, store := setup(t)
	rec := call(r, "stories.update", `[{"_id":"story_A","projectId":"bf"},{"_id":"story_B","projectId":"bf"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())
	require.Len(t, store.updates, 2)
	assert.Equal(t, "story_B", store.updates[1].ID)
}

func TestUpdate_SingleWithPath(t *testing.T) {
	r, store := setup(t)
	rec := call(r, "stories.update", `{"_id":"story_A","projectId":"bf","path":["story_A","story_A_branch_A"],"title":"New"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, store.updates, 1)
	assert.Equal(t, []string{"story_A", "story_A_branch_A"}, store.updates[0].Path)
	require.NotNil(t, store.updates[0].Title)
	assert.Equal(t, "New", *store.updates[0].Title)
}

func TestUpdate_Errors(t *testing.T) {
	r, _ := setup(t)

	rec := call(r, "stories.update", `[{"_id":"story_A","projectId":"bf"},{"_id":"story_B","projectId":"non_matching_id"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "projectId", body["field"])

	rec = call(r, "stories.update", `{"_id":"missing","projectId":"bf"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(r, "stories.update", ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(r, "stories.update", `{"_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsert_SingleAndArray(t *testing.T) {
	r, store := setup(t)

	rec := call(r, "stories.insert", `{"_id":"s1","projectId":"bf","story":"* hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ids":["s1"]}`, rec.Body.String())

	rec = call(r, "stories.insert", `[{"_id":"s1","projectId":"bf"},{"_id":"s2","projectId":"bf"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.inserted, 2)
}

func TestGet(t *testing.T) {
	r, _ := setup(t)

	rec := call(r, "stories.get", `{"_id":"story_A","projectId":"bf"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Story
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Welcome Story", got.Title)

	assert.Equal(t, http.StatusNotFound, call(r, "stories.get", `{"_id":"nope","projectId":"bf"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, "stories.get", `{"_id":"story_A"}`).Code)
}
