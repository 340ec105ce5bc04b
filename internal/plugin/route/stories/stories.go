package stories

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/botfront/authoring-service/internal/model"
	registryroute "github.com/botfront/authoring-service/internal/registry/route"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/story"
	"github.com/gin-gonic/gin"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Order: 100,
		Loader: func(r *gin.Engine) error {
			return nil // routes are mounted by the serve command after store init
		},
	})
}

// MountRoutes mounts the stories.* methods.
// Called after store initialization so the store is available.
func MountRoutes(r *gin.Engine, store registrystore.AuthoringStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/methods", auth)

	g.POST("/stories.insert", func(c *gin.Context) {
		insertStories(c, store)
	})
	g.POST("/stories.update", func(c *gin.Context) {
		updateStories(c, store)
	})
	g.POST("/stories.delete", func(c *gin.Context) {
		deleteStory(c, store)
	})
	g.POST("/stories.get", func(c *gin.Context) {
		getStory(c, store)
	})
	g.POST("/stories.list", func(c *gin.Context) {
		listStories(c, store)
	})
	g.POST("/stories.search", func(c *gin.Context) {
		searchStories(c, store)
	})
}

type storyRef struct {
	ID        string `json:"_id"`
	ProjectID string `json:"projectId"`
}

func insertStories(c *gin.Context, store registrystore.AuthoringStore) {
	stories, err := bindOneOrMany[model.Story](c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ids, err := store.InsertStories(c.Request.Context(), stories)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids})
}

func updateStories(c *gin.Context, store registrystore.AuthoringStore) {
	updates, err := bindOneOrMany[story.Update](c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := store.UpdateStories(c.Request.Context(), updates)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func deleteStory(c *gin.Context, store registrystore.AuthoringStore) {
	ref, ok := bindRef(c)
	if !ok {
		return
	}
	if err := store.DeleteStory(c.Request.Context(), ref.ProjectID, ref.ID); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": 1})
}

func getStory(c *gin.Context, store registrystore.AuthoringStore) {
	ref, ok := bindRef(c)
	if !ok {
		return
	}
	st, err := store.GetStory(c.Request.Context(), ref.ProjectID, ref.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func listStories(c *gin.Context, store registrystore.AuthoringStore) {
	var req struct {
		ProjectID    string  `json:"projectId" binding:"required"`
		StoryGroupID *string `json:"storyGroupId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	stories, err := store.ListStories(c.Request.Context(), req.ProjectID, req.StoryGroupID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

func searchStories(c *gin.Context, store registrystore.AuthoringStore) {
	var req struct {
		ProjectID string `json:"projectId" binding:"required"`
		Query     string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	found, err := store.SearchStories(c.Request.Context(), req.ProjectID, req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// --- Helpers ---

// bindOneOrMany accepts either a single JSON object or an array of them.
func bindOneOrMany[T any](c *gin.Context) ([]T, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("request body is required")
	}
	if raw[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

func bindRef(c *gin.Context) (storyRef, bool) {
	var ref storyRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return ref, false
	}
	if ref.ID == "" || ref.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "_id and projectId are required"})
		return ref, false
	}
	return ref, true
}

func handleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	var conflict *registrystore.ConflictError
	var forbidden *registrystore.ForbiddenError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error(), "field": validation.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"code": conflict.Code, "error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
