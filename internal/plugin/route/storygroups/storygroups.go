package storygroups

import (
	"errors"
	"net/http"

	"github.com/botfront/authoring-service/internal/model"
	registryroute "github.com/botfront/authoring-service/internal/registry/route"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/gin-gonic/gin"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Order: 110,
		Loader: func(r *gin.Engine) error {
			return nil // routes are mounted by the serve command after store init
		},
	})
}

// MountRoutes mounts the storyGroups.* methods.
func MountRoutes(r *gin.Engine, store registrystore.AuthoringStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/methods", auth)

	g.POST("/storyGroups.insert", func(c *gin.Context) {
		var group model.StoryGroup
		if err := c.ShouldBindJSON(&group); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := store.InsertStoryGroup(c.Request.Context(), group)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"_id": id})
	})
	g.POST("/storyGroups.update", func(c *gin.Context) {
		var update registrystore.StoryGroupUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := store.UpdateStoryGroup(c.Request.Context(), update); err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": 1})
	})
	g.POST("/storyGroups.delete", func(c *gin.Context) {
		var req struct {
			ID        string `json:"_id" binding:"required"`
			ProjectID string `json:"projectId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
			return
		}
		if err := store.DeleteStoryGroup(c.Request.Context(), req.ProjectID, req.ID); err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": 1})
	})
	g.POST("/storyGroups.list", func(c *gin.Context) {
		var req struct {
			ProjectID string `json:"projectId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
			return
		}
		groups, err := store.ListStoryGroups(c.Request.Context(), req.ProjectID)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	})
}

func handleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	var conflict *registrystore.ConflictError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error(), "field": validation.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"code": conflict.Code, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
