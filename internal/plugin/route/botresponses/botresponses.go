package botresponses

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
		Order: 120,
		Loader: func(r *gin.Engine) error {
			return nil // routes are mounted by the serve command after store init
		},
	})
}

type responseRef struct {
	ProjectID string `json:"projectId" binding:"required"`
	Key       string `json:"key" binding:"required"`
}

// MountRoutes mounts the botResponses.* methods.
func MountRoutes(r *gin.Engine, store registrystore.AuthoringStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/methods", auth)

	g.POST("/botResponses.upsert", func(c *gin.Context) {
		var resp model.BotResponse
		if err := c.ShouldBindJSON(&resp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		saved, err := store.UpsertBotResponse(c.Request.Context(), resp)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, saved)
	})
	g.POST("/botResponses.get", func(c *gin.Context) {
		var ref responseRef
		if err := c.ShouldBindJSON(&ref); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
			return
		}
		resp, err := store.GetBotResponse(c.Request.Context(), ref.ProjectID, ref.Key)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	g.POST("/botResponses.delete", func(c *gin.Context) {
		var ref responseRef
		if err := c.ShouldBindJSON(&ref); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
			return
		}
		if err := store.DeleteBotResponse(c.Request.Context(), ref.ProjectID, ref.Key); err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": 1})
	})
	g.POST("/botResponses.list", func(c *gin.Context) {
		var req struct {
			ProjectID string  `json:"projectId" binding:"required"`
			Query     *string `json:"query"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
			return
		}
		responses, err := store.ListBotResponses(c.Request.Context(), req.ProjectID, req.Query)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, responses)
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
