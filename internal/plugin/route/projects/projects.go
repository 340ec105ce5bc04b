package projects

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
		Order: 130,
		Loader: func(r *gin.Engine) error {
			return nil // routes are mounted by the serve command after store init
		},
	})
}

// MountRoutes mounts the projects.* methods.
func MountRoutes(r *gin.Engine, store registrystore.AuthoringStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/methods", auth)

	g.POST("/projects.insert", func(c *gin.Context) {
		var project model.Project
		if err := c.ShouldBindJSON(&project); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := store.InsertProject(c.Request.Context(), project)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"_id": id})
	})
	g.POST("/projects.get", func(c *gin.Context) {
		var req struct {
			ID string `json:"_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
			return
		}
		project, err := store.GetProject(c.Request.Context(), req.ID)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
	})
	g.POST("/projects.update", func(c *gin.Context) {
		var update registrystore.ProjectUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if update.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "_id is required"})
			return
		}
		project, err := store.UpdateProject(c.Request.Context(), update)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
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
