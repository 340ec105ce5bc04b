package admin

import (
	"errors"
	"io"
	"net/http"

	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/security"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts admin API routes.
func MountRoutes(r *gin.Engine, store registrystore.AuthoringStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/admin", auth, security.AdminAuditMiddleware(), security.RequireAdminRole())

	g.GET("/migrations", func(c *gin.Context) {
		status, err := store.MigrationStatus(c.Request.Context())
		if err != nil {
			log.Error("Failed to read migration status", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, status)
	})
	g.POST("/migrations", func(c *gin.Context) {
		runMigrations(c, store)
	})
}

func runMigrations(c *gin.Context, store registrystore.AuthoringStore) {
	var req struct {
		To    *int `json:"to"`
		Rerun bool `json:"rerun"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := registrymigrate.Options{To: registrymigrate.Latest, Rerun: req.Rerun}
	if req.To != nil {
		opts.To = *req.To
	}

	status, err := store.Migrate(c.Request.Context(), opts)
	if err != nil {
		log.Error("Migration run failed", "to", opts.To, "rerun", opts.Rerun, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "migration_failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
