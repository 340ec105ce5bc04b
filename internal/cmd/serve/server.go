package serve

import (
	"context"
	"fmt"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/botfront/authoring-service/internal/plugin/route/admin"
	"github.com/botfront/authoring-service/internal/plugin/route/botresponses"
	"github.com/botfront/authoring-service/internal/plugin/route/projects"
	"github.com/botfront/authoring-service/internal/plugin/route/stories"
	"github.com/botfront/authoring-service/internal/plugin/route/storygroups"
	routesystem "github.com/botfront/authoring-service/internal/plugin/route/system"
	storemetrics "github.com/botfront/authoring-service/internal/plugin/store/metrics"
	registrycache "github.com/botfront/authoring-service/internal/registry/cache"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	registryroute "github.com/botfront/authoring-service/internal/registry/route"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/security"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config  *config.Config
	Store   registrystore.AuthoringStore
	Router  *gin.Engine
	Running *RunningServer
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Running.Close(ctx)
}

// StartServer initializes all subsystems and starts the HTTP listener.
// Use cfg.Listener.Port=0 for a random port. Actual port: Server.Running.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting authoring service",
		"httpPort", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"cache", cfg.CacheType,
		"mode", cfg.Mode,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize cache and inject into context so store loaders can read it.
	if cacheLoader, err := registrycache.Select(cfg.CacheType); err != nil {
		log.Warn("Cache not available", "cache", cfg.CacheType, "err", err)
	} else if projectCache, err := cacheLoader(ctx); err != nil {
		log.Warn("Failed to initialize cache", "cache", cfg.CacheType, "err", err)
	} else {
		ctx = registrycache.WithProjectCacheContext(ctx, projectCache)
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)

	// Set up gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ManagementAccessLog {
		router.Use(security.AccessLogMiddleware())
	} else {
		router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	for _, loader := range registryroute.MainRouteLoaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}
	for _, loader := range registryroute.ManagementRouteLoaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load management routes: %w", err)
		}
	}

	resolver := security.NewTokenResolver(ctx, cfg)
	auth := security.AuthMiddleware(resolver)

	stories.MountRoutes(router, store, auth)
	storygroups.MountRoutes(router, store, auth)
	botresponses.MountRoutes(router, store, auth)
	projects.MountRoutes(router, store, auth)
	admin.MountRoutes(router, store, auth)

	running, err := StartHTTP(ctx, cfg.Listener, router)
	if err != nil {
		return nil, err
	}

	log.Info("Server listening", "port", running.Port, "tls", running.TLS)

	routesystem.MarkReady()
	return &Server{
		Config:  cfg,
		Store:   store,
		Router:  router,
		Running: running,
	}, nil
}
