package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// ListenerConfig holds the network/TLS settings for the HTTP listener.
type ListenerConfig struct {
	Port              int
	TLSCertFile       string
	TLSKeyFile        string
	ReadHeaderTimeout time.Duration
}

// TLSEnabled reports whether both a certificate and a key were configured.
func (l ListenerConfig) TLSEnabled() bool {
	return l.TLSCertFile != "" && l.TLSKeyFile != ""
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

const (
	ModeProd    = "prod"
	ModeTesting = "testing"
)

// Deployment modes, as used to pick the default settings file.
const (
	DeploymentProduction  = "production"
	DeploymentDevelopment = "development"
	DeploymentTest        = "test"
)

// Config holds all configuration for the authoring service.
type Config struct {
	// Mode controls security behavior: "prod" (default) or "testing".
	// In testing mode, requests without credentials are accepted as an anonymous user.
	Mode string

	// Database
	DBURL  string
	DBName string

	// Datastore backend type
	DatastoreType string // "mongo"

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// A migration lock older than this is considered abandoned and may be
	// taken over. Zero keeps locks until they are released.
	MigrationLockTimeout time.Duration

	// Cache backend type
	CacheType string // "none", "local" or "redis"

	// Redis
	RedisURL string

	// How long cached projects stay valid.
	CacheTTL time.Duration

	// Maximum number of projects held by the local cache.
	LocalCacheMaxItems int64

	// Directory holding default-settings*.json files.
	AssetsDir string

	// Orchestrator names the deployment flavour (docker-compose, kubernetes, ...).
	Orchestrator string

	// DeploymentMode is one of production, development or test.
	DeploymentMode string

	// OIDC
	OIDCIssuer       string
	OIDCDiscoveryURL string

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	MetricsLabels string

	// Server
	Listener ListenerConfig
	// ManagementAccessLog enables HTTP access logging for /health, /ready and /metrics.
	ManagementAccessLog bool
	CORSEnabled         bool
	CORSOrigins         string

	// Security
	// APIKeys maps API key values to client IDs (BOTFRONT_API_KEYS_<CLIENT_ID>=<key>).
	APIKeys       map[string]string // key value → clientId
	AdminOIDCRole string
	AdminUsers    string
	AdminClients  string

	// Body size limit (bytes)
	MaxBodySize int64

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int

	// DB pool
	DBMaxOpenConns int
	DBMaxIdleConns int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                    ModeProd,
		DBName:                  "bf",
		DatastoreType:           "mongo",
		DatastoreMigrateAtStart: true,
		MigrationLockTimeout:    30 * time.Minute,
		CacheType:               "local",
		CacheTTL:                5 * time.Minute,
		LocalCacheMaxItems:      10_000,
		AssetsDir:               "assets",
		DeploymentMode:          DeploymentProduction,
		Listener: ListenerConfig{
			Port:              3000,
			ReadHeaderTimeout: 5 * time.Second,
		},
		AdminOIDCRole:  "admin",
		MaxBodySize:    10 * 1024 * 1024,
		DrainTimeout:   30,
		DBMaxOpenConns: 25,
		DBMaxIdleConns: 5,
	}
}

// DefaultSettingsFiles returns the default settings files to try, most specific first.
// The name is default-settings.<orchestrator>[.dev|.ci].json, with docker-compose
// as the orchestrator when none is configured.
func (c *Config) DefaultSettingsFiles() []string {
	orchestrator := "docker-compose"
	dir := "."
	mode := ""
	if c != nil {
		if o := strings.TrimSpace(c.Orchestrator); o != "" {
			orchestrator = o
		}
		if d := strings.TrimSpace(c.AssetsDir); d != "" {
			dir = d
		}
		mode = c.DeploymentMode
	}
	name := "default-settings." + orchestrator
	switch mode {
	case DeploymentDevelopment:
		name += ".dev"
	case DeploymentTest:
		name += ".ci"
	}
	return []string{
		filepath.Join(dir, name+".json"),
		filepath.Join(dir, "default-settings.json"),
	}
}
