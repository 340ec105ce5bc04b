package mongo

import (
	"context"
	"fmt"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/botfront/authoring-service/internal/model"
	registrycache "github.com/botfront/authoring-service/internal/registry/cache"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names shared with the authoring web app.
const (
	StoriesCollection      = "stories"
	StoryGroupsCollection  = "storyGroups"
	ProjectsCollection     = "projects"
	BotResponsesCollection = "botResponses"
	ActivitiesCollection   = "activities"
	SettingsCollection     = "admin_settings"
	InstancesCollection    = "nlu_instances"
	MigrationsCollection   = "migrations"
	defaultDatabaseName    = "bf"
	datastoreType          = "mongo"
	schemaMigratorOrder    = 100
	versionedMigratorOrder = 200
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: datastoreType,
		Loader: func(ctx context.Context) (registrystore.AuthoringStore, error) {
			cfg := config.FromContext(ctx)
			client, err := connect(ctx, cfg)
			if err != nil {
				return nil, err
			}
			store := &MongoStore{
				client: client,
				db:     client.Database(databaseName(cfg)),
				cfg:    cfg,
				cache:  registrycache.ProjectCacheFromContext(ctx),
			}
			// Startup migrations ran before the cache was loaded; entries written
			// by a previous process may predate them.
			if migratorEnabled(cfg) {
				store.clearProjects(ctx)
			}
			return store, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: schemaMigratorOrder, Migrator: &mongoMigrator{}})
	registrymigrate.Register(registrymigrate.Plugin{Order: versionedMigratorOrder, Migrator: &versionedMigrator{}})
}

func connect(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.DBURL)
	if cfg.DBMaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.DBMaxOpenConns))
	}
	if cfg.DBMaxIdleConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.DBMaxIdleConns))
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func databaseName(cfg *config.Config) string {
	if cfg != nil && cfg.DBName != "" {
		return cfg.DBName
	}
	return defaultDatabaseName
}

func migratorEnabled(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.DatastoreMigrateAtStart && cfg.DatastoreType == datastoreType
}

type mongoMigrator struct{}

func (m *mongoMigrator) Name() string { return "mongo-schema" }
func (m *mongoMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if !migratorEnabled(cfg) {
		return nil
	}

	log.Info("Running migration", "name", m.Name())
	client, err := connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mongo migration: %w", err)
	}
	defer client.Disconnect(ctx)

	if err := ensureIndexes(ctx, client.Database(databaseName(cfg))); err != nil {
		return err
	}
	log.Info("MongoDB schema migration complete")
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	collections := map[string][]mongo.IndexModel{
		StoriesCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
			{Keys: bson.D{{Key: "storyGroupId", Value: 1}}},
			{Keys: bson.D{{Key: "textIndex.contents", Value: "text"}, {Key: "textIndex.info", Value: "text"}}},
		},
		StoryGroupsCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
		},
		BotResponsesCollection: {
			{
				Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_key_per_project"),
			},
		},
		ActivitiesCollection: {
			{Keys: bson.D{{Key: "modelId", Value: 1}}},
		},
		InstancesCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
		},
		ProjectsCollection:   nil,
		SettingsCollection:   nil,
		MigrationsCollection: nil,
	}

	for name, indexes := range collections {
		// Ensure collection exists; an existing collection is not an error.
		_ = db.CreateCollection(ctx, name)
		if len(indexes) > 0 {
			if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
				return fmt.Errorf("mongo migration: failed to create indexes for %s: %w", name, err)
			}
		}
	}
	return nil
}

// versionedMigrator runs the registered data migrations up to the version in the context options.
type versionedMigrator struct{}

func (m *versionedMigrator) Name() string { return "mongo-data" }
func (m *versionedMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if !migratorEnabled(cfg) {
		return nil
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mongo migration: %w", err)
	}
	defer client.Disconnect(ctx)

	_, err = runVersioned(ctx, client.Database(databaseName(cfg)), cfg, registrymigrate.OptionsFromContext(ctx))
	return err
}

func runVersioned(ctx context.Context, db *mongo.Database, cfg *config.Config, opts registrymigrate.Options) (*model.MigrationControl, error) {
	steps, err := registrymigrate.Steps()
	if err != nil {
		return nil, err
	}
	control := newControl(db.Collection(MigrationsCollection), cfg.MigrationLockTimeout)
	runner, err := registrymigrate.NewRunner(control, &registrymigrate.Env{DB: db, Config: cfg}, steps)
	if err != nil {
		return nil, err
	}
	if err := runner.MigrateTo(ctx, opts); err != nil {
		return nil, err
	}
	status, err := control.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// MongoStore implements AuthoringStore using MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    *config.Config
	cache  registrycache.ProjectCache
}

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

// --- Collection accessors ---

func (s *MongoStore) stories() *mongo.Collection      { return s.db.Collection(StoriesCollection) }
func (s *MongoStore) storyGroups() *mongo.Collection  { return s.db.Collection(StoryGroupsCollection) }
func (s *MongoStore) projects() *mongo.Collection     { return s.db.Collection(ProjectsCollection) }
func (s *MongoStore) botResponses() *mongo.Collection { return s.db.Collection(BotResponsesCollection) }

// --- Migrations ---

func (s *MongoStore) MigrationStatus(ctx context.Context) (*model.MigrationControl, error) {
	status, err := newControl(s.db.Collection(MigrationsCollection), 0).Status(ctx)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *MongoStore) Migrate(ctx context.Context, opts registrymigrate.Options) (*model.MigrationControl, error) {
	status, err := runVersioned(ctx, s.db, s.cfg, opts)
	// Steps rewrite project documents, including those of a run that failed part way.
	s.clearProjects(ctx)
	return status, err
}

var _ registrystore.AuthoringStore = (*MongoStore)(nil)
