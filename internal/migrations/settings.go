package migrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/botfront/authoring-service/internal/model"
	"github.com/botfront/authoring-service/internal/plugin/store/mongo"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type defaultSettings struct {
	Settings struct {
		Private struct {
			DefaultDefaultDomain *string `json:"defaultDefaultDomain"`
		} `json:"private"`
	} `json:"settings"`
}

// loadDefaultSettings reads the first default settings file for the deployment
// that can be read and parsed, falling back to the generic file.
func loadDefaultSettings(cfg *config.Config) (*defaultSettings, string, error) {
	var errs []error
	for _, path := range cfg.DefaultSettingsFiles() {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var s defaultSettings
		if err := json.Unmarshal(data, &s); err != nil {
			log.Warn("Skipping unreadable default settings", "file", path, "err", err)
			errs = append(errs, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		return &s, path, nil
	}
	return nil, "", fmt.Errorf("no usable default settings file: %w", errors.Join(errs...))
}

// v1: instances registered before instance types existed are NLU instances.
func setInstanceTypes(ctx context.Context, env *registrymigrate.Env) error {
	res, err := env.DB.Collection(mongo.InstancesCollection).UpdateMany(ctx,
		bson.M{"type": nil},
		bson.M{"$set": bson.M{"type": bson.A{"nlu"}}},
	)
	if err != nil {
		return fmt.Errorf("set instance types: %w", err)
	}
	log.Info("Set instance types", "updated", res.ModifiedCount)
	return nil
}

// v2: store the default domain in the global settings and on every project.
func setDefaultDomain(ctx context.Context, env *registrymigrate.Env) error {
	settings, path, err := loadDefaultSettings(env.Config)
	if err != nil {
		return err
	}
	if settings.Settings.Private.DefaultDefaultDomain == nil {
		return fmt.Errorf("%s: settings.private.defaultDefaultDomain is missing", path)
	}
	domain := *settings.Settings.Private.DefaultDefaultDomain
	log.Info("Loaded default settings", "file", path)

	if _, err := env.DB.Collection(mongo.SettingsCollection).UpdateOne(ctx,
		bson.M{"_id": model.GlobalSettingsID},
		bson.M{"$set": bson.M{"settings.private.defaultDefaultDomain": domain}},
	); err != nil {
		return fmt.Errorf("update global settings: %w", err)
	}

	if _, err := env.DB.Collection(mongo.ProjectsCollection).UpdateMany(ctx,
		bson.M{},
		bson.M{"$set": bson.M{"defaultDomain": model.Domain{Content: domain}}},
	); err != nil {
		return fmt.Errorf("update project default domains: %w", err)
	}
	return nil
}
