package migrations

import (
	"context"
	"fmt"

	"github.com/botfront/authoring-service/internal/botresponse"
	"github.com/botfront/authoring-service/internal/model"
	"github.com/botfront/authoring-service/internal/plugin/store/mongo"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type legacyProject struct {
	ID        string           `bson:"_id"`
	Templates []model.Template `bson:"templates"`
}

// v3: project-embedded templates become bot response documents. A project whose
// templates fail the dedupe integrity check keeps its templates.
func moveTemplatesToBotResponses(ctx context.Context, env *registrymigrate.Env) error {
	projects := env.DB.Collection(mongo.ProjectsCollection)
	responses := env.DB.Collection(mongo.BotResponsesCollection)

	skipped, err := forEach(ctx, projects, bson.M{"templates": bson.M{"$exists": true}}, func(p legacyProject) error {
		templates, err := botresponse.DedupeTemplates(p.ID, p.Templates)
		if err != nil {
			return fmt.Errorf("project %s: %w", p.ID, err)
		}
		for _, t := range templates {
			values := t.Values
			if values == nil {
				values = []model.ResponseValue{}
			}
			if _, err := responses.UpdateOne(ctx,
				bson.M{"key": t.Key, "projectId": t.ProjectID},
				bson.M{
					"$set":         bson.M{"key": t.Key, "projectId": t.ProjectID, "values": values},
					"$setOnInsert": bson.M{"_id": uuid.NewString()},
				},
				options.UpdateOne().SetUpsert(true),
			); err != nil {
				return fmt.Errorf("project %s: upsert %s: %w", p.ID, t.Key, err)
			}
		}
		if _, err := projects.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$unset": bson.M{"templates": ""}}); err != nil {
			return fmt.Errorf("project %s: %w", p.ID, err)
		}
		log.Info("Moved project templates", "project", p.ID, "templates", len(p.Templates), "responses", len(templates))
		return nil
	})
	if skipped > 0 {
		log.Error("The bot responses migration skipped projects", "count", skipped)
	}
	return err
}

// v5: multi-message sequences are joined into a single message.
func joinResponseSequences(ctx context.Context, env *registrymigrate.Env) error {
	responses := env.DB.Collection(mongo.BotResponsesCollection)
	_, err := forEach(ctx, responses, bson.M{}, func(r model.BotResponse) error {
		values, changed, err := botresponse.JoinValues(r.Values)
		if err != nil {
			return fmt.Errorf("response %s: %w", r.Key, err)
		}
		if !changed {
			return nil
		}
		_, err = responses.UpdateOne(ctx,
			bson.M{"projectId": r.ProjectID, "key": r.Key},
			bson.M{"$set": bson.M{"values": values}},
		)
		return err
	})
	return err
}

// v8 (responses): every bot response gets a text index.
func reindexResponses(ctx context.Context, env *registrymigrate.Env) error {
	responses := env.DB.Collection(mongo.BotResponsesCollection)
	_, err := forEach(ctx, responses, bson.M{}, func(r model.BotResponse) error {
		_, err := responses.UpdateOne(ctx,
			bson.M{"_id": r.ID},
			bson.M{"$set": bson.M{"textIndex": botresponse.IndexBotResponse(&r)}},
		)
		return err
	})
	return err
}
