package migrations

import (
	"context"
	"fmt"

	"github.com/botfront/authoring-service/internal/plugin/store/mongo"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// v6: activities keyed by an ObjectID are re-created under its hex string. The copy is
// written before the original is removed.
func stringifyActivityIDs(ctx context.Context, env *registrymigrate.Env) error {
	activities := env.DB.Collection(mongo.ActivitiesCollection)
	skipped, err := forEach(ctx, activities, bson.M{"_id": bson.M{"$type": "objectId"}}, func(doc bson.D) error {
		var oid bson.ObjectID
		copied := make(bson.D, 0, len(doc))
		for _, e := range doc {
			if e.Key == "_id" {
				id, ok := e.Value.(bson.ObjectID)
				if !ok {
					return fmt.Errorf("activity id is %T, not an ObjectID", e.Value)
				}
				oid = id
				continue
			}
			copied = append(copied, e)
		}
		copied = append(bson.D{{Key: "_id", Value: oid.Hex()}}, copied...)

		if _, err := activities.InsertOne(ctx, copied); err != nil {
			return fmt.Errorf("activity %s: %w", oid.Hex(), err)
		}
		if _, err := activities.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
			return fmt.Errorf("activity %s: %w", oid.Hex(), err)
		}
		return nil
	})
	if skipped > 0 {
		log.Error("Some activities could not be migrated", "count", skipped)
	}
	return err
}
