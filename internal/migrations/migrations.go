// Package migrations holds the versioned data migrations of the authoring database.
// Steps register themselves with the migrate registry and run in version order.
package migrations

import (
	"context"
	"fmt"

	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func init() {
	for _, s := range []registrymigrate.Step{
		{Version: 1, Name: "instance-types", Up: setInstanceTypes},
		{Version: 2, Name: "default-domain", Up: setDefaultDomain},
		{Version: 3, Name: "project-templates-to-bot-responses", Up: moveTemplatesToBotResponses},
		{Version: 4, Name: "story-events", Up: setStoryEvents},
		{Version: 5, Name: "join-response-sequences", Up: joinResponseSequences},
		{Version: 6, Name: "activity-string-ids", Up: stringifyActivityIDs},
		{Version: 7, Name: "story-group-children", Up: setStoryGroupChildren},
		{Version: 8, Name: "text-indexes", Up: reindexResponsesAndStories},
		{Version: 9, Name: "story-index-and-events", Up: reindexStories},
	} {
		registrymigrate.RegisterStep(s)
	}
}

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

// forEach decodes every document matching filter and hands it to fn. Documents that
// fail to decode or to migrate are logged and skipped; the count of skipped documents
// is returned.
func forEach[T any](ctx context.Context, coll *mongo.Collection, filter any, fn func(doc T) error) (int, error) {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	skipped := 0
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			log.Warn("Migration skipped undecodable document", "collection", coll.Name(), "err", err)
			skipped++
			continue
		}
		if err := fn(doc); err != nil {
			log.Warn("Migration skipped document", "collection", coll.Name(), "err", err)
			skipped++
		}
	}
	if err := cur.Err(); err != nil {
		return skipped, fmt.Errorf("%s: %w", coll.Name(), err)
	}
	return skipped, nil
}
