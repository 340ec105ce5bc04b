package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/botfront/authoring-service/internal/model"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const controlID = "control"

// control persists the migration version and run lock in a single document.
// A lock held longer than staleAfter may be taken over; zero disables takeover.
type control struct {
	coll       *mongo.Collection
	staleAfter time.Duration
	now        func() time.Time
}

func newControl(coll *mongo.Collection, staleAfter time.Duration) *control {
	return &control{coll: coll, staleAfter: staleAfter, now: time.Now}
}

func (c *control) ensure(ctx context.Context) error {
	_, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": controlID},
		bson.M{"$setOnInsert": bson.M{"version": 0, "locked": false}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("migration control: %w", err)
	}
	return nil
}

func (c *control) Lock(ctx context.Context) (bool, error) {
	if err := c.ensure(ctx); err != nil {
		return false, err
	}
	now := c.now().UTC()
	filter := bson.M{"_id": controlID, "locked": false}
	if c.staleAfter > 0 {
		filter = bson.M{"_id": controlID, "$or": bson.A{
			bson.M{"locked": false},
			bson.M{"lockedAt": bson.M{"$lt": now.Add(-c.staleAfter)}},
		}}
	}

	var before model.MigrationControl
	err := c.coll.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"locked": true, "lockedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migration control: lock: %w", err)
	}
	if before.Locked {
		log.Warn("Took over stale migration lock", "lockedAt", before.LockedAt, "staleAfter", c.staleAfter)
	}
	return true, nil
}

func (c *control) Unlock(ctx context.Context) error {
	_, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": controlID},
		bson.M{"$set": bson.M{"locked": false}, "$unset": bson.M{"lockedAt": ""}},
	)
	if err != nil {
		return fmt.Errorf("migration control: unlock: %w", err)
	}
	return nil
}

func (c *control) Status(ctx context.Context) (model.MigrationControl, error) {
	var doc model.MigrationControl
	err := c.coll.FindOne(ctx, bson.M{"_id": controlID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MigrationControl{}, nil
	}
	if err != nil {
		return model.MigrationControl{}, fmt.Errorf("migration control: %w", err)
	}
	return doc, nil
}

func (c *control) SetVersion(ctx context.Context, version int) error {
	_, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": controlID},
		bson.M{"$set": bson.M{"version": version}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("migration control: set version %d: %w", version, err)
	}
	return nil
}

var _ registrymigrate.Control = (*control)(nil)
