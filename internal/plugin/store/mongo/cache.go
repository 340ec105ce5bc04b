package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/botfront/authoring-service/internal/model"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/security"
	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// requireProject loads a project through the project cache.
func (s *MongoStore) requireProject(ctx context.Context, projectID string) (*model.Project, error) {
	if projectID == "" {
		return nil, &registrystore.ValidationError{Field: "projectId", Message: "is required"}
	}
	if s.cache != nil && s.cache.Available() {
		cached, err := s.cache.Get(ctx, projectID)
		if err != nil {
			log.Warn("Project cache get failed", "project", projectID, "err", err)
		}
		if cached != nil {
			security.CacheHit(true)
			return cached, nil
		}
		security.CacheHit(false)
	}

	var project model.Project
	err := s.projects().FindOne(ctx, bson.M{"_id": projectID}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "project", ID: projectID}
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	if s.cache != nil && s.cache.Available() {
		if err := s.cache.Set(ctx, project, 0); err != nil {
			log.Warn("Project cache set failed", "project", projectID, "err", err)
		}
	}
	return &project, nil
}

func (s *MongoStore) clearProjects(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		log.Warn("Project cache clear failed", "err", err)
	}
}

func (s *MongoStore) invalidateProject(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remove(ctx, projectID); err != nil {
		log.Warn("Project cache remove failed", "project", projectID, "err", err)
	}
}
