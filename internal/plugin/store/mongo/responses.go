package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/botfront/authoring-service/internal/botresponse"
	"github.com/botfront/authoring-service/internal/model"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const responseKeyPrefix = "utter_"

// --- Bot responses ---

func (s *MongoStore) UpsertBotResponse(ctx context.Context, resp model.BotResponse) (*model.BotResponse, error) {
	if resp.ProjectID == "" {
		return nil, &registrystore.ValidationError{Field: "projectId", Message: "is required"}
	}
	if !strings.HasPrefix(resp.Key, responseKeyPrefix) || len(resp.Key) == len(responseKeyPrefix) {
		return nil, &registrystore.ValidationError{Field: "key", Message: "must start with " + responseKeyPrefix}
	}
	if _, err := s.requireProject(ctx, resp.ProjectID); err != nil {
		return nil, err
	}
	if resp.Values == nil {
		resp.Values = []model.ResponseValue{}
	}
	resp.TextIndex = botresponse.IndexBotResponse(&resp)

	id := resp.ID
	if id == "" {
		id = uuid.NewString()
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var saved model.BotResponse
	err := s.botResponses().FindOneAndUpdate(ctx,
		bson.M{"projectId": resp.ProjectID, "key": resp.Key},
		bson.M{
			"$set":         bson.M{"values": resp.Values, "textIndex": resp.TextIndex},
			"$setOnInsert": bson.M{"_id": id},
		},
		opts,
	).Decode(&saved)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &registrystore.ConflictError{Message: "bot response already exists", Code: "duplicate_response"}
		}
		return nil, fmt.Errorf("upsert bot response: %w", err)
	}
	return &saved, nil
}

func (s *MongoStore) GetBotResponse(ctx context.Context, projectID string, key string) (*model.BotResponse, error) {
	var resp model.BotResponse
	err := s.botResponses().FindOne(ctx, bson.M{"projectId": projectID, "key": key}).Decode(&resp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "botResponse", ID: key}
	}
	if err != nil {
		return nil, fmt.Errorf("get bot response: %w", err)
	}
	return &resp, nil
}

func (s *MongoStore) DeleteBotResponse(ctx context.Context, projectID string, key string) error {
	res, err := s.botResponses().DeleteOne(ctx, bson.M{"projectId": projectID, "key": key})
	if err != nil {
		return fmt.Errorf("delete bot response: %w", err)
	}
	if res.DeletedCount == 0 {
		return &registrystore.NotFoundError{Resource: "botResponse", ID: key}
	}
	return nil
}

func (s *MongoStore) ListBotResponses(ctx context.Context, projectID string, query *string) ([]model.BotResponse, error) {
	filter := bson.M{"projectId": projectID}
	if query != nil && strings.TrimSpace(*query) != "" {
		filter["textIndex"] = caseInsensitive(strings.TrimSpace(*query))
	}
	cur, err := s.botResponses().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list bot responses: %w", err)
	}
	responses := []model.BotResponse{}
	if err := cur.All(ctx, &responses); err != nil {
		return nil, fmt.Errorf("list bot responses: %w", err)
	}
	return responses, nil
}

// --- Projects ---

func (s *MongoStore) InsertProject(ctx context.Context, project model.Project) (string, error) {
	if strings.TrimSpace(project.Name) == "" {
		return "", &registrystore.ValidationError{Field: "name", Message: "is required"}
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.DefaultLanguage == "" {
		project.DefaultLanguage = "en"
	}
	if project.StoryGroups == nil {
		project.StoryGroups = []string{}
	}
	if _, err := s.projects().InsertOne(ctx, project); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", &registrystore.ConflictError{Message: "project already exists", Code: "duplicate_project"}
		}
		return "", fmt.Errorf("insert project: %w", err)
	}
	return project.ID, nil
}

func (s *MongoStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	return s.requireProject(ctx, projectID)
}

func (s *MongoStore) UpdateProject(ctx context.Context, update registrystore.ProjectUpdate) (*model.Project, error) {
	set := bson.M{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, &registrystore.ValidationError{Field: "name", Message: "must not be empty"}
		}
		set["name"] = *update.Name
	}
	if update.DefaultLanguage != nil {
		set["defaultLanguage"] = *update.DefaultLanguage
	}
	if update.DefaultDomain != nil {
		set["defaultDomain"] = *update.DefaultDomain
	}
	if update.StoryGroups != nil {
		set["storyGroups"] = *update.StoryGroups
	}
	if len(set) == 0 {
		return nil, &registrystore.ValidationError{Field: "project", Message: "nothing to update"}
	}

	var project model.Project
	err := s.projects().FindOneAndUpdate(ctx,
		bson.M{"_id": update.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "project", ID: update.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.invalidateProject(ctx, update.ID)
	return &project, nil
}
