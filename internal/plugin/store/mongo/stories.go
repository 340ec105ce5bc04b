package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/botfront/authoring-service/internal/model"
	registrystore "github.com/botfront/authoring-service/internal/registry/store"
	"github.com/botfront/authoring-service/internal/story"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type storySummaryDoc struct {
	ID           string `bson:"_id"`
	Title        string `bson:"title"`
	StoryGroupID string `bson:"storyGroupId"`
}

// reindex recomputes the derived fields of a story before it is written.
func reindex(st *model.Story) {
	idx := story.IndexStory(st, story.IndexOptions{IncludeEvents: true})
	st.TextIndex = &idx.TextIndex
	st.Events = idx.Events
	if st.Events == nil {
		st.Events = []string{}
	}
	if st.Branches == nil {
		st.Branches = []model.Branch{}
	}
	now := time.Now().UTC()
	st.UpdatedAt = &now
}

func caseInsensitive(query string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
}

// --- Stories ---

func (s *MongoStore) InsertStories(ctx context.Context, stories []model.Story) ([]string, error) {
	if len(stories) == 0 {
		return nil, &registrystore.ValidationError{Field: "stories", Message: "at least one story is required"}
	}
	checked := map[string]bool{}
	docs := make([]any, len(stories))
	ids := make([]string, len(stories))
	for i := range stories {
		st := stories[i]
		if st.ProjectID == "" {
			return nil, &registrystore.ValidationError{Field: "projectId", Message: "is required"}
		}
		if !checked[st.ProjectID] {
			if _, err := s.requireProject(ctx, st.ProjectID); err != nil {
				return nil, err
			}
			checked[st.ProjectID] = true
		}
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		reindex(&st)
		docs[i] = st
		ids[i] = st.ID
	}

	if _, err := s.stories().InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &registrystore.ConflictError{Message: "story already exists", Code: "duplicate_story"}
		}
		return nil, fmt.Errorf("insert stories: %w", err)
	}

	for i := range stories {
		if groupID := stories[i].StoryGroupID; groupID != "" {
			s.attachToGroup(ctx, stories[i].ProjectID, groupID, ids[i])
		}
	}
	return ids, nil
}

func (s *MongoStore) UpdateStories(ctx context.Context, updates []story.Update) (int, error) {
	if len(updates) == 0 {
		return 0, &registrystore.ValidationError{Field: "stories", Message: "at least one update is required"}
	}
	projectID := updates[0].ProjectID
	for _, u := range updates {
		if u.ID == "" {
			return 0, &registrystore.ValidationError{Field: "_id", Message: "is required"}
		}
		if u.ProjectID == "" || u.ProjectID != projectID {
			return 0, &registrystore.ValidationError{Field: "projectId", Message: "all stories must belong to the same project"}
		}
	}

	updated := 0
	for _, u := range updates {
		if err := s.updateStory(ctx, u); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (s *MongoStore) updateStory(ctx context.Context, u story.Update) error {
	filter := bson.M{"_id": u.ID, "projectId": u.ProjectID}
	var st model.Story
	if err := s.stories().FindOne(ctx, filter).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &registrystore.NotFoundError{Resource: "story", ID: u.ID}
		}
		return fmt.Errorf("update story: %w", err)
	}
	previousGroup := st.StoryGroupID

	if err := story.ApplyUpdate(&st, u); err != nil {
		var bnf *story.BranchNotFoundError
		switch {
		case errors.Is(err, story.ErrInvalidPath):
			return &registrystore.ValidationError{Field: "path", Message: err.Error()}
		case errors.As(err, &bnf):
			return &registrystore.NotFoundError{Resource: "branch", ID: bnf.ID}
		default:
			return err
		}
	}
	reindex(&st)

	res, err := s.stories().ReplaceOne(ctx, filter, st)
	if err != nil {
		return fmt.Errorf("update story: %w", err)
	}
	if res.MatchedCount == 0 {
		return &registrystore.NotFoundError{Resource: "story", ID: u.ID}
	}

	if st.StoryGroupID != previousGroup {
		if previousGroup != "" {
			s.detachFromGroup(ctx, st.ProjectID, previousGroup, st.ID)
		}
		if st.StoryGroupID != "" {
			s.attachToGroup(ctx, st.ProjectID, st.StoryGroupID, st.ID)
		}
	}
	return nil
}

func (s *MongoStore) DeleteStory(ctx context.Context, projectID string, storyID string) error {
	var st model.Story
	err := s.stories().FindOneAndDelete(ctx, bson.M{"_id": storyID, "projectId": projectID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &registrystore.NotFoundError{Resource: "story", ID: storyID}
	}
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if st.StoryGroupID != "" {
		s.detachFromGroup(ctx, projectID, st.StoryGroupID, storyID)
	}
	return nil
}

func (s *MongoStore) GetStory(ctx context.Context, projectID string, storyID string) (*model.Story, error) {
	var st model.Story
	err := s.stories().FindOne(ctx, bson.M{"_id": storyID, "projectId": projectID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "story", ID: storyID}
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return &st, nil
}

func (s *MongoStore) ListStories(ctx context.Context, projectID string, storyGroupID *string) ([]model.Story, error) {
	filter := bson.M{"projectId": projectID}
	if storyGroupID != nil {
		filter["storyGroupId"] = *storyGroupID
	}
	cur, err := s.stories().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	stories := []model.Story{}
	if err := cur.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

func (s *MongoStore) SearchStories(ctx context.Context, projectID string, query string) ([]registrystore.StorySummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &registrystore.ValidationError{Field: "query", Message: "is required"}
	}
	filter := bson.M{
		"projectId": projectID,
		"$or": bson.A{
			bson.M{"textIndex.contents": caseInsensitive(query)},
			bson.M{"textIndex.info": caseInsensitive(query)},
		},
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "title": 1, "storyGroupId": 1}).
		SetSort(bson.D{{Key: "title", Value: 1}})
	cur, err := s.stories().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search stories: %w", err)
	}
	var docs []storySummaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("search stories: %w", err)
	}
	result := make([]registrystore.StorySummary, len(docs))
	for i, d := range docs {
		result[i] = registrystore.StorySummary{ID: d.ID, Title: d.Title, StoryGroupID: d.StoryGroupID}
	}
	return result, nil
}

// attachToGroup and detachFromGroup keep StoryGroup.Children in step with story writes.
// A failure leaves the story written and is only logged.
func (s *MongoStore) attachToGroup(ctx context.Context, projectID, groupID, storyID string) {
	_, err := s.storyGroups().UpdateOne(ctx,
		bson.M{"_id": groupID, "projectId": projectID},
		bson.M{"$addToSet": bson.M{"children": storyID}},
	)
	if err != nil {
		log.Warn("Failed to add story to group", "story", storyID, "group", groupID, "err", err)
	}
}

func (s *MongoStore) detachFromGroup(ctx context.Context, projectID, groupID, storyID string) {
	_, err := s.storyGroups().UpdateOne(ctx,
		bson.M{"_id": groupID, "projectId": projectID},
		bson.M{"$pull": bson.M{"children": storyID}},
	)
	if err != nil {
		log.Warn("Failed to remove story from group", "story", storyID, "group", groupID, "err", err)
	}
}

// --- Story groups ---

func (s *MongoStore) InsertStoryGroup(ctx context.Context, group model.StoryGroup) (string, error) {
	if group.ProjectID == "" {
		return "", &registrystore.ValidationError{Field: "projectId", Message: "is required"}
	}
	if strings.TrimSpace(group.Name) == "" {
		return "", &registrystore.ValidationError{Field: "name", Message: "is required"}
	}
	if _, err := s.requireProject(ctx, group.ProjectID); err != nil {
		return "", err
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.Children == nil {
		group.Children = []string{}
	}
	if _, err := s.storyGroups().InsertOne(ctx, group); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", &registrystore.ConflictError{Message: "story group already exists", Code: "duplicate_story_group"}
		}
		return "", fmt.Errorf("insert story group: %w", err)
	}

	// Intro groups are listed first.
	push := bson.M{"$each": bson.A{group.ID}}
	if group.IntroStory {
		push["$position"] = 0
	}
	if _, err := s.projects().UpdateOne(ctx,
		bson.M{"_id": group.ProjectID},
		bson.M{"$push": bson.M{"storyGroups": push}},
	); err != nil {
		return "", fmt.Errorf("insert story group: %w", err)
	}
	s.invalidateProject(ctx, group.ProjectID)
	return group.ID, nil
}

func (s *MongoStore) UpdateStoryGroup(ctx context.Context, update registrystore.StoryGroupUpdate) error {
	set := bson.M{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return &registrystore.ValidationError{Field: "name", Message: "must not be empty"}
		}
		set["name"] = *update.Name
	}
	if update.IsExpanded != nil {
		set["isExpanded"] = *update.IsExpanded
	}
	if update.Children != nil {
		set["children"] = *update.Children
	}
	if len(set) == 0 {
		return &registrystore.ValidationError{Field: "storyGroup", Message: "nothing to update"}
	}
	res, err := s.storyGroups().UpdateOne(ctx,
		bson.M{"_id": update.ID, "projectId": update.ProjectID},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("update story group: %w", err)
	}
	if res.MatchedCount == 0 {
		return &registrystore.NotFoundError{Resource: "storyGroup", ID: update.ID}
	}
	return nil
}

func (s *MongoStore) DeleteStoryGroup(ctx context.Context, projectID string, groupID string) error {
	res, err := s.storyGroups().DeleteOne(ctx, bson.M{"_id": groupID, "projectId": projectID})
	if err != nil {
		return fmt.Errorf("delete story group: %w", err)
	}
	if res.DeletedCount == 0 {
		return &registrystore.NotFoundError{Resource: "storyGroup", ID: groupID}
	}
	if _, err := s.stories().DeleteMany(ctx, bson.M{"storyGroupId": groupID, "projectId": projectID}); err != nil {
		return fmt.Errorf("delete story group stories: %w", err)
	}
	if _, err := s.projects().UpdateOne(ctx,
		bson.M{"_id": projectID},
		bson.M{"$pull": bson.M{"storyGroups": groupID}},
	); err != nil {
		return fmt.Errorf("delete story group: %w", err)
	}
	s.invalidateProject(ctx, projectID)
	return nil
}

// ListStoryGroups returns the project's groups in project order. Groups the project
// does not reference follow, by name.
func (s *MongoStore) ListStoryGroups(ctx context.Context, projectID string) ([]model.StoryGroup, error) {
	project, err := s.requireProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cur, err := s.storyGroups().Find(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("list story groups: %w", err)
	}
	groups := []model.StoryGroup{}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("list story groups: %w", err)
	}

	position := make(map[string]int, len(project.StoryGroups))
	for i, id := range project.StoryGroups {
		position[id] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		pi, iok := position[groups[i].ID]
		pj, jok := position[groups[j].ID]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return groups[i].Name < groups[j].Name
		}
	})
	return groups, nil
}
