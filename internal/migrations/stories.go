package migrations

import (
	"context"
	"fmt"
	"sort"

	"github.com/botfront/authoring-service/internal/model"
	"github.com/botfront/authoring-service/internal/plugin/store/mongo"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/botfront/authoring-service/internal/story"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// v4: every story gets its event list.
func setStoryEvents(ctx context.Context, env *registrymigrate.Env) error {
	stories := env.DB.Collection(mongo.StoriesCollection)
	_, err := forEach(ctx, stories, bson.M{}, func(s model.Story) error {
		events := story.AggregateEvents(&s)
		if events == nil {
			events = []string{}
		}
		_, err := stories.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": bson.M{"events": events}})
		return err
	})
	return err
}

// v7: story groups list their stories and projects list their story groups, intro groups first.
func setStoryGroupChildren(ctx context.Context, env *registrymigrate.Env) error {
	children := map[string][]string{}
	var projectIDs []string
	seenProject := map[string]bool{}
	if _, err := forEach(ctx, env.DB.Collection(mongo.StoriesCollection), bson.M{}, func(s model.Story) error {
		children[s.StoryGroupID] = append(children[s.StoryGroupID], s.ID)
		if !seenProject[s.ProjectID] {
			seenProject[s.ProjectID] = true
			projectIDs = append(projectIDs, s.ProjectID)
		}
		return nil
	}); err != nil {
		return err
	}

	groupsColl := env.DB.Collection(mongo.StoryGroupsCollection)
	var groups []model.StoryGroup
	if _, err := forEach(ctx, groupsColl, bson.M{}, func(g model.StoryGroup) error {
		groups = append(groups, g)
		return nil
	}); err != nil {
		return err
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].IntroStory && !groups[j].IntroStory })

	for _, g := range groups {
		ids := children[g.ID]
		if ids == nil {
			ids = []string{}
		}
		if _, err := groupsColl.UpdateOne(ctx,
			bson.M{"_id": g.ID},
			bson.M{"$set": bson.M{"isExpanded": g.IntroStory, "children": ids}},
		); err != nil {
			return fmt.Errorf("story group %s: %w", g.ID, err)
		}
	}

	projects := env.DB.Collection(mongo.ProjectsCollection)
	for _, projectID := range projectIDs {
		ids := []string{}
		for _, g := range groups {
			if g.ProjectID == projectID {
				ids = append(ids, g.ID)
			}
		}
		if _, err := projects.UpdateOne(ctx,
			bson.M{"_id": projectID},
			bson.M{"$set": bson.M{"storyGroups": ids}},
		); err != nil {
			return fmt.Errorf("project %s: %w", projectID, err)
		}
	}
	return nil
}

func indexStories(ctx context.Context, env *registrymigrate.Env, includeEvents bool) error {
	stories := env.DB.Collection(mongo.StoriesCollection)
	_, err := forEach(ctx, stories, bson.M{}, func(s model.Story) error {
		idx := story.IndexStory(&s, story.IndexOptions{IncludeEvents: includeEvents})
		set := bson.M{"textIndex": idx.TextIndex}
		if includeEvents {
			events := idx.Events
			if events == nil {
				events = []string{}
			}
			set["events"] = events
		}
		_, err := stories.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": set})
		return err
	})
	return err
}

// v8: text indexes on bot responses and stories.
func reindexResponsesAndStories(ctx context.Context, env *registrymigrate.Env) error {
	if err := reindexResponses(ctx, env); err != nil {
		return err
	}
	return indexStories(ctx, env, false)
}

// v9: stories get both their text index and their events.
func reindexStories(ctx context.Context, env *registrymigrate.Env) error {
	return indexStories(ctx, env, true)
}
