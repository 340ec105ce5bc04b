package store

import (
	"context"
	"fmt"

	"github.com/botfront/authoring-service/internal/model"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/botfront/authoring-service/internal/story"
)

// StorySummary is a lightweight story representation for search results.
type StorySummary struct {
	ID           string `json:"_id"`
	Title        string `json:"title"`
	StoryGroupID string `json:"storyGroupId"`
}

// StoryGroupUpdate is a partial story group update. Nil fields are left unchanged.
type StoryGroupUpdate struct {
	ID         string    `json:"_id"`
	ProjectID  string    `json:"projectId"`
	Name       *string   `json:"name,omitempty"`
	IsExpanded *bool     `json:"isExpanded,omitempty"`
	Children   *[]string `json:"children,omitempty"`
}

// ProjectUpdate is a partial project update. Nil fields are left unchanged.
type ProjectUpdate struct {
	ID              string        `json:"_id"`
	Name            *string       `json:"name,omitempty"`
	DefaultLanguage *string       `json:"defaultLanguage,omitempty"`
	DefaultDomain   *model.Domain `json:"defaultDomain,omitempty"`
	StoryGroups     *[]string     `json:"storyGroups,omitempty"`
}

// AuthoringStore defines the data access interface for authoring content.
type AuthoringStore interface {
	// Stories
	InsertStories(ctx context.Context, stories []model.Story) ([]string, error)
	// UpdateStories requires every update to target the same project; this is checked before any write.
	UpdateStories(ctx context.Context, updates []story.Update) (int, error)
	DeleteStory(ctx context.Context, projectID string, storyID string) error
	GetStory(ctx context.Context, projectID string, storyID string) (*model.Story, error)
	ListStories(ctx context.Context, projectID string, storyGroupID *string) ([]model.Story, error)
	SearchStories(ctx context.Context, projectID string, query string) ([]StorySummary, error)

	// Story groups
	InsertStoryGroup(ctx context.Context, group model.StoryGroup) (string, error)
	UpdateStoryGroup(ctx context.Context, update StoryGroupUpdate) error
	// DeleteStoryGroup also deletes the group's stories.
	DeleteStoryGroup(ctx context.Context, projectID string, groupID string) error
	ListStoryGroups(ctx context.Context, projectID string) ([]model.StoryGroup, error)

	// Bot responses
	UpsertBotResponse(ctx context.Context, resp model.BotResponse) (*model.BotResponse, error)
	GetBotResponse(ctx context.Context, projectID string, key string) (*model.BotResponse, error)
	DeleteBotResponse(ctx context.Context, projectID string, key string) error
	ListBotResponses(ctx context.Context, projectID string, query *string) ([]model.BotResponse, error)

	// Projects
	InsertProject(ctx context.Context, project model.Project) (string, error)
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	UpdateProject(ctx context.Context, update ProjectUpdate) (*model.Project, error)

	// Migrations
	MigrationStatus(ctx context.Context) (*model.MigrationControl, error)
	Migrate(ctx context.Context, opts registrymigrate.Options) (*model.MigrationControl, error)
}

// Loader creates an AuthoringStore from config.
type Loader func(ctx context.Context) (AuthoringStore, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
