package model

import "time"

// TextIndex is the searchable projection of a story.
type TextIndex struct {
	Contents string `json:"contents" bson:"contents"`
	Info     string `json:"info"     bson:"info"`
}

// Branch is a nested continuation of a story. Branches form a tree.
type Branch struct {
	ID       string   `json:"_id"      bson:"_id"`
	Title    string   `json:"title"    bson:"title"`
	Story    string   `json:"story"    bson:"story"`
	Branches []Branch `json:"branches" bson:"branches"`
}

// Story is a conversational flow written in story markdown, with optional branches.
type Story struct {
	ID           string     `json:"_id"                 bson:"_id"`
	Title        string     `json:"title"               bson:"title"`
	ProjectID    string     `json:"projectId"           bson:"projectId"`
	StoryGroupID string     `json:"storyGroupId"        bson:"storyGroupId"`
	Story        string     `json:"story"               bson:"story"`
	Branches     []Branch   `json:"branches"            bson:"branches"`
	Events       []string   `json:"events"              bson:"events"`
	TextIndex    *TextIndex `json:"textIndex,omitempty" bson:"textIndex,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// StoryGroup groups stories in the authoring UI.
type StoryGroup struct {
	ID         string   `json:"_id"        bson:"_id"`
	Name       string   `json:"name"       bson:"name"`
	ProjectID  string   `json:"projectId"  bson:"projectId"`
	IntroStory bool     `json:"introStory" bson:"introStory"`
	IsExpanded bool     `json:"isExpanded" bson:"isExpanded"`
	Children   []string `json:"children"   bson:"children"`
}

// Domain holds the YAML domain content of a project.
type Domain struct {
	Content string `json:"content" bson:"content"`
}

// Project is the root of all authoring content.
type Project struct {
	ID              string   `json:"_id"                     bson:"_id"`
	Name            string   `json:"name"                    bson:"name"`
	DefaultLanguage string   `json:"defaultLanguage"         bson:"defaultLanguage"`
	DefaultDomain   *Domain  `json:"defaultDomain,omitempty" bson:"defaultDomain,omitempty"`
	StoryGroups     []string `json:"storyGroups"             bson:"storyGroups"`
}

// SequenceStep is one message of a response variant. Content is a YAML document.
type SequenceStep struct {
	Content string `json:"content" bson:"content"`
}

// ResponseValue is the per-language variant of a bot response.
type ResponseValue struct {
	Lang     string         `json:"lang"     bson:"lang"`
	Sequence []SequenceStep `json:"sequence" bson:"sequence"`
}

// BotResponse is a named template of bot utterances. (ProjectID, Key) is unique.
type BotResponse struct {
	ID        string          `json:"_id"       bson:"_id"`
	Key       string          `json:"key"       bson:"key"`
	ProjectID string          `json:"projectId" bson:"projectId"`
	Values    []ResponseValue `json:"values"    bson:"values"`
	TextIndex string          `json:"textIndex" bson:"textIndex"`
}

// Template is the legacy, project-embedded form of a bot response.
type Template struct {
	Key       string          `json:"key"                 bson:"key"`
	Values    []ResponseValue `json:"values"              bson:"values"`
	ProjectID string          `json:"projectId,omitempty" bson:"projectId,omitempty"`
	Match     any             `json:"match,omitempty"     bson:"match,omitempty"`
	FollowUp  any             `json:"followUp,omitempty"  bson:"followUp,omitempty"`
}

// Instance is an NLU server registration.
type Instance struct {
	ID        string   `json:"_id"            bson:"_id"`
	Name      string   `json:"name"           bson:"name"`
	Host      string   `json:"host"           bson:"host"`
	ProjectID string   `json:"projectId"      bson:"projectId"`
	Type      []string `json:"type,omitempty" bson:"type,omitempty"`
}

// GlobalSettingsID is the id of the single global settings document.
const GlobalSettingsID = "SETTINGS"

// MigrationControl records the applied migration version and the run lock.
type MigrationControl struct {
	Version  int        `json:"version"            bson:"version"`
	Locked   bool       `json:"locked"             bson:"locked"`
	LockedAt *time.Time `json:"lockedAt,omitempty" bson:"lockedAt,omitempty"`
}
