package story

import (
	"errors"
	"fmt"

	"github.com/botfront/authoring-service/internal/model"
)

// ErrInvalidPath is returned when a path does not start at the story being updated.
var ErrInvalidPath = errors.New("path does not start with the story id")

// BranchNotFoundError is returned when a path names a branch that does not exist.
type BranchNotFoundError struct {
	ID string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch not found: %s", e.ID)
}

// Update is a partial story update. Nil fields are left unchanged.
// Path addresses the node to update: the story id followed by branch ids.
type Update struct {
	ID           string          `json:"_id"`
	ProjectID    string          `json:"projectId"`
	Path         []string        `json:"path,omitempty"`
	Title        *string         `json:"title,omitempty"`
	Story        *string         `json:"story,omitempty"`
	Branches     *[]model.Branch `json:"branches,omitempty"`
	StoryGroupID *string         `json:"storyGroupId,omitempty"`
}

// ApplyUpdate applies u to s in place.
func ApplyUpdate(s *model.Story, u Update) error {
	if u.StoryGroupID != nil {
		s.StoryGroupID = *u.StoryGroupID
	}
	if len(u.Path) > 0 && u.Path[0] != s.ID {
		return ErrInvalidPath
	}
	if len(u.Path) <= 1 {
		if u.Title != nil {
			s.Title = *u.Title
		}
		if u.Story != nil {
			s.Story = *u.Story
		}
		if u.Branches != nil {
			s.Branches = *u.Branches
		}
		return nil
	}

	b, err := findBranch(s.Branches, u.Path[1:])
	if err != nil {
		return err
	}
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Story != nil {
		b.Story = *u.Story
	}
	if u.Branches != nil {
		b.Branches = *u.Branches
	}
	return nil
}

func findBranch(branches []model.Branch, path []string) (*model.Branch, error) {
	for i := range branches {
		if branches[i].ID != path[0] {
			continue
		}
		if len(path) == 1 {
			return &branches[i], nil
		}
		return findBranch(branches[i].Branches, path[1:])
	}
	return nil, &BranchNotFoundError{ID: path[0]}
}
