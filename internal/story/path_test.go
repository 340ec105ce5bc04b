package story

import (
	"testing"

	"github.com/botfront/authoring-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestApplyUpdate_Root(t *testing.T) {
	s := welcomeStory()
	err := ApplyUpdate(s, Update{ID: s.ID, Title: ptr("Renamed"), Story: ptr("* bye\n - utter_bye")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", s.Title)
	assert.Equal(t, "* bye\n - utter_bye", s.Story)
	assert.Len(t, s.Branches, 2)
}

func TestApplyUpdate_Branch(t *testing.T) {
	s := welcomeStory()
	err := ApplyUpdate(s, Update{
		ID:    s.ID,
		Path:  []string{"story_A", "story_A_branch_A"},
		Story: ptr("* helpOptions\n  - utter_more_help"),
	})
	require.NoError(t, err)
	assert.Equal(t, "* helpOptions\n  - utter_more_help", s.Branches[0].Story)
	assert.Equal(t, "* hello\n - utter_hello", s.Story)

	idx := IndexStory(s, IndexOptions{IncludeEvents: true})
	assert.Contains(t, idx.Events, "utter_more_help")
	assert.NotContains(t, idx.Events, "action_help")
}

func TestApplyUpdate_NestedBranch(t *testing.T) {
	s := welcomeStory()
	s.Branches[1].Branches = []model.Branch{{ID: "deep", Story: "* x"}}
	err := ApplyUpdate(s, Update{ID: s.ID, Path: []string{"story_A", "story_A_branch_B", "deep"}, Title: ptr("Deep")})
	require.NoError(t, err)
	assert.Equal(t, "Deep", s.Branches[1].Branches[0].Title)
}

func TestApplyUpdate_PathOnlyIsNoop(t *testing.T) {
	s := welcomeStory()
	before := IndexStory(s, IndexOptions{IncludeEvents: true})
	require.NoError(t, ApplyUpdate(s, Update{ID: s.ID, Path: []string{"story_A", "story_A_branch_A"}}))
	assert.Equal(t, before, IndexStory(s, IndexOptions{IncludeEvents: true}))
}

func TestApplyUpdate_Errors(t *testing.T) {
	s := welcomeStory()
	err := ApplyUpdate(s, Update{ID: s.ID, Path: []string{"other"}})
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = ApplyUpdate(s, Update{ID: s.ID, Path: []string{"story_A", "missing"}})
	var notFound *BranchNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ID)
}
