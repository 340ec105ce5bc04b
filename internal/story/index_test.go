package story

import (
	"testing"

	"github.com/botfront/authoring-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const welcomeIndex = "hello \n helpOptions \n how_are_you \n mood positive \n utter_hello \n utter_tXd-Pm66 \n utter_Xywmv8uc \n utter_hwZIDQ5P \n utter_0H5XEC9h \n action_help \n mood"

func welcomeStory() *model.Story {
	return &model.Story{
		ID:           "story_A",
		Title:        "Welcome Story",
		StoryGroupID: "pYAvAsYw256uy8bGF",
		ProjectID:    "bf",
		Story:        "* hello\n - utter_hello",
		Branches: []model.Branch{
			{
				ID:    "story_A_branch_A",
				Title: "New Branch 1",
				Story: "* helpOptions\n  - action_help\n  - utter_tXd-Pm66",
			},
			{
				ID:    "story_A_branch_B",
				Title: "New Branch 2",
				Story: "* how_are_you\n  - utter_Xywmv8uc\n* mood{\"positive\": \"good\"}\n  - utter_hwZIDQ5P\n  - utter_0H5XEC9h\n  - slot{\"mood\":\"set\"}",
			},
		},
	}
}

func TestIndexStory_WelcomeFixture(t *testing.T) {
	idx := IndexStory(welcomeStory(), IndexOptions{IncludeEvents: true})
	assert.Equal(t, welcomeIndex, idx.TextIndex.Contents)
	assert.Equal(t, "Welcome Story", idx.TextIndex.Info)
	assert.Equal(t, []string{
		"utter_hello",
		"utter_tXd-Pm66",
		"utter_Xywmv8uc",
		"utter_hwZIDQ5P",
		"utter_0H5XEC9h",
		"action_help",
	}, idx.Events)
}

func TestIndexStory_EventsOmittedByDefault(t *testing.T) {
	idx := IndexStory(welcomeStory(), IndexOptions{})
	assert.Nil(t, idx.Events)
	assert.Equal(t, welcomeIndex, idx.TextIndex.Contents)
}

func TestAggregateEvents_Deduplicates(t *testing.T) {
	s := &model.Story{
		Story: "* a\n - utter_x\n - action_y",
		Branches: []model.Branch{
			{ID: "b1", Story: "* b\n - utter_x", Branches: []model.Branch{
				{ID: "b1a", Story: "* c\n - action_y\n - utter_z"},
			}},
		},
	}
	assert.Equal(t, []string{"utter_x", "utter_z", "action_y"}, AggregateEvents(s))
}

func TestIndexStory_EmptyStory(t *testing.T) {
	idx := IndexStory(&model.Story{Title: "Empty"}, IndexOptions{IncludeEvents: true})
	assert.Equal(t, "", idx.TextIndex.Contents)
	assert.Equal(t, "Empty", idx.TextIndex.Info)
	assert.Empty(t, idx.Events)
}

func TestParse(t *testing.T) {
	c := Parse(`## greet path
> check_greet
<!-- a comment -->
* greet OR /hi{"name": "bob", "age": 3}
  - utter_greet
  - form{"name": "booking_form"}
  - form{"name": null}
  - slot{"b": 1, "a": 2}
  - action_restart`)

	assert.Equal(t, []string{"greet", "hi name age"}, c.Intents)
	assert.Equal(t, []string{"utter_greet"}, c.Responses)
	assert.Equal(t, []string{"action_restart"}, c.Actions)
	assert.Equal(t, []string{"b", "a"}, c.Slots)
	assert.Equal(t, []string{"booking_form"}, c.Forms)
}

func TestParse_InvalidEntitiesKeepIntent(t *testing.T) {
	c := Parse(`* inform{"city": }`)
	assert.Equal(t, []string{"inform"}, c.Intents)
}

func TestParse_OrInsideEntityValues(t *testing.T) {
	c := Parse("* inform{\"city\": \"Paris OR Rome\"}\n - utter_ok")
	assert.Equal(t, []string{"inform city"}, c.Intents)

	c = Parse(`* inform{"note": "say \"a} OR b\""} OR deny`)
	assert.Equal(t, []string{"inform note", "deny"}, c.Intents)
}

func TestSplitAlternatives(t *testing.T) {
	assert.Equal(t, []string{"greet", "/hi"}, splitAlternatives("greet OR /hi"))
	assert.Equal(t, []string{`a{"x": {"y": " OR "}}`, "b"}, splitAlternatives(`a{"x": {"y": " OR "}} OR b`))
	assert.Equal(t, []string{"greet"}, splitAlternatives("greet"))
}

func TestObjectKeys(t *testing.T) {
	keys, err := objectKeys(`{"z": {"nested": true}, "a": [1, 2]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, keys)

	_, err = objectKeys(`[1]`)
	require.Error(t, err)
}
