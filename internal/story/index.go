package story

import (
	"strings"

	"github.com/botfront/authoring-service/internal/model"
)

const indexSeparator = " \n "

// IndexOptions controls what IndexStory returns.
type IndexOptions struct {
	IncludeEvents bool
}

// Index is the derived data stored on a story document.
type Index struct {
	TextIndex model.TextIndex
	Events    []string
}

// Walk collects the content of a story and all of its branches, depth first.
func Walk(s *model.Story) Content {
	var c collector
	c.parse(s.Story)
	c.walkBranches(s.Branches)
	return c.content()
}

func (c *collector) walkBranches(branches []model.Branch) {
	for i := range branches {
		c.parse(branches[i].Story)
		c.walkBranches(branches[i].Branches)
	}
}

// AggregateEvents returns the responses followed by the actions used anywhere in the story tree.
func AggregateEvents(s *model.Story) []string {
	return events(Walk(s))
}

func events(c Content) []string {
	out := make([]string, 0, len(c.Responses)+len(c.Actions))
	out = append(out, c.Responses...)
	out = append(out, c.Actions...)
	return out
}

// IndexStory computes the text index of a story and, optionally, its event list.
func IndexStory(s *model.Story, opts IndexOptions) Index {
	c := Walk(s)
	var parts []string
	parts = append(parts, c.Intents...)
	parts = append(parts, c.Responses...)
	parts = append(parts, c.Actions...)
	parts = append(parts, c.Slots...)
	parts = append(parts, c.Forms...)

	idx := Index{
		TextIndex: model.TextIndex{
			Contents: strings.Join(parts, indexSeparator),
			Info:     s.Title,
		},
	}
	if opts.IncludeEvents {
		idx.Events = events(c)
	}
	return idx
}
