// Package botresponse holds the transformations applied to bot response templates:
// search indexing, legacy template deduplication and sequence joining.
package botresponse

import (
	"strings"

	"github.com/botfront/authoring-service/internal/model"
	"gopkg.in/yaml.v3"
)

type button struct {
	Title   string `yaml:"title"`
	Payload string `yaml:"payload"`
}

type message struct {
	Text         string   `yaml:"text"`
	Buttons      []button `yaml:"buttons"`
	QuickReplies []button `yaml:"quick_replies"`
}

// IndexBotResponse builds the text index of a response: its key followed by every
// text, button title and button payload found in its sequences.
func IndexBotResponse(r *model.BotResponse) string {
	seen := map[string]bool{}
	var parts []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		parts = append(parts, v)
	}

	add(r.Key)
	for _, value := range r.Values {
		for _, step := range value.Sequence {
			var msg message
			if err := yaml.Unmarshal([]byte(step.Content), &msg); err != nil {
				continue
			}
			add(msg.Text)
			for _, b := range append(msg.Buttons, msg.QuickReplies...) {
				add(b.Title)
				add(b.Payload)
			}
		}
	}
	return strings.Join(parts, "\n")
}
