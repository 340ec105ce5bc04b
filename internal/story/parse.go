// Package story parses story markdown and derives the search index and event
// list stored alongside every story.
package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Content lists what a story refers to, each category in first-seen order.
type Content struct {
	// Intents holds one entry per user intent: the intent name followed by
	// its entity names, space separated.
	Intents   []string
	Responses []string
	Actions   []string
	Slots     []string
	Forms     []string
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}

type collector struct {
	intents, responses, actions, slots, forms orderedSet
}

func (c *collector) content() Content {
	return Content{
		Intents:   c.intents.items,
		Responses: c.responses.items,
		Actions:   c.actions.items,
		Slots:     c.slots.items,
		Forms:     c.forms.items,
	}
}

// Parse extracts the content of a single story markdown body.
func Parse(md string) Content {
	var c collector
	c.parse(md)
	return c.content()
}

func (c *collector) parse(md string) {
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "",
			strings.HasPrefix(line, "#"),
			strings.HasPrefix(line, ">"),
			strings.HasPrefix(line, "<!--"):
			continue
		case strings.HasPrefix(line, "*"):
			c.userTurn(strings.TrimSpace(line[1:]))
		case strings.HasPrefix(line, "-"):
			c.botTurn(strings.TrimSpace(line[1:]))
		}
	}
}

func (c *collector) userTurn(turn string) {
	for _, alt := range splitAlternatives(turn) {
		alt = strings.TrimPrefix(strings.TrimSpace(alt), "/")
		name, args := splitArgs(alt)
		if name == "" {
			continue
		}
		parts := []string{name}
		if args != "" {
			if keys, err := objectKeys(args); err == nil {
				parts = append(parts, keys...)
			}
		}
		c.intents.add(strings.Join(parts, " "))
	}
}

func (c *collector) botTurn(turn string) {
	name, args := splitArgs(turn)
	switch {
	case name == "slot":
		keys, err := objectKeys(args)
		if err != nil {
			return
		}
		for _, k := range keys {
			c.slots.add(k)
		}
	case name == "form":
		var form struct {
			Name *string `json:"name"`
		}
		if err := json.Unmarshal([]byte(args), &form); err != nil || form.Name == nil {
			return
		}
		c.forms.add(*form.Name)
	case strings.HasPrefix(name, "utter_"):
		c.responses.add(name)
	default:
		c.actions.add(name)
	}
}

// splitAlternatives splits a user turn at " OR " separators that sit outside
// entity objects and quoted strings.
func splitAlternatives(turn string) []string {
	const sep = " OR "
	var (
		alts     []string
		depth    int
		inString bool
		escaped  bool
		start    int
	)
	for i := 0; i < len(turn); i++ {
		ch := turn[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ' ':
			if depth == 0 && strings.HasPrefix(turn[i:], sep) {
				alts = append(alts, turn[start:i])
				i += len(sep) - 1
				start = i + 1
			}
		}
	}
	return append(alts, turn[start:])
}

// splitArgs splits `name{...}` into its name and JSON argument object.
func splitArgs(s string) (string, string) {
	idx := strings.IndexByte(s, '{')
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx:])
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return keys, nil
}
