package botresponse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/botfront/authoring-service/internal/model"
)

func countUtterMatches(values []model.ResponseValue) int {
	data, err := json.Marshal(values)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "utter_")
}

// DedupeTemplates turns the legacy templates of a project into a list with unique keys.
// Among templates sharing a key, the one referencing utter_ the fewest times wins;
// the first one wins ties. match and followUp are dropped and projectId is set.
func DedupeTemplates(projectID string, templates []model.Template) ([]model.Template, error) {
	sorted := make([]model.Template, len(templates))
	copy(sorted, templates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var kept, duplicates []model.Template
	for i := range sorted {
		t := sorted[i]
		t.Match = nil
		t.FollowUp = nil
		t.ProjectID = projectID
		if (i < len(sorted)-1 && t.Key == sorted[i+1].Key) || (i > 0 && t.Key == sorted[i-1].Key) {
			duplicates = append(duplicates, t)
		} else {
			kept = append(kept, t)
		}
	}

	distinctDuplicates := 0
	for i := 0; i < len(duplicates); {
		n := 1
		for i+n < len(duplicates) && duplicates[i].Key == duplicates[i+n].Key {
			n++
		}
		best := i
		bestCount := countUtterMatches(duplicates[i].Values)
		for j := i + 1; j < i+n; j++ {
			if c := countUtterMatches(duplicates[j].Values); c < bestCount {
				best, bestCount = j, c
			}
		}
		kept = append(kept, duplicates[best])
		distinctDuplicates++
		i += n
	}

	if want := len(templates) - (len(duplicates) - distinctDuplicates); len(kept) != want {
		return nil, fmt.Errorf("integrity check failed: kept %d templates, expected %d", len(kept), want)
	}
	keys := make(map[string]bool, len(kept))
	for _, t := range kept {
		if keys[t.Key] {
			return nil, fmt.Errorf("integrity check failed: duplicate key %q", t.Key)
		}
		keys[t.Key] = true
	}
	return kept, nil
}
