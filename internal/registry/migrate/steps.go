package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/botfront/authoring-service/internal/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Env is what a versioned step operates on.
type Env struct {
	DB     *mongo.Database
	Config *config.Config
}

// Step is a versioned, run-once data migration.
type Step struct {
	Version int
	Name    string
	Up      func(ctx context.Context, env *Env) error
}

var steps []Step

// RegisterStep adds a versioned step. Called from init() in the package defining it.
func RegisterStep(s Step) {
	steps = append(steps, s)
}

// Steps returns the registered steps ordered by version.
func Steps() ([]Step, error) {
	return sortSteps(steps)
}

func sortSteps(in []Step) ([]Step, error) {
	out := make([]Step, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i, s := range out {
		if s.Version <= 0 {
			return nil, fmt.Errorf("migration %q has invalid version %d", s.Name, s.Version)
		}
		if i > 0 && out[i-1].Version == s.Version {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)", s.Version, out[i-1].Name, s.Name)
		}
	}
	return out, nil
}
