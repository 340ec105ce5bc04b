package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/botfront/authoring-service/internal/model"
	"github.com/botfront/authoring-service/internal/security"
	"github.com/charmbracelet/log"
)

// Latest targets the highest registered version.
const Latest = -1

// Options selects the target of a run.
type Options struct {
	To    int
	Rerun bool
	// ForceUnlock releases the run lock before acquiring it, for recovery
	// after a run that died while holding it.
	ForceUnlock bool
}

// Control persists the applied version and the run lock.
type Control interface {
	// Lock acquires the run lock. It returns false when another run holds it
	// and that lock has not gone stale.
	Lock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Status(ctx context.Context) (model.MigrationControl, error)
	SetVersion(ctx context.Context, version int) error
}

// Runner applies versioned steps in order, one at a time.
type Runner struct {
	control Control
	env     *Env
	steps   []Step
}

// NewRunner creates a Runner over the given steps.
func NewRunner(control Control, env *Env, steps []Step) (*Runner, error) {
	sorted, err := sortSteps(steps)
	if err != nil {
		return nil, err
	}
	return &Runner{control: control, env: env, steps: sorted}, nil
}

// LatestVersion returns the highest known version, or 0 when there are no steps.
func (r *Runner) LatestVersion() int {
	if len(r.steps) == 0 {
		return 0
	}
	return r.steps[len(r.steps)-1].Version
}

// MigrateTo brings the database to the requested version. A locked control
// document makes it a no-op. A failing step stops the run and leaves the
// version at the last successful step.
func (r *Runner) MigrateTo(ctx context.Context, opts Options) error {
	target := opts.To
	if target == Latest {
		target = r.LatestVersion()
	}
	if target < 0 || target > r.LatestVersion() {
		return fmt.Errorf("unknown migration version %d (latest is %d)", opts.To, r.LatestVersion())
	}

	if opts.ForceUnlock {
		log.Warn("Forcing migration control unlock")
		if err := r.control.Unlock(ctx); err != nil {
			return fmt.Errorf("failed to force unlock migration control: %w", err)
		}
	}

	locked, err := r.control.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock migration control: %w", err)
	}
	if !locked {
		log.Warn("Not migrating, control is locked")
		return nil
	}
	defer func() {
		if err := r.control.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.Error("Failed to unlock migration control", "err", err)
		}
	}()

	status, err := r.control.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration control: %w", err)
	}
	current := status.Version

	if opts.Rerun {
		for _, s := range r.steps {
			if s.Version == target {
				return r.run(ctx, s)
			}
		}
		return fmt.Errorf("no migration with version %d to rerun", target)
	}

	switch {
	case current == target:
		log.Info("Migrations up to date", "version", current)
		return nil
	case target < current:
		log.Warn("Not migrating down; no down steps exist", "current", current, "target", target)
		return nil
	}

	log.Info("Migrating", "from", current, "to", target)
	for _, s := range r.steps {
		if s.Version <= current || s.Version > target {
			continue
		}
		if err := r.run(ctx, s); err != nil {
			return err
		}
		if err := r.control.SetVersion(ctx, s.Version); err != nil {
			return fmt.Errorf("failed to record migration version %d: %w", s.Version, err)
		}
	}
	log.Info("Finished migrating", "version", target)
	return nil
}

func (r *Runner) run(ctx context.Context, s Step) error {
	log.Info("Running migration", "version", s.Version, "name", s.Name)
	start := time.Now()
	if err := s.Up(ctx, r.env); err != nil {
		security.ObserveMigration(s.Version, "error")
		return fmt.Errorf("migration %d (%s) failed: %w", s.Version, s.Name, err)
	}
	security.ObserveMigration(s.Version, "ok")
	log.Info("Migration complete", "version", s.Version, "duration", time.Since(start))
	return nil
}
