package migrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/botfront/authoring-service/internal/config"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	// Import plugins to trigger init() registration of their migrators
	// and of the versioned data migration steps.
	_ "github.com/botfront/authoring-service/internal/migrations"
	_ "github.com/botfront/authoring-service/internal/plugin/store/mongo"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("BOTFRONT_DB_URL", "MONGO_URL"),
				Usage:    "Database connection URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "db-kind",
				Sources: cli.EnvVars("BOTFRONT_DB_KIND"),
				Usage:   "Store backend (mongo)",
				Value:   "mongo",
			},
			&cli.StringFlag{
				Name:    "db-name",
				Sources: cli.EnvVars("BOTFRONT_DB_NAME"),
				Usage:   "Database name used when the URL does not name one",
				Value:   "bf",
			},
			&cli.StringFlag{
				Name:    "assets-dir",
				Sources: cli.EnvVars("BOTFRONT_ASSETS_DIR"),
				Usage:   "Directory holding the default-settings*.json files",
				Value:   "assets",
			},
			&cli.StringFlag{
				Name:    "orchestrator",
				Sources: cli.EnvVars("BOTFRONT_ORCHESTRATOR", "ORCHESTRATOR"),
				Usage:   "Orchestrator name used to pick default-settings.<orchestrator>.json",
			},
			&cli.StringFlag{
				Name:    "deployment-mode",
				Sources: cli.EnvVars("BOTFRONT_DEPLOYMENT_MODE"),
				Usage:   "Deployment mode (production|development|test)",
				Value:   config.DeploymentProduction,
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Target version, or \"latest\"",
				Value: "latest",
			},
			&cli.BoolFlag{
				Name:  "rerun",
				Usage: "Run the target step again even when the database is already at that version",
			},
			&cli.BoolFlag{
				Name:  "force-unlock",
				Usage: "Release the migration lock left behind by a run that did not finish",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			cfg.DatastoreType = cmd.String("db-kind")
			cfg.DBName = cmd.String("db-name")
			cfg.AssetsDir = cmd.String("assets-dir")
			cfg.Orchestrator = cmd.String("orchestrator")
			cfg.DeploymentMode = cmd.String("deployment-mode")
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			cfg.DatastoreMigrateAtStart = true

			to, err := parseTarget(cmd.String("to"))
			if err != nil {
				return err
			}
			ctx = config.WithContext(ctx, &cfg)
			ctx = registrymigrate.WithOptions(ctx, registrymigrate.Options{
				To:          to,
				Rerun:       cmd.Bool("rerun"),
				ForceUnlock: cmd.Bool("force-unlock"),
			})

			log.Info("Running migrations...", "to", cmd.String("to"), "rerun", cmd.Bool("rerun"))
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}

func parseTarget(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "latest") {
		return registrymigrate.Latest, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid --to %q: expected a version number or \"latest\"", raw)
	}
	return v, nil
}
