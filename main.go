package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/botfront/authoring-service/internal/cmd/migrate"
	"github.com/botfront/authoring-service/internal/cmd/serve"
	"github.com/botfront/authoring-service/internal/config"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}

	app := &cli.Command{
		Name:  "authoring-service",
		Usage: "Chatbot authoring data service: stories, responses and schema migrations",
		Commands: []*cli.Command{
			serve.Command(),
			migrate.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
