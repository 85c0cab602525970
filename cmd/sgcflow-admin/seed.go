package main

import (
	"context"

	cli "github.com/urfave/cli/v3"

	"github.com/sgcbr/sgcflow/pkg/cmd"
	"github.com/sgcbr/sgcflow/pkg/log"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/seed"
)

// NewSeedCommand creates the process seeding subcommand.
func NewSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create a process, its units and subprocesses from a seed file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the JSON seed file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "caller-title",
				Usage:    "User title of the administrator driving the seeding",
				Required: true,
				Sources:  cli.EnvVars("CALLER_TITLE"),
			},
			&cli.StringFlag{
				Name:    "caller-name",
				Usage:   "Display name of the administrator",
				Sources: cli.EnvVars("CALLER_NAME"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("admin")

			file, err := seed.Load(command.String("file"))
			if err != nil {
				return err
			}

			p := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := p.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			caller := models.Caller{
				Title: command.String("caller-title"),
				Name:  command.String("caller-name"),
			}

			process, err := seed.NewApplier(p, logger).Apply(ctx, file, caller)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Process created", "process_id", process.ID, "type", process.Type)

			return nil
		},
	}
}
