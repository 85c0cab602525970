package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/sgcbr/sgcflow/pkg/cmd"
	"github.com/sgcbr/sgcflow/pkg/log"
	"github.com/sgcbr/sgcflow/pkg/notifier"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "sgcflow-api",
		Usage:                 "Run the competency-mapping workflow API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus backend for notification intents (gochannel, kafka, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "admin-sigla",
				Usage:   "Sigla of the administrative unit running homologations",
				Value:   workflow.DefaultAdminSigla,
				Sources: cli.EnvVars("ADMIN_SIGLA"),
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

			logger.InfoContext(ctx, "Initializing SGC Flow API")

			p := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := p.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var client notifier.Client

			if provider := command.String("event-bus"); provider == "none" {
				client = notifier.NewLogClient(logger)
			} else {
				eventBus := cmd.NewEventBus(provider, logger)
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				client = notifier.NewBusClient(eventBus)
			}

			api := NewAPI(logger, p, client, command.String("admin-sigla"))

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
