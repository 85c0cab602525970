package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/sgcbr/sgcflow/pkg/cmd"
	"github.com/sgcbr/sgcflow/pkg/log"
)

func main() {
	logger := log.WithModule("notifier")

	command := &cli.Command{
		Name:                  "sgcflow-notifier",
		Usage:                 "Deliver queued workflow notifications",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus backend to consume from (gochannel, kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS"),
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

			logger.InfoContext(ctx, "Initializing SGC Flow notification worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worker := NewWorker(eventBus, NewLogSink(logger), logger)

			return worker.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
