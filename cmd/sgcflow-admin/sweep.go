package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/sgcbr/sgcflow/pkg/cmd"
	"github.com/sgcbr/sgcflow/pkg/log"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/notifier"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// NewSweepCommand creates the deadline sweep subcommand.
func NewSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Scan for subprocesses past their stage deadline and raise alerts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus backend for alert intents (gochannel, kafka, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the recurring sweep",
				Value:   "0 6 * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single sweep and exit",
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
			logger := log.WithModule("sweep")

			p := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := p.Close(ctx); err != nil {
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

			sweeper := NewSweeper(p, client, logger)

			if command.Bool("once") {
				return sweeper.Sweep(ctx)
			}

			scheduler := cron.New(cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			))

			_, err := scheduler.AddFunc(command.String("schedule"), func() {
				if err := sweeper.Sweep(ctx); err != nil {
					logger.ErrorContext(ctx, "Deadline sweep failed", "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to schedule sweep: %w", err)
			}

			scheduler.Start()
			defer scheduler.Stop()

			logger.InfoContext(ctx, "Deadline sweep scheduled", "schedule", command.String("schedule"))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-ctx.Done():
			case <-quit:
			}

			return nil
		},
	}
}

// Sweeper raises alerts for subprocesses past their pending stage deadline.
// It never mutates workflow state.
type Sweeper struct {
	persistence persistence.Persistence
	client      notifier.Client
	logger      *slog.Logger
}

// NewSweeper creates a deadline sweeper.
func NewSweeper(p persistence.Persistence, client notifier.Client, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		persistence: p,
		client:      client,
		logger:      logger,
	}
}

// Sweep scans once. Alert failures are logged per subprocess and do not stop
// the scan.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	overdue, err := s.persistence.Subprocesses().Overdue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to scan for overdue subprocesses: %w", err)
	}

	s.logger.InfoContext(ctx, "Deadline sweep", "overdue", len(overdue))

	for _, subprocess := range overdue {
		unit, err := s.persistence.Units().GetByID(ctx, subprocess.UnitID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to resolve unit for overdue subprocess",
				"subprocess_id", subprocess.ID, "unit_id", subprocess.UnitID, "error", err)

			continue
		}

		deadline := pendingDeadline(subprocess)

		alert := notifier.Alert{
			UnitSigla: unit.Sigla,
			Subject:   "SGC: prazo expirado",
			Body: fmt.Sprintf("O subprocesso da unidade %s está com o prazo expirado desde %s (situação %s).",
				unit.Sigla, deadline.Format("02/01/2006"), subprocess.Situacao),
		}

		err = s.client.CreateAlert(ctx, subprocess.ID, alert)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to raise deadline alert",
				"subprocess_id", subprocess.ID, "unit", unit.Sigla, "error", err)
		}
	}

	return nil
}

// pendingDeadline picks the stage deadline that is still open.
func pendingDeadline(subprocess *models.Subprocess) time.Time {
	if subprocess.PrazoEtapa1 != nil && subprocess.DataFimEtapa1 == nil {
		return *subprocess.PrazoEtapa1
	}

	if subprocess.PrazoEtapa2 != nil && subprocess.DataFimEtapa2 == nil {
		return *subprocess.PrazoEtapa2
	}

	return time.Time{}
}
