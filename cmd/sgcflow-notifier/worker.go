// Package main provides the notification delivery worker.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sgcbr/sgcflow/pkg/eventbus"
	"github.com/sgcbr/sgcflow/pkg/events"
)

// Worker consumes queued notification intents from the bus and delivers
// them. SMTP and the alert board are external collaborators; the worker's
// sink is the hand-off point.
type Worker struct {
	eventBus eventbus.EventBus
	sink     Sink
	logger   *slog.Logger
}

// Sink performs the actual delivery of a notification intent.
type Sink interface {
	DeliverEmail(ctx context.Context, queued *events.NotificationQueued) error
	DeliverAlert(ctx context.Context, queued *events.NotificationQueued) error
}

// NewWorker creates the delivery worker.
func NewWorker(eventBus eventbus.EventBus, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{
		eventBus: eventBus,
		sink:     sink,
		logger:   logger,
	}
}

// Start subscribes to the notification topic and blocks until the context is
// cancelled or a termination signal arrives.
func (w *Worker) Start(ctx context.Context) error {
	err := w.eventBus.Handle(events.NotificationQueuedEvent, w.handleQueued)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.DeadlineExpiredEvent, w.handleDeadlineExpired)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Notification worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case sig := <-quit:
		w.logger.InfoContext(ctx, "Received shutdown signal", "signal", sig.String())
	}

	return nil
}

func (w *Worker) handleQueued(ctx context.Context, event any) error {
	queued, ok := event.(*events.NotificationQueued)
	if !ok {
		w.logger.WarnContext(ctx, "Unexpected event payload on notification topic")

		return nil
	}

	var err error

	switch queued.Kind {
	case events.NotificationEmail:
		err = w.sink.DeliverEmail(ctx, queued)
	case events.NotificationAlert:
		err = w.sink.DeliverAlert(ctx, queued)
	default:
		w.logger.WarnContext(ctx, "Unknown notification kind", "kind", queued.Kind)

		return nil
	}

	if err != nil {
		w.logger.ErrorContext(ctx, "Notification delivery failed",
			"subprocess_id", queued.SubprocessID, "kind", queued.Kind, "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Notification delivered",
		"subprocess_id", queued.SubprocessID, "kind", queued.Kind)

	return nil
}

func (w *Worker) handleDeadlineExpired(ctx context.Context, event any) error {
	expired, ok := event.(*events.DeadlineExpired)
	if !ok {
		return nil
	}

	w.logger.WarnContext(ctx, "Subprocess stage deadline expired",
		"subprocess_id", expired.SubprocessID, "situacao", expired.Situacao, "deadline", expired.Deadline)

	return nil
}

// LogSink is the default delivery sink: it writes the rendered notification
// to the structured log. Real transports plug in behind the Sink interface.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-backed delivery sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "delivery_sink")}
}

func (s *LogSink) DeliverEmail(ctx context.Context, queued *events.NotificationQueued) error {
	s.logger.InfoContext(ctx, "E-mail delivery",
		"subprocess_id", queued.SubprocessID,
		"recipients", queued.Recipients,
		"subject", queued.Subject)

	return nil
}

func (s *LogSink) DeliverAlert(ctx context.Context, queued *events.NotificationQueued) error {
	s.logger.InfoContext(ctx, "Alert delivery",
		"subprocess_id", queued.SubprocessID,
		"unit", queued.UnitSigla,
		"subject", queued.Subject)

	return nil
}
