package notifier

import (
	"context"
	"log/slog"

	"github.com/sgcbr/sgcflow/pkg/eventbus"
	"github.com/sgcbr/sgcflow/pkg/events"
)

// BusClient publishes notification intents on the event bus; the delivery
// worker consumes them out of process.
type BusClient struct {
	publisher eventbus.Publisher
}

// NewBusClient creates a bus-backed notification client.
func NewBusClient(publisher eventbus.Publisher) *BusClient {
	return &BusClient{publisher: publisher}
}

func (c *BusClient) SendEmail(ctx context.Context, subprocessID int64, email Email) error {
	queued := events.NotificationQueued{
		BaseEvent:  events.NewBaseEvent(events.NotificationQueuedEvent, subprocessID),
		Kind:       events.NotificationEmail,
		Recipients: email.Recipients,
		Subject:    email.Subject,
		Body:       email.Body,
	}

	return c.publisher.Publish(ctx, queued.ID, queued)
}

func (c *BusClient) CreateAlert(ctx context.Context, subprocessID int64, alert Alert) error {
	queued := events.NotificationQueued{
		BaseEvent: events.NewBaseEvent(events.NotificationQueuedEvent, subprocessID),
		Kind:      events.NotificationAlert,
		UnitSigla: alert.UnitSigla,
		Subject:   alert.Subject,
		Body:      alert.Body,
	}

	return c.publisher.Publish(ctx, queued.ID, queued)
}

// LogClient writes notifications to the log only. Used in development and as
// a safe default when no bus is configured.
type LogClient struct {
	logger *slog.Logger
}

// NewLogClient creates a log-only notification client.
func NewLogClient(logger *slog.Logger) *LogClient {
	return &LogClient{logger: logger.With("module", "notification_log_client")}
}

func (c *LogClient) SendEmail(ctx context.Context, subprocessID int64, email Email) error {
	c.logger.InfoContext(ctx, "E-mail notification",
		"subprocess_id", subprocessID, "recipients", email.Recipients, "subject", email.Subject)

	return nil
}

func (c *LogClient) CreateAlert(ctx context.Context, subprocessID int64, alert Alert) error {
	c.logger.InfoContext(ctx, "Alert notification",
		"subprocess_id", subprocessID, "unit", alert.UnitSigla, "subject", alert.Subject)

	return nil
}
