// Package notifier decides recipients and message intent for committed
// workflow transitions. Delivery is best-effort: failures are logged and
// never propagate back to the transition that triggered them.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sgcbr/sgcflow/pkg/events"
)

// Email is the message intent handed to the delivery collaborator; template
// rendering and SMTP live outside the workflow core.
type Email struct {
	Recipients []string
	Subject    string
	Body       string
}

// Alert is an alert-board entry intent for a unit.
type Alert struct {
	UnitSigla string
	Subject   string
	Body      string
}

// Client is the external notification collaborator.
type Client interface {
	SendEmail(ctx context.Context, subprocessID int64, email Email) error
	CreateAlert(ctx context.Context, subprocessID int64, alert Alert) error
}

// Dispatcher consumes transition events and drives the client. It implements
// workflow.Dispatcher.
type Dispatcher struct {
	client Client
	logger *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(client Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger.With("module", "notification_dispatcher"),
	}
}

// Dispatch resolves recipients from the transition metadata and calls the
// client. Every failure is logged and swallowed; the transition is already
// committed and must be reported as successful.
func (d *Dispatcher) Dispatch(ctx context.Context, event *events.TransitionCompleted) error {
	if !event.Alert && !event.Email {
		return nil
	}

	subject := fmt.Sprintf("SGC: %s", event.Description)
	body := fmt.Sprintf("O subprocesso da unidade %s mudou de situação para %s.\n\n%s",
		event.Origin.Sigla, event.Situacao, event.Description)

	if event.Email {
		recipients := recipientsFor(event)
		if len(recipients) == 0 {
			d.logger.WarnContext(ctx, "Transition requires e-mail but no recipient could be resolved",
				"subprocess_id", event.SubprocessID, "transition", event.Transition)
		} else {
			err := d.client.SendEmail(ctx, event.SubprocessID, Email{
				Recipients: recipients,
				Subject:    subject,
				Body:       body,
			})
			if err != nil {
				d.logger.ErrorContext(ctx, "Failed to send transition e-mail",
					"subprocess_id", event.SubprocessID, "transition", event.Transition, "error", err)
			}
		}
	}

	if event.Alert {
		err := d.client.CreateAlert(ctx, event.SubprocessID, Alert{
			UnitSigla: event.Destination.Sigla,
			Subject:   subject,
			Body:      body,
		})
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to create transition alert",
				"subprocess_id", event.SubprocessID, "transition", event.Transition, "error", err)
		}
	}

	return nil
}

// recipientsFor picks the unit on the receiving end of the hand-off; the
// origin unit is copied when it differs, so both sides see the decision.
func recipientsFor(event *events.TransitionCompleted) []string {
	var recipients []string

	if event.Destination.Email != "" {
		recipients = append(recipients, event.Destination.Email)
	}

	if event.Origin.Email != "" && event.Origin.Email != event.Destination.Email {
		recipients = append(recipients, event.Origin.Email)
	}

	return recipients
}
