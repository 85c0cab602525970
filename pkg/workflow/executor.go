package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sgcbr/sgcflow/pkg/events"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/otelhelper"
	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/registry"
)

// Dispatcher consumes the transition event after the transaction commits.
// Dispatch failures never roll back the transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *events.TransitionCompleted) error
}

// Mutation is an extra aggregate write a transition performs inside its
// transaction, before the analysis and movement records (e.g. clearing a
// stage's analyses, stamping a deadline).
type Mutation func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error

// Command describes one transition to apply.
type Command struct {
	SubprocessID int64
	Type         registry.TransitionType
	Origin       *models.Unit
	Destination  *models.Unit
	Caller       models.Caller
	// Notes is appended to the movement description.
	Notes string
	// AnalysisNotes is the justification of the analysis record, when the
	// transition records one.
	AnalysisNotes string
	Guards        []Guard
	Prepare       []Mutation
}

// Executor is the only component allowed to mutate a subprocess's situacao
// and to write movement and analysis records. All writes of one transition
// share a transaction; the dispatcher is called only after commit.
type Executor struct {
	persistence persistence.Persistence
	dispatcher  Dispatcher
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewExecutor creates a transition executor.
func NewExecutor(p persistence.Persistence, dispatcher Dispatcher, logger *slog.Logger) *Executor {
	return &Executor{
		persistence: p,
		dispatcher:  dispatcher,
		logger:      logger.With("module", "transition_executor"),
		tracer:      otel.Tracer("sgcflow/workflow"),
	}
}

// Execute applies the transition: guards, analysis, state mutation, movement,
// then the event hand-off. Either every write commits or none does.
func (e *Executor) Execute(ctx context.Context, cmd Command) error {
	ctx, span := e.tracer.Start(ctx, "workflow.transition",
		trace.WithAttributes(
			attribute.Int64(otelhelper.SubprocessIDKey, cmd.SubprocessID),
			attribute.String(otelhelper.TransitionKey, string(cmd.Type)),
			attribute.String(otelhelper.CallerKey, cmd.Caller.Title),
		))
	defer span.End()

	descriptor, err := registry.Describe(cmd.Type)
	if err != nil {
		// Undescribed transitions are defects in the orchestrator.
		e.logger.ErrorContext(ctx, "Attempted transition with no descriptor",
			"transition", cmd.Type, "subprocess_id", cmd.SubprocessID, "error", err)
		otelhelper.SetError(span, err)

		return err
	}

	if cmd.Origin == nil || cmd.Destination == nil {
		err = NewInvariantError("transition %s on subprocess %d has no origin/destination unit", cmd.Type, cmd.SubprocessID)
		e.logger.ErrorContext(ctx, "Transition executed without unit pair", "error", err)

		return err
	}

	var event *events.TransitionCompleted

	err = e.persistence.WithTx(ctx, func(tx persistence.Tx) error {
		subprocess, err := tx.Subprocesses().GetForUpdate(ctx, cmd.SubprocessID)
		if err != nil {
			return err
		}

		for _, guard := range cmd.Guards {
			if err := guard(ctx, tx, subprocess); err != nil {
				return err
			}
		}

		process, err := tx.Processes().GetByID(ctx, subprocess.ProcessID)
		if err != nil {
			return err
		}

		for _, mutation := range cmd.Prepare {
			if err := mutation(ctx, tx, subprocess); err != nil {
				return err
			}
		}

		// The analysis record precedes the movement so its timestamp orders
		// before the hand-off it justifies.
		if descriptor.RecordsAnalysis() {
			analysis := &models.Analysis{
				ID:            uuid.New().String(),
				SubprocessID:  subprocess.ID,
				Stage:         descriptor.AnalysisStage,
				Action:        descriptor.AnalysisAction,
				Justification: cmd.AnalysisNotes,
				CallerTitle:   cmd.Caller.Title,
				Date:          time.Now().UTC(),
			}
			if err := tx.Analyses().Append(ctx, analysis); err != nil {
				return fmt.Errorf("failed to record analysis: %w", err)
			}
		}

		destination, err := registry.StateFor(process.Type, descriptor.DestinationStep)
		if err != nil {
			return NewInvariantError("resolving destination state of %s: %v", cmd.Type, err)
		}

		subprocess.Situacao = destination
		subprocess.UpdatedAt = time.Now().UTC()

		if err := tx.Subprocesses().Save(ctx, subprocess); err != nil {
			return fmt.Errorf("failed to persist subprocess: %w", err)
		}

		movement := &models.Movement{
			ID:                uuid.New().String(),
			SubprocessID:      subprocess.ID,
			OriginUnitID:      cmd.Origin.ID,
			DestinationUnitID: cmd.Destination.ID,
			Description:       movementDescription(descriptor, cmd.Notes),
			CallerTitle:       cmd.Caller.Title,
			Date:              time.Now().UTC(),
		}
		if err := tx.Movements().Append(ctx, movement); err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}

		transition := events.TransitionCompleted{
			BaseEvent:   events.NewBaseEvent(events.TransitionCompletedEvent, subprocess.ID),
			ProcessID:   subprocess.ProcessID,
			Transition:  cmd.Type,
			Situacao:    destination,
			Origin:      events.NewUnitRef(cmd.Origin),
			Destination: events.NewUnitRef(cmd.Destination),
			CallerTitle: cmd.Caller.Title,
			Description: movement.Description,
			Notes:       cmd.Notes,
			Alert:       descriptor.Alert,
			Email:       descriptor.Email,
		}
		event = &transition

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	span.SetAttributes(attribute.String(otelhelper.SituacaoKey, string(event.Situacao)))

	// Notifications are best-effort: the transition is already committed, so
	// dispatch failures are logged and swallowed.
	if e.dispatcher != nil {
		if err := e.dispatcher.Dispatch(ctx, event); err != nil {
			e.logger.ErrorContext(ctx, "Failed to dispatch transition event",
				"subprocess_id", cmd.SubprocessID, "transition", cmd.Type, "error", err)
		}
	}

	e.logger.InfoContext(ctx, "Transition applied",
		"subprocess_id", cmd.SubprocessID,
		"transition", cmd.Type,
		"situacao", event.Situacao,
		"origin", cmd.Origin.Sigla,
		"destination", cmd.Destination.Sigla)

	return nil
}

func movementDescription(descriptor registry.TransitionDescriptor, notes string) string {
	if notes == "" {
		return descriptor.Description
	}

	return descriptor.Description + ": " + notes
}
