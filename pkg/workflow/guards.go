package workflow

import (
	"context"
	"fmt"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// Guard is a read-only precondition evaluated against the freshly-read
// subprocess inside the transition's transaction. Guards never write.
type Guard func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error

// RequireInState is the universal transition guard: the persisted state at
// transaction start must be one of the allowed states.
func RequireInState(allowed ...models.Situacao) Guard {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		for _, situacao := range allowed {
			if subprocess.Situacao == situacao {
				return nil
			}
		}

		return NewInvalidStateError(subprocess.ID, subprocess.Situacao, allowed...)
	}
}

// RequireMap demands the subprocess to reference a competency map.
func RequireMap() Guard {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		return nil
	}
}

// RequireActivitiesExist demands the subprocess's map to have at least one
// registered activity.
func RequireActivitiesExist() Guard {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		activities, err := tx.Maps().Activities(ctx, *subprocess.MapID)
		if err != nil {
			return fmt.Errorf("failed to load activities: %w", err)
		}

		if len(activities) == 0 {
			return NewValidationError("no activities registered")
		}

		return nil
	}
}

// RequireNoActivityWithoutKnowledge demands every registered activity to have
// at least one knowledge item; the failure lists the offending activities.
func RequireNoActivityWithoutKnowledge() Guard {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		activities, err := tx.Maps().Activities(ctx, *subprocess.MapID)
		if err != nil {
			return fmt.Errorf("failed to load activities: %w", err)
		}

		var offending []string

		for _, activity := range activities {
			if !activity.HasKnowledge() {
				offending = append(offending, activity.Description)
			}
		}

		if len(offending) > 0 {
			return NewValidationError("activities without knowledge items", offending...)
		}

		return nil
	}
}

// RequireAllCompetenciesLinked demands every competency of the map to be
// linked to at least one activity.
func RequireAllCompetenciesLinked() Guard {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		competencies, err := tx.Maps().Competencies(ctx, *subprocess.MapID)
		if err != nil {
			return fmt.Errorf("failed to load competencies: %w", err)
		}

		var offending []string

		for _, competency := range competencies {
			if len(competency.ActivityIDs) == 0 {
				offending = append(offending, competency.Description)
			}
		}

		if len(offending) > 0 {
			return NewValidationError("competencies not linked to any activity", offending...)
		}

		return nil
	}
}

// RequireAllActivitiesLinked demands every activity of the map to be linked
// to at least one competency. Both directions are checked before a map can
// be published for validation.
func RequireAllActivitiesLinked() Guard {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		activities, err := tx.Maps().Activities(ctx, *subprocess.MapID)
		if err != nil {
			return fmt.Errorf("failed to load activities: %w", err)
		}

		var offending []string

		for _, activity := range activities {
			if len(activity.CompetencyIDs) == 0 {
				offending = append(offending, activity.Description)
			}
		}

		if len(offending) > 0 {
			return NewValidationError("activities not linked to any competency", offending...)
		}

		return nil
	}
}

// RequireCallerIsUnitHead demands the caller to be the registered head of the
// subprocess's unit.
func RequireCallerIsUnitHead(caller models.Caller) Guard {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		unit, err := tx.Units().GetByID(ctx, subprocess.UnitID)
		if err != nil {
			return fmt.Errorf("failed to load unit %d: %w", subprocess.UnitID, err)
		}

		if !unit.IsHead(caller) {
			return &AccessDeniedError{CallerTitle: caller.Title, Action: "act as unit head of " + unit.Sigla}
		}

		return nil
	}
}

// RequirePermission delegates to the caller-supplied permission check. The
// hierarchy is resolved through the transition's own transaction.
func RequirePermission(check PermissionCheck, caller models.Caller, action string) Guard {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		return check.Verify(ctx, tx, caller, action, subprocess)
	}
}

// PermissionCheck is the pre-validated authorization callback consumed by the
// orchestrator; implementations read through the supplied transaction and
// never mutate.
type PermissionCheck interface {
	Verify(ctx context.Context, tx persistence.Tx, caller models.Caller, action string, subprocess *models.Subprocess) error
}

// ImpactChecker is the read-only comparison that tells whether a revision
// changed the competency map enough to require re-homologation.
type ImpactChecker interface {
	HasImpact(ctx context.Context, subprocess *models.Subprocess) (bool, error)
}
