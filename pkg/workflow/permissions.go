package workflow

import (
	"context"
	"fmt"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// actionKind classifies who may perform each orchestrator action.
type actionKind int

const (
	// kindUnitHead: the caller must head the subprocess's owning unit.
	kindUnitHead actionKind = iota
	// kindReviewer: the caller must head the unit currently holding the
	// subprocess (the reviewing superior).
	kindReviewer
	// kindAdmin: the caller must head the administrative unit.
	kindAdmin
)

var actionKinds = map[string]actionKind{
	ActionDisponibilizarCadastro:   kindUnitHead,
	ActionRegistrarAtividade:       kindUnitHead,
	ActionApresentarSugestoes:      kindUnitHead,
	ActionValidarMapa:              kindUnitHead,
	ActionDevolverCadastro:         kindReviewer,
	ActionAceitarCadastro:          kindReviewer,
	ActionDevolverValidacao:        kindReviewer,
	ActionAceitarValidacao:         kindReviewer,
	ActionHomologarCadastro:        kindAdmin,
	ActionHomologarRevisaoCadastro: kindAdmin,
	ActionCriarMapa:                kindAdmin,
	ActionRegistrarCompetencia:     kindAdmin,
	ActionAjustarMapa:              kindAdmin,
	ActionDisponibilizarMapa:       kindAdmin,
	ActionHomologarValidacao:       kindAdmin,
}

// HierarchyPermissions is the default permission check: it derives the
// caller's rights from the unit hierarchy alone (unit head, reviewing
// superior head, administrative unit head). All reads go through the
// transaction handed to Verify, so the check sees the same snapshot the
// transition operates on.
type HierarchyPermissions struct {
	adminSigla string
}

// NewHierarchyPermissions creates the hierarchy-backed permission check.
func NewHierarchyPermissions(adminSigla string) *HierarchyPermissions {
	if adminSigla == "" {
		adminSigla = DefaultAdminSigla
	}

	return &HierarchyPermissions{adminSigla: adminSigla}
}

// Verify implements PermissionCheck.
func (h *HierarchyPermissions) Verify(ctx context.Context, tx persistence.Tx, caller models.Caller, action string, subprocess *models.Subprocess) error {
	kind, ok := actionKinds[action]
	if !ok {
		return NewInvariantError("no permission rule registered for action %s", action)
	}

	switch kind {
	case kindUnitHead:
		return h.verifyUnitHead(ctx, tx, caller, action, subprocess.UnitID)
	case kindReviewer:
		return h.verifyReviewer(ctx, tx, caller, action, subprocess)
	case kindAdmin:
		return h.verifyAdmin(ctx, tx, caller, action)
	}

	return NewInvariantError("unhandled permission kind for action %s", action)
}

func (h *HierarchyPermissions) verifyUnitHead(ctx context.Context, tx persistence.Tx, caller models.Caller, action string, unitID int64) error {
	unit, err := tx.Units().GetByID(ctx, unitID)
	if err != nil {
		return fmt.Errorf("failed to load unit %d: %w", unitID, err)
	}

	if !unit.IsHead(caller) {
		return &AccessDeniedError{CallerTitle: caller.Title, Action: action}
	}

	return nil
}

// verifyReviewer accepts the head of the unit currently holding the
// subprocess, or the head of the owning unit's superior before any hand-off.
func (h *HierarchyPermissions) verifyReviewer(ctx context.Context, tx persistence.Tx, caller models.Caller, action string, subprocess *models.Subprocess) error {
	latest, err := tx.Movements().Latest(ctx, subprocess.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve current location of subprocess %d: %w", subprocess.ID, err)
	}

	var holderID int64

	if latest != nil {
		holderID = latest.DestinationUnitID
	} else {
		owning, err := tx.Units().GetByID(ctx, subprocess.UnitID)
		if err != nil {
			return fmt.Errorf("failed to load unit %d: %w", subprocess.UnitID, err)
		}

		superior, err := tx.Units().SuperiorOf(ctx, owning)
		if err != nil {
			return err
		}

		if superior == nil {
			return &AccessDeniedError{CallerTitle: caller.Title, Action: action}
		}

		holderID = superior.ID
	}

	holder, err := tx.Units().GetByID(ctx, holderID)
	if err != nil {
		return fmt.Errorf("failed to load unit %d: %w", holderID, err)
	}

	if holder.IsHead(caller) {
		return nil
	}

	// The administrative unit reviews on behalf of any level.
	if err := h.verifyAdmin(ctx, tx, caller, action); err == nil {
		return nil
	}

	return &AccessDeniedError{CallerTitle: caller.Title, Action: action}
}

func (h *HierarchyPermissions) verifyAdmin(ctx context.Context, tx persistence.Tx, caller models.Caller, action string) error {
	admin, err := tx.Units().BySigla(ctx, h.adminSigla)
	if err != nil {
		if persistence.IsUnitNotFound(err) {
			return NewInvariantError("administrative unit %s is not registered", h.adminSigla)
		}

		return err
	}

	if !admin.IsHead(caller) {
		return &AccessDeniedError{CallerTitle: caller.Title, Action: action}
	}

	return nil
}
