package workflow

import (
	"context"
	"time"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/registry"
)

// CriarMapa drafts the competency map for a mapping subprocess whose cadastre
// was homologated. Revision subprocesses already carry a map from the
// previous pass.
func (o *Orchestrator) CriarMapa(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, process, _, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	if process.Type != models.ProcessTypeMapeamento {
		return NewValidationError("only mapping subprocesses have their map drafted; revisions keep the existing map")
	}

	admin, err := o.adminUnit(ctx)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionMapaCriado,
		Origin:       admin,
		Destination:  admin,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionCriarMapa),
			RequireInState(models.SituacaoCadastroHomologado),
		},
		Prepare: []Mutation{
			attachMap(),
		},
	})
}

// attachMap creates the competency map record on first drafting. A map
// reference, once set, is never cleared: states past this point assume it.
func attachMap() Mutation {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID != nil {
			return nil
		}

		competencyMap := &models.CompetencyMap{
			SubprocessID: subprocess.ID,
			CreatedAt:    time.Now().UTC(),
		}
		// Save assigns the map its identifier.
		if err := tx.Maps().Save(ctx, competencyMap); err != nil {
			return err
		}

		subprocess.MapID = &competencyMap.ID

		return nil
	}
}

// AjustarMapa records the administrative amendment of a map after suggestions
// or a validation devolution, so it can be made available again.
func (o *Orchestrator) AjustarMapa(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, _, _, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	admin, err := o.adminUnit(ctx)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionMapaAjustado,
		Origin:       admin,
		Destination:  admin,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionAjustarMapa),
			RequireInState(models.SituacaoMapaDisponibilizado, models.SituacaoMapaComSugestoes),
			RequireMap(),
		},
	})
}

// DisponibilizarMapa publishes the map for validation by the owning unit.
// Both linkage directions must hold: every competency linked to an activity
// and every activity linked to a competency.
func (o *Orchestrator) DisponibilizarMapa(ctx context.Context, subprocessID int64, caller models.Caller, prazo time.Time, observacoes string) error {
	subprocess, process, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	allowed := []models.Situacao{models.SituacaoMapaCriado, models.SituacaoMapaAjustado}
	if process.Type == models.ProcessTypeRevisao {
		allowed = append(allowed, models.SituacaoRevisaoCadastroHomologada)
	}

	admin, err := o.adminUnit(ctx)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionMapaDisponibilizado,
		Origin:       admin,
		Destination:  unit,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionDisponibilizarMapa),
			RequireInState(allowed...),
			RequireMap(),
			RequireAllCompetenciesLinked(),
			RequireAllActivitiesLinked(),
		},
		Prepare: []Mutation{
			clearSugestoes(),
			clearAnalyses(models.StageValidacao),
			setPrazoEtapa2(prazo),
			clearEtapa2Done(),
		},
	})
}

// ApresentarSugestoes stores the unit's free-text suggestions and hands the
// map to the superior unit.
func (o *Orchestrator) ApresentarSugestoes(ctx context.Context, subprocessID int64, caller models.Caller, sugestoes string) error {
	subprocess, _, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	if sugestoes == "" {
		return NewValidationError("suggestions text is required")
	}

	superior, err := o.requireSuperior(ctx, unit)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionSugestoesApresentadas,
		Origin:       unit,
		Destination:  superior,
		Caller:       caller,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionApresentarSugestoes),
			RequireInState(models.SituacaoMapaDisponibilizado),
			RequireMap(),
		},
		Prepare: []Mutation{
			storeSugestoes(sugestoes),
			clearAnalyses(models.StageValidacao),
		},
	})
}

// ValidarMapa validates the map on behalf of the owning unit, completing
// stage two, and hands it to the superior unit.
func (o *Orchestrator) ValidarMapa(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, _, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	superior, err := o.requireSuperior(ctx, unit)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionMapaValidado,
		Origin:       unit,
		Destination:  superior,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionValidarMapa),
			RequireInState(models.SituacaoMapaDisponibilizado, models.SituacaoMapaComSugestoes),
		},
		Prepare: []Mutation{
			markEtapa2Done(),
		},
	})
}

// DevolverValidacao returns the validated map to the owning unit, reopening
// stage two, with a DEVOLUCAO analysis carrying the justification.
func (o *Orchestrator) DevolverValidacao(ctx context.Context, subprocessID int64, caller models.Caller, justificativa string) error {
	subprocess, _, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	reviewer, err := o.currentUnit(ctx, subprocess, unit)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID:  subprocess.ID,
		Type:          registry.TransitionValidacaoDevolvida,
		Origin:        reviewer,
		Destination:   unit,
		Caller:        caller,
		AnalysisNotes: justificativa,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionDevolverValidacao),
			RequireInState(models.SituacaoMapaValidado),
		},
		Prepare: []Mutation{
			clearEtapa2Done(),
		},
	})
}

// AceitarValidacao accepts the validated map on behalf of the reviewing unit.
// With a further superior the subprocess escalates to it; at the top of the
// hierarchy the acceptance homologates the map directly.
func (o *Orchestrator) AceitarValidacao(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, _, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	reviewer, err := o.currentUnit(ctx, subprocess, unit)
	if err != nil {
		return err
	}

	next, err := o.persistence.Units().SuperiorOf(ctx, reviewer)
	if err != nil {
		return err
	}

	transition := registry.TransitionValidacaoAceita
	destination := next

	if next == nil {
		// Top of the hierarchy: no further unit to escalate to.
		transition = registry.TransitionValidacaoHomologada
		destination = reviewer
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID:  subprocess.ID,
		Type:          transition,
		Origin:        reviewer,
		Destination:   destination,
		Caller:        caller,
		AnalysisNotes: observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionAceitarValidacao),
			RequireInState(models.SituacaoMapaValidado),
		},
	})
}

// HomologarValidacao is the administrative homologation of the validated map.
func (o *Orchestrator) HomologarValidacao(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, _, _, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	admin, err := o.adminUnit(ctx)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionMapaHomologado,
		Origin:       admin,
		Destination:  admin,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionHomologarValidacao),
			RequireInState(models.SituacaoMapaValidado),
		},
	})
}
