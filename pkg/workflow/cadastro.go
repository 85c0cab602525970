package workflow

import (
	"context"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/registry"
)

// DisponibilizarCadastro publishes the unit's activity cadastre for analysis
// by the superior unit. Requires a drafted map with activities, every
// activity carrying knowledge, and the caller to be the unit head.
func (o *Orchestrator) DisponibilizarCadastro(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, process, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	inProgress, err := registry.StateFor(process.Type, registry.StepCadastroEmAndamento)
	if err != nil {
		return NewInvariantError("resolving cadastre state: %v", err)
	}

	superior, err := o.requireSuperior(ctx, unit)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionCadastroDisponibilizado,
		Origin:       unit,
		Destination:  superior,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequireInState(inProgress),
			RequireCallerIsUnitHead(caller),
			RequireMap(),
			RequireActivitiesExist(),
			RequireNoActivityWithoutKnowledge(),
		},
		Prepare: []Mutation{
			clearAnalyses(models.StageCadastro),
			markEtapa1Done(),
		},
	})
}

// DevolverCadastro returns the cadastre to the owning unit for adjustments,
// recording a DEVOLUCAO analysis with the reviewer's justification.
func (o *Orchestrator) DevolverCadastro(ctx context.Context, subprocessID int64, caller models.Caller, justificativa string) error {
	subprocess, process, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	available, err := registry.StateFor(process.Type, registry.StepCadastroDisponibilizado)
	if err != nil {
		return NewInvariantError("resolving cadastre state: %v", err)
	}

	reviewer, err := o.currentUnit(ctx, subprocess, unit)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID:  subprocess.ID,
		Type:          registry.TransitionCadastroDevolvido,
		Origin:        reviewer,
		Destination:   unit,
		Caller:        caller,
		AnalysisNotes: justificativa,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionDevolverCadastro),
			RequireInState(available),
		},
		Prepare: []Mutation{
			clearEtapa1Done(),
		},
	})
}

// AceitarCadastro accepts the cadastre on behalf of the reviewing unit and
// hands it to the next superior in the hierarchy.
func (o *Orchestrator) AceitarCadastro(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, process, unit, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	available, err := registry.StateFor(process.Type, registry.StepCadastroDisponibilizado)
	if err != nil {
		return NewInvariantError("resolving cadastre state: %v", err)
	}

	reviewer, err := o.currentUnit(ctx, subprocess, unit)
	if err != nil {
		return err
	}

	next, err := o.requireSuperior(ctx, reviewer)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID:  subprocess.ID,
		Type:          registry.TransitionCadastroAceito,
		Origin:        reviewer,
		Destination:   next,
		Caller:        caller,
		AnalysisNotes: observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionAceitarCadastro),
			RequireInState(available),
		},
	})
}

// HomologarCadastro is the administrative homologation of the cadastre.
func (o *Orchestrator) HomologarCadastro(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, process, _, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	available, err := registry.StateFor(process.Type, registry.StepCadastroDisponibilizado)
	if err != nil {
		return NewInvariantError("resolving cadastre state: %v", err)
	}

	admin, err := o.adminUnit(ctx)
	if err != nil {
		return err
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         registry.TransitionCadastroHomologado,
		Origin:       admin,
		Destination:  admin,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionHomologarCadastro),
			RequireInState(available),
		},
	})
}

// HomologarRevisaoCadastro homologates a revision cadastre. The impact check
// branches the destination: with impact the map must be re-homologated, with
// no impact the revision pass ends at the homologated map.
func (o *Orchestrator) HomologarRevisaoCadastro(ctx context.Context, subprocessID int64, caller models.Caller, observacoes string) error {
	subprocess, process, _, err := o.context(ctx, subprocessID)
	if err != nil {
		return err
	}

	if process.Type != models.ProcessTypeRevisao {
		return NewValidationError("process is not a revision")
	}

	admin, err := o.adminUnit(ctx)
	if err != nil {
		return err
	}

	hasImpact, err := o.impact.HasImpact(ctx, subprocess)
	if err != nil {
		return err
	}

	transition := registry.TransitionRevisaoSemImpacto
	if hasImpact {
		transition = registry.TransitionRevisaoCadastroHomologada
	}

	return o.executor.Execute(ctx, Command{
		SubprocessID: subprocess.ID,
		Type:         transition,
		Origin:       admin,
		Destination:  admin,
		Caller:       caller,
		Notes:        observacoes,
		Guards: []Guard{
			RequirePermission(o.perms, caller, ActionHomologarRevisaoCadastro),
			RequireInState(models.SituacaoRevisaoCadastroDisponibilizada),
		},
	})
}
