package workflow

import (
	"context"

	"github.com/sgcbr/sgcflow/pkg/models"
)

// Bulk variants apply a single-subprocess operation across a set of unit
// codes within one process. Each application runs in its own transaction and
// is fully independent: a failure on one unit never blocks or rolls back the
// others. Failures are collected and returned together as a *BulkError.

type singleOp func(ctx context.Context, subprocessID int64, caller models.Caller, notes string) error

func (o *Orchestrator) emBloco(ctx context.Context, processID int64, unitCodes []int64, caller models.Caller, notes string, op singleOp) error {
	failures := make(map[int64]error)

	for _, code := range unitCodes {
		unit, err := o.persistence.Units().ByCode(ctx, code)
		if err != nil {
			failures[code] = err

			continue
		}

		subprocess, err := o.persistence.Subprocesses().GetByProcessAndUnit(ctx, processID, unit.ID)
		if err != nil {
			failures[code] = err

			continue
		}

		if err := op(ctx, subprocess.ID, caller, notes); err != nil {
			failures[code] = err
		}
	}

	if len(failures) > 0 {
		o.logger.WarnContext(ctx, "Bulk operation completed with failures",
			"process_id", processID, "requested", len(unitCodes), "failed", len(failures))

		return &BulkError{Failures: failures}
	}

	return nil
}

// AceitarCadastroEmBloco accepts the cadastre of every listed unit.
func (o *Orchestrator) AceitarCadastroEmBloco(ctx context.Context, processID int64, unitCodes []int64, caller models.Caller, observacoes string) error {
	return o.emBloco(ctx, processID, unitCodes, caller, observacoes, o.AceitarCadastro)
}

// HomologarCadastroEmBloco homologates the cadastre of every listed unit.
func (o *Orchestrator) HomologarCadastroEmBloco(ctx context.Context, processID int64, unitCodes []int64, caller models.Caller, observacoes string) error {
	return o.emBloco(ctx, processID, unitCodes, caller, observacoes, o.HomologarCadastro)
}

// AceitarValidacaoEmBloco accepts the validated map of every listed unit.
func (o *Orchestrator) AceitarValidacaoEmBloco(ctx context.Context, processID int64, unitCodes []int64, caller models.Caller, observacoes string) error {
	return o.emBloco(ctx, processID, unitCodes, caller, observacoes, o.AceitarValidacao)
}

// HomologarValidacaoEmBloco homologates the validated map of every listed unit.
func (o *Orchestrator) HomologarValidacaoEmBloco(ctx context.Context, processID int64, unitCodes []int64, caller models.Caller, observacoes string) error {
	return o.emBloco(ctx, processID, unitCodes, caller, observacoes, o.HomologarValidacao)
}
