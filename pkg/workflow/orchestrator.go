package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// DefaultAdminSigla is the sigla of the administrative unit that runs the
// homologation steps.
const DefaultAdminSigla = "SEDOC"

// Action names the orchestrator hands to the permission check.
const (
	ActionDisponibilizarCadastro   = "cadastro.disponibilizar"
	ActionRegistrarAtividade       = "cadastro.registrar-atividade"
	ActionDevolverCadastro         = "cadastro.devolver"
	ActionAceitarCadastro          = "cadastro.aceitar"
	ActionHomologarCadastro        = "cadastro.homologar"
	ActionHomologarRevisaoCadastro = "cadastro.homologar-revisao"
	ActionCriarMapa                = "mapa.criar"
	ActionRegistrarCompetencia     = "mapa.registrar-competencia"
	ActionAjustarMapa              = "mapa.ajustar"
	ActionDisponibilizarMapa       = "mapa.disponibilizar"
	ActionApresentarSugestoes      = "mapa.apresentar-sugestoes"
	ActionValidarMapa              = "mapa.validar"
	ActionDevolverValidacao        = "validacao.devolver"
	ActionAceitarValidacao         = "validacao.aceitar"
	ActionHomologarValidacao       = "validacao.homologar"
)

// Orchestrator assembles the guard calls and executor calls of each workflow
// use case. Guards and the impact checker are read-only dependencies; nothing
// here calls back into the orchestrator.
type Orchestrator struct {
	persistence persistence.Persistence
	executor    *Executor
	perms       PermissionCheck
	impact      ImpactChecker
	adminSigla  string
	logger      *slog.Logger
}

// NewOrchestrator creates the workflow orchestrator.
func NewOrchestrator(
	p persistence.Persistence,
	executor *Executor,
	perms PermissionCheck,
	impact ImpactChecker,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		persistence: p,
		executor:    executor,
		perms:       perms,
		impact:      impact,
		adminSigla:  DefaultAdminSigla,
		logger:      logger.With("module", "workflow_orchestrator"),
	}
}

// WithAdminSigla overrides the administrative unit sigla.
func (o *Orchestrator) WithAdminSigla(sigla string) *Orchestrator {
	o.adminSigla = sigla

	return o
}

// context loads the subprocess, its process, and its owning unit. The state
// resolved here is advisory only; the executor re-reads and re-guards inside
// the transaction.
func (o *Orchestrator) context(ctx context.Context, subprocessID int64) (*models.Subprocess, *models.Process, *models.Unit, error) {
	subprocess, err := o.persistence.Subprocesses().GetByID(ctx, subprocessID)
	if err != nil {
		return nil, nil, nil, err
	}

	process, err := o.persistence.Processes().GetByID(ctx, subprocess.ProcessID)
	if err != nil {
		return nil, nil, nil, err
	}

	unit, err := o.persistence.Units().GetByID(ctx, subprocess.UnitID)
	if err != nil {
		return nil, nil, nil, err
	}

	return subprocess, process, unit, nil
}

// adminUnit resolves the administrative unit. Its absence is a structural
// defect, not a user error.
func (o *Orchestrator) adminUnit(ctx context.Context) (*models.Unit, error) {
	unit, err := o.persistence.Units().BySigla(ctx, o.adminSigla)
	if err != nil {
		if persistence.IsUnitNotFound(err) {
			return nil, NewInvariantError("administrative unit %s is not registered", o.adminSigla)
		}

		return nil, err
	}

	return unit, nil
}

// currentUnit resolves the unit currently holding the subprocess: the
// destination of the latest movement, or the owning unit before any hand-off.
func (o *Orchestrator) currentUnit(ctx context.Context, subprocess *models.Subprocess, owning *models.Unit) (*models.Unit, error) {
	latest, err := o.persistence.Movements().Latest(ctx, subprocess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current location of subprocess %d: %w", subprocess.ID, err)
	}

	if latest == nil {
		return owning, nil
	}

	return o.persistence.Units().GetByID(ctx, latest.DestinationUnitID)
}

// requireSuperior resolves the superior of a unit where the workflow
// structurally requires one.
func (o *Orchestrator) requireSuperior(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	superior, err := o.persistence.Units().SuperiorOf(ctx, unit)
	if err != nil {
		return nil, err
	}

	if superior == nil {
		return nil, NewInvariantError("unit %s has no superior unit", unit.Sigla)
	}

	return superior, nil
}

// Mutations shared by the operations.

func clearAnalyses(stage models.AnalysisStage) Mutation {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		return tx.Analyses().ClearForSubprocess(ctx, subprocess.ID, stage)
	}
}

func clearSugestoes() Mutation {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return nil
		}

		return tx.Maps().ClearSugestoes(ctx, *subprocess.MapID)
	}
}

func storeSugestoes(text string) Mutation {
	return func(ctx context.Context, tx persistence.Tx, subprocess *models.Subprocess) error {
		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		competencyMap, err := tx.Maps().GetByID(ctx, *subprocess.MapID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		competencyMap.Sugestoes = text
		competencyMap.SugestoesApresentadasEm = &now

		return tx.Maps().Save(ctx, competencyMap)
	}
}

func markEtapa1Done() Mutation {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		now := time.Now().UTC()
		subprocess.DataFimEtapa1 = &now

		return nil
	}
}

func clearEtapa1Done() Mutation {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		subprocess.DataFimEtapa1 = nil

		return nil
	}
}

func markEtapa2Done() Mutation {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		now := time.Now().UTC()
		subprocess.DataFimEtapa2 = &now

		return nil
	}
}

func clearEtapa2Done() Mutation {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		subprocess.DataFimEtapa2 = nil

		return nil
	}
}

func setPrazoEtapa2(prazo time.Time) Mutation {
	return func(_ context.Context, _ persistence.Tx, subprocess *models.Subprocess) error {
		subprocess.PrazoEtapa2 = &prazo

		return nil
	}
}
