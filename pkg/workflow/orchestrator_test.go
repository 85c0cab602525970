package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgcbr/sgcflow/pkg/mocks"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence/memory"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

// Caller titles match the unit heads registered by newFixture.
var (
	callerAdmin  = models.Caller{Title: "T-SEDOC", Name: "Ana"}
	callerCogep  = models.Caller{Title: "T-COGEP", Name: "Bruno"}
	callerSecao  = models.Caller{Title: "T-SECAO", Name: "Carla"}
	callerNobody = models.Caller{Title: "T-NOBODY", Name: "Davi"}
)

type fixture struct {
	store        *memory.Persistence
	orchestrator *workflow.Orchestrator
	impact       *mocks.MockImpactChecker
	process      *models.Process
	subprocess   *models.Subprocess
	sedoc        *models.Unit
	cogep        *models.Unit
	secao        *models.Unit
}

// newFixture builds a three-level hierarchy (SEDOC > COGEP > SECAO) with one
// subprocess owned by SECAO, plus a fully linked competency map so the
// content guards pass.
func newFixture(t *testing.T, processType models.ProcessType, situacao models.Situacao) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewPersistence()

	sedoc := &models.Unit{Code: 100, Sigla: "SEDOC", Name: "Secretaria de Documentação", Email: "sedoc@example.org", TitularID: "T-SEDOC"}
	require.NoError(t, store.Units().Save(ctx, sedoc))

	cogep := &models.Unit{Code: 200, Sigla: "COGEP", Name: "Coordenadoria de Gestão de Pessoas", Email: "cogep@example.org", TitularID: "T-COGEP", SuperiorID: &sedoc.ID}
	require.NoError(t, store.Units().Save(ctx, cogep))

	secao := &models.Unit{Code: 300, Sigla: "SECAO", Name: "Seção de Protocolo", Email: "secao@example.org", TitularID: "T-SECAO", SuperiorID: &cogep.ID}
	require.NoError(t, store.Units().Save(ctx, secao))

	process := &models.Process{Type: processType, Description: "Ciclo 2026"}
	require.NoError(t, store.Processes().Save(ctx, process))

	competencyMap := &models.CompetencyMap{SubprocessID: 1}
	require.NoError(t, store.Maps().Save(ctx, competencyMap))

	store.PutActivity(models.Activity{
		ID: 1, MapID: competencyMap.ID, Description: "instruir processos",
		Knowledge:     []models.Knowledge{{ID: 1, ActivityID: 1, Description: "legislação de pessoal"}},
		CompetencyIDs: []int64{1},
	})
	store.PutCompetency(models.Competency{ID: 1, MapID: competencyMap.ID, Description: "análise processual", ActivityIDs: []int64{1}})

	subprocess := &models.Subprocess{
		ProcessID: process.ID,
		UnitID:    secao.ID,
		Situacao:  situacao,
		MapID:     &competencyMap.ID,
	}
	require.NoError(t, store.Subprocesses().Save(ctx, subprocess))

	impact := &mocks.MockImpactChecker{}
	executor := workflow.NewExecutor(store, nil, slog.Default())
	perms := workflow.NewHierarchyPermissions(workflow.DefaultAdminSigla)
	orchestrator := workflow.NewOrchestrator(store, executor, perms, impact, slog.Default())

	return &fixture{
		store:        store,
		orchestrator: orchestrator,
		impact:       impact,
		process:      process,
		subprocess:   subprocess,
		sedoc:        sedoc,
		cogep:        cogep,
		secao:        secao,
	}
}

func (f *fixture) situacao(t *testing.T) models.Situacao {
	t.Helper()

	subprocess, err := f.store.Subprocesses().GetByID(context.Background(), f.subprocess.ID)
	require.NoError(t, err)

	return subprocess.Situacao
}

func (f *fixture) reload(t *testing.T) *models.Subprocess {
	t.Helper()

	subprocess, err := f.store.Subprocesses().GetByID(context.Background(), f.subprocess.ID)
	require.NoError(t, err)

	return subprocess
}

func TestMapeamentoLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)
	o := f.orchestrator

	// Stage one: cadastre.
	require.NoError(t, o.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))
	assert.Equal(t, models.SituacaoCadastroDisponibilizado, f.situacao(t))
	require.NotNil(t, f.reload(t).DataFimEtapa1)

	require.NoError(t, o.AceitarCadastro(ctx, f.subprocess.ID, callerCogep, "de acordo"))
	assert.Equal(t, models.SituacaoCadastroDisponibilizado, f.situacao(t))

	require.NoError(t, o.HomologarCadastro(ctx, f.subprocess.ID, callerAdmin, ""))
	assert.Equal(t, models.SituacaoCadastroHomologado, f.situacao(t))

	// Map drafting and validation.
	require.NoError(t, o.CriarMapa(ctx, f.subprocess.ID, callerAdmin, ""))
	assert.Equal(t, models.SituacaoMapaCriado, f.situacao(t))
	require.NotNil(t, f.reload(t).MapID)

	prazo := time.Now().UTC().Add(30 * 24 * time.Hour)
	require.NoError(t, o.DisponibilizarMapa(ctx, f.subprocess.ID, callerAdmin, prazo, ""))
	assert.Equal(t, models.SituacaoMapaDisponibilizado, f.situacao(t))
	require.NotNil(t, f.reload(t).PrazoEtapa2)

	require.NoError(t, o.ApresentarSugestoes(ctx, f.subprocess.ID, callerSecao, "incluir atividade de atendimento"))
	assert.Equal(t, models.SituacaoMapaComSugestoes, f.situacao(t))

	suggested, err := f.store.Maps().GetByID(ctx, *f.reload(t).MapID)
	require.NoError(t, err)
	assert.Equal(t, "incluir atividade de atendimento", suggested.Sugestoes)
	require.NotNil(t, suggested.SugestoesApresentadasEm)

	require.NoError(t, o.AjustarMapa(ctx, f.subprocess.ID, callerAdmin, ""))
	assert.Equal(t, models.SituacaoMapaAjustado, f.situacao(t))

	// A second round clears the previous suggestion.
	require.NoError(t, o.DisponibilizarMapa(ctx, f.subprocess.ID, callerAdmin, prazo, ""))

	cleared, err := f.store.Maps().GetByID(ctx, *f.reload(t).MapID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Sugestoes)

	require.NoError(t, o.ValidarMapa(ctx, f.subprocess.ID, callerSecao, ""))
	assert.Equal(t, models.SituacaoMapaValidado, f.situacao(t))
	require.NotNil(t, f.reload(t).DataFimEtapa2)

	// COGEP accepts and escalates; SEDOC homologates.
	require.NoError(t, o.AceitarValidacao(ctx, f.subprocess.ID, callerCogep, ""))
	assert.Equal(t, models.SituacaoMapaValidado, f.situacao(t))

	require.NoError(t, o.HomologarValidacao(ctx, f.subprocess.ID, callerAdmin, ""))
	assert.Equal(t, models.SituacaoMapaHomologado, f.situacao(t))

	// Every hand-off left a movement; the audit trail is complete.
	movements, err := f.store.Movements().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 11)
}

func TestDisponibilizarDevolverRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)
	o := f.orchestrator

	require.NoError(t, o.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))
	require.NoError(t, o.DevolverCadastro(ctx, f.subprocess.ID, callerCogep, "cadastro incompleto"))

	returned := f.reload(t)
	assert.Equal(t, models.SituacaoCadastroEmAndamento, returned.Situacao)
	assert.Nil(t, returned.DataFimEtapa1, "devolution reopens stage one")

	analyses, err := f.store.Analyses().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, models.AnalysisDevolucao, analyses[0].Action)
	assert.Equal(t, "cadastro incompleto", analyses[0].Justification)

	// Making the cadastre available again discards the stale devolution.
	require.NoError(t, o.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))

	analyses, err = f.store.Analyses().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestRepeatedDevolucaoIsRejectedWithoutWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)
	o := f.orchestrator

	require.NoError(t, o.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))
	require.NoError(t, o.DevolverCadastro(ctx, f.subprocess.ID, callerCogep, "primeira devolução"))

	movementsBefore, err := f.store.Movements().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	analysesBefore, err := f.store.Analyses().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)

	err = o.DevolverCadastro(ctx, f.subprocess.ID, callerCogep, "segunda devolução")
	require.Error(t, err)
	assert.True(t, workflow.IsInvalidState(err))

	var stateErr *workflow.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, models.SituacaoCadastroEmAndamento, stateErr.Current)

	movementsAfter, err := f.store.Movements().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	analysesAfter, err := f.store.Analyses().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)

	assert.Len(t, movementsAfter, len(movementsBefore))
	assert.Len(t, analysesAfter, len(analysesBefore))
}

func TestDisponibilizarCadastroPreconditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("activity without knowledge blocks publication", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)

		f.store.PutActivity(models.Activity{ID: 2, MapID: *f.subprocess.MapID, Description: "atender o público"})

		err := f.orchestrator.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, "")
		require.Error(t, err)
		assert.True(t, workflow.IsValidationFailed(err))

		var validation *workflow.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, []string{"atender o público"}, validation.Items)
	})

	t.Run("only the unit head may publish", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)

		err := f.orchestrator.DisponibilizarCadastro(ctx, f.subprocess.ID, callerCogep, "")
		assert.True(t, workflow.IsAccessDenied(err))
	})
}

func TestAceitarValidacaoAtTopOfHierarchyHomologates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoMapaDisponibilizado)
	o := f.orchestrator

	require.NoError(t, o.ValidarMapa(ctx, f.subprocess.ID, callerSecao, ""))
	require.NoError(t, o.AceitarValidacao(ctx, f.subprocess.ID, callerCogep, ""))

	// The subprocess now sits with SEDOC, the hierarchy root. Its acceptance
	// homologates the map directly instead of escalating further.
	movementsBefore, err := f.store.Movements().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)

	require.NoError(t, o.AceitarValidacao(ctx, f.subprocess.ID, callerAdmin, ""))
	assert.Equal(t, models.SituacaoMapaHomologado, f.situacao(t))

	movements, err := f.store.Movements().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	require.Len(t, movements, len(movementsBefore)+1)
	assert.Equal(t, f.sedoc.ID, movements[0].OriginUnitID)
	assert.Equal(t, f.sedoc.ID, movements[0].DestinationUnitID)
}

func TestDevolverValidacaoReopensStageTwo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoMapaDisponibilizado)
	o := f.orchestrator

	require.NoError(t, o.ValidarMapa(ctx, f.subprocess.ID, callerSecao, ""))
	require.NotNil(t, f.reload(t).DataFimEtapa2)

	require.NoError(t, o.DevolverValidacao(ctx, f.subprocess.ID, callerCogep, "mapa não reflete as atividades"))

	returned := f.reload(t)
	assert.Equal(t, models.SituacaoMapaDisponibilizado, returned.Situacao)
	assert.Nil(t, returned.DataFimEtapa2)

	analyses, err := f.store.Analyses().BySubprocess(ctx, f.subprocess.ID)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, models.StageValidacao, analyses[0].Stage)
	assert.Equal(t, models.AnalysisDevolucao, analyses[0].Action)
}

func TestHomologarRevisaoCadastro(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("with impact the map goes back through validation", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeRevisao, models.SituacaoRevisaoCadastroDisponibilizada)
		f.impact.On("HasImpact", mock.Anything, mock.Anything).Return(true, nil)

		require.NoError(t, f.orchestrator.HomologarRevisaoCadastro(ctx, f.subprocess.ID, callerAdmin, ""))
		assert.Equal(t, models.SituacaoRevisaoCadastroHomologada, f.situacao(t))
		f.impact.AssertExpectations(t)
	})

	t.Run("without impact the revision ends at the homologated map", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeRevisao, models.SituacaoRevisaoCadastroDisponibilizada)
		f.impact.On("HasImpact", mock.Anything, mock.Anything).Return(false, nil)

		require.NoError(t, f.orchestrator.HomologarRevisaoCadastro(ctx, f.subprocess.ID, callerAdmin, ""))
		assert.Equal(t, models.SituacaoMapaHomologado, f.situacao(t))
	})

	t.Run("rejected on a mapping process", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroDisponibilizado)

		err := f.orchestrator.HomologarRevisaoCadastro(ctx, f.subprocess.ID, callerAdmin, "")
		assert.True(t, workflow.IsValidationFailed(err))
	})
}

func TestCriarMapaRejectsRevisao(t *testing.T) {
	t.Parallel()

	f := newFixture(t, models.ProcessTypeRevisao, models.SituacaoRevisaoCadastroHomologada)

	err := f.orchestrator.CriarMapa(context.Background(), f.subprocess.ID, callerAdmin, "")
	assert.True(t, workflow.IsValidationFailed(err))
}

func TestRevisaoTrackKeepsItsOwnStates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, models.ProcessTypeRevisao, models.SituacaoRevisaoCadastroEmAndamento)
	o := f.orchestrator

	require.NoError(t, o.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))
	assert.Equal(t, models.SituacaoRevisaoCadastroDisponibilizada, f.situacao(t))

	require.NoError(t, o.DevolverCadastro(ctx, f.subprocess.ID, callerCogep, "revisar atividade 2"))
	assert.Equal(t, models.SituacaoRevisaoCadastroEmAndamento, f.situacao(t))
}

func TestPermissionDenials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reviewer actions reject the owning unit head", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)

		require.NoError(t, f.orchestrator.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))

		err := f.orchestrator.AceitarCadastro(ctx, f.subprocess.ID, callerSecao, "")
		assert.True(t, workflow.IsAccessDenied(err))
	})

	t.Run("admin head reviews on behalf of any level", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroEmAndamento)

		require.NoError(t, f.orchestrator.DisponibilizarCadastro(ctx, f.subprocess.ID, callerSecao, ""))
		assert.NoError(t, f.orchestrator.DevolverCadastro(ctx, f.subprocess.ID, callerAdmin, "ajustar descrições"))
	})

	t.Run("administrative actions reject everyone else", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroDisponibilizado)

		err := f.orchestrator.HomologarCadastro(ctx, f.subprocess.ID, callerNobody, "")
		assert.True(t, workflow.IsAccessDenied(err))
	})
}

func TestBulkOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// addUnit registers a sibling unit under COGEP with its own subprocess.
	addUnit := func(t *testing.T, f *fixture, code int64, sigla string, situacao models.Situacao) *models.Subprocess {
		t.Helper()

		unit := &models.Unit{Code: code, Sigla: sigla, Name: sigla, TitularID: "T-" + sigla, SuperiorID: &f.cogep.ID}
		require.NoError(t, f.store.Units().Save(ctx, unit))

		subprocess := &models.Subprocess{ProcessID: f.process.ID, UnitID: unit.ID, Situacao: situacao}
		require.NoError(t, f.store.Subprocesses().Save(ctx, subprocess))

		return subprocess
	}

	t.Run("accepts every listed unit", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroDisponibilizado)
		other := addUnit(t, f, 301, "SEPRO", models.SituacaoCadastroDisponibilizado)

		err := f.orchestrator.HomologarCadastroEmBloco(ctx, f.process.ID, []int64{300, 301}, callerAdmin, "")
		require.NoError(t, err)

		assert.Equal(t, models.SituacaoCadastroHomologado, f.situacao(t))

		reloaded, err := f.store.Subprocesses().GetByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SituacaoCadastroHomologado, reloaded.Situacao)
	})

	t.Run("failures are collected per unit and successes stand", func(t *testing.T) {
		f := newFixture(t, models.ProcessTypeMapeamento, models.SituacaoCadastroDisponibilizado)
		addUnit(t, f, 301, "SEPRO", models.SituacaoCadastroEmAndamento)

		err := f.orchestrator.HomologarCadastroEmBloco(ctx, f.process.ID, []int64{300, 301, 999}, callerAdmin, "")
		require.Error(t, err)

		var bulk *workflow.BulkError
		require.True(t, errors.As(err, &bulk))
		require.Len(t, bulk.Failures, 2)
		assert.True(t, workflow.IsInvalidState(bulk.Failures[301]))
		assert.Error(t, bulk.Failures[999])

		// The unit that could be homologated was.
		assert.Equal(t, models.SituacaoCadastroHomologado, f.situacao(t))
	})
}
