// Package registry is the single source of truth for legal subprocess states
// and static transition metadata.
package registry

import (
	"errors"
	"fmt"

	"github.com/sgcbr/sgcflow/pkg/models"
)

// ErrUnknownTransition indicates a transition type with no registered
// descriptor. Reaching it is a programming error, not a user-facing failure.
var ErrUnknownTransition = errors.New("unknown transition type")

// Step is a process-type-agnostic logical position in the workflow. The
// concrete state constant is resolved per process type by StateFor, which
// keeps the transition executor agnostic of the track it runs on.
type Step string

const (
	StepNaoIniciado             Step = "nao-iniciado"
	StepCadastroEmAndamento     Step = "cadastro-em-andamento"
	StepCadastroDisponibilizado Step = "cadastro-disponibilizado"
	StepCadastroHomologado      Step = "cadastro-homologado"
	StepMapaCriado              Step = "mapa-criado"
	StepMapaDisponibilizado     Step = "mapa-disponibilizado"
	StepMapaComSugestoes        Step = "mapa-com-sugestoes"
	StepMapaValidado            Step = "mapa-validado"
	StepMapaAjustado            Step = "mapa-ajustado"
	StepMapaHomologado          Step = "mapa-homologado"
)

// TransitionType names one legal edge of the workflow state machine.
type TransitionType string

const (
	TransitionCadastroDisponibilizado   TransitionType = "cadastro.disponibilizado"
	TransitionCadastroDevolvido         TransitionType = "cadastro.devolvido"
	TransitionCadastroAceito            TransitionType = "cadastro.aceito"
	TransitionCadastroHomologado        TransitionType = "cadastro.homologado"
	TransitionMapaCriado                TransitionType = "mapa.criado"
	TransitionMapaAjustado              TransitionType = "mapa.ajustado"
	TransitionMapaDisponibilizado       TransitionType = "mapa.disponibilizado"
	TransitionSugestoesApresentadas     TransitionType = "mapa.sugestoes-apresentadas"
	TransitionMapaValidado              TransitionType = "mapa.validado"
	TransitionValidacaoDevolvida        TransitionType = "validacao.devolvida"
	TransitionValidacaoAceita           TransitionType = "validacao.aceita"
	TransitionValidacaoHomologada       TransitionType = "validacao.homologada"
	TransitionMapaHomologado            TransitionType = "mapa.homologado"
	TransitionRevisaoCadastroHomologada TransitionType = "revisao.cadastro-homologada"
	TransitionRevisaoSemImpacto         TransitionType = "revisao.sem-impacto"
)

// TransitionDescriptor is the static metadata of one legal edge.
type TransitionDescriptor struct {
	Type            TransitionType
	DestinationStep Step
	Description     string // audit-trail description template
	Alert           bool   // transition creates an alert-board entry
	Email           bool   // transition sends an e-mail
	AnalysisAction  models.AnalysisAction // empty when the transition records no decision
	AnalysisStage   models.AnalysisStage
}

// RecordsAnalysis reports whether the transition writes an analysis record.
func (d TransitionDescriptor) RecordsAnalysis() bool {
	return d.AnalysisAction != ""
}

var descriptors = map[TransitionType]TransitionDescriptor{
	TransitionCadastroDisponibilizado: {
		Type:            TransitionCadastroDisponibilizado,
		DestinationStep: StepCadastroDisponibilizado,
		Description:     "Cadastro de atividades e conhecimentos disponibilizado",
		Alert:           true,
		Email:           true,
	},
	TransitionCadastroDevolvido: {
		Type:            TransitionCadastroDevolvido,
		DestinationStep: StepCadastroEmAndamento,
		Description:     "Cadastro de atividades e conhecimentos devolvido para ajustes",
		Alert:           true,
		Email:           true,
		AnalysisAction:  models.AnalysisDevolucao,
		AnalysisStage:   models.StageCadastro,
	},
	TransitionCadastroAceito: {
		Type:            TransitionCadastroAceito,
		DestinationStep: StepCadastroDisponibilizado,
		Description:     "Cadastro de atividades e conhecimentos aceito",
		Email:           true,
		AnalysisAction:  models.AnalysisAceite,
		AnalysisStage:   models.StageCadastro,
	},
	TransitionCadastroHomologado: {
		Type:            TransitionCadastroHomologado,
		DestinationStep: StepCadastroHomologado,
		Description:     "Cadastro de atividades e conhecimentos homologado",
	},
	TransitionMapaCriado: {
		Type:            TransitionMapaCriado,
		DestinationStep: StepMapaCriado,
		Description:     "Mapa de competências criado",
	},
	TransitionMapaAjustado: {
		Type:            TransitionMapaAjustado,
		DestinationStep: StepMapaAjustado,
		Description:     "Mapa de competências ajustado",
	},
	TransitionMapaDisponibilizado: {
		Type:            TransitionMapaDisponibilizado,
		DestinationStep: StepMapaDisponibilizado,
		Description:     "Mapa de competências disponibilizado para validação",
		Alert:           true,
		Email:           true,
	},
	TransitionSugestoesApresentadas: {
		Type:            TransitionSugestoesApresentadas,
		DestinationStep: StepMapaComSugestoes,
		Description:     "Sugestões apresentadas para o mapa de competências",
		Alert:           true,
		Email:           true,
	},
	TransitionMapaValidado: {
		Type:            TransitionMapaValidado,
		DestinationStep: StepMapaValidado,
		Description:     "Mapa de competências validado",
		Alert:           true,
		Email:           true,
	},
	TransitionValidacaoDevolvida: {
		Type:            TransitionValidacaoDevolvida,
		DestinationStep: StepMapaDisponibilizado,
		Description:     "Validação do mapa de competências devolvida para ajustes",
		Alert:           true,
		Email:           true,
		AnalysisAction:  models.AnalysisDevolucao,
		AnalysisStage:   models.StageValidacao,
	},
	TransitionValidacaoAceita: {
		Type:            TransitionValidacaoAceita,
		DestinationStep: StepMapaValidado,
		Description:     "Validação do mapa de competências aceita",
		Email:           true,
		AnalysisAction:  models.AnalysisAceite,
		AnalysisStage:   models.StageValidacao,
	},
	TransitionValidacaoHomologada: {
		Type:            TransitionValidacaoHomologada,
		DestinationStep: StepMapaHomologado,
		Description:     "Validação aceita e mapa de competências homologado",
		Email:           true,
		AnalysisAction:  models.AnalysisAceite,
		AnalysisStage:   models.StageValidacao,
	},
	TransitionMapaHomologado: {
		Type:            TransitionMapaHomologado,
		DestinationStep: StepMapaHomologado,
		Description:     "Mapa de competências homologado",
	},
	TransitionRevisaoCadastroHomologada: {
		Type:            TransitionRevisaoCadastroHomologada,
		DestinationStep: StepCadastroHomologado,
		Description:     "Revisão do cadastro homologada com impactos no mapa",
	},
	TransitionRevisaoSemImpacto: {
		Type:            TransitionRevisaoSemImpacto,
		DestinationStep: StepMapaHomologado,
		Description:     "Revisão do cadastro homologada sem impactos no mapa",
	},
}

// Describe resolves the descriptor for a transition type. An unknown type is
// a defect in the orchestrator, surfaced as ErrUnknownTransition.
func Describe(t TransitionType) (TransitionDescriptor, error) {
	descriptor, ok := descriptors[t]
	if !ok {
		return TransitionDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownTransition, t)
	}

	return descriptor, nil
}

// Types returns every registered transition type.
func Types() []TransitionType {
	types := make([]TransitionType, 0, len(descriptors))
	for t := range descriptors {
		types = append(types, t)
	}

	return types
}

// mapSteps are shared between the two tracks; only the cadastre segment
// diverges per process type.
var mapSteps = map[Step]models.Situacao{
	StepNaoIniciado:         models.SituacaoNaoIniciado,
	StepMapaCriado:          models.SituacaoMapaCriado,
	StepMapaDisponibilizado: models.SituacaoMapaDisponibilizado,
	StepMapaComSugestoes:    models.SituacaoMapaComSugestoes,
	StepMapaValidado:        models.SituacaoMapaValidado,
	StepMapaAjustado:        models.SituacaoMapaAjustado,
	StepMapaHomologado:      models.SituacaoMapaHomologado,
}

var mapeamentoSteps = map[Step]models.Situacao{
	StepCadastroEmAndamento:     models.SituacaoCadastroEmAndamento,
	StepCadastroDisponibilizado: models.SituacaoCadastroDisponibilizado,
	StepCadastroHomologado:      models.SituacaoCadastroHomologado,
}

var revisaoSteps = map[Step]models.Situacao{
	StepCadastroEmAndamento:     models.SituacaoRevisaoCadastroEmAndamento,
	StepCadastroDisponibilizado: models.SituacaoRevisaoCadastroDisponibilizada,
	StepCadastroHomologado:      models.SituacaoRevisaoCadastroHomologada,
}

// StateFor resolves the concrete state constant for a logical step on the
// given track. The two tracks never share cadastre states, so a subprocess
// can never cross from one track into the other.
func StateFor(processType models.ProcessType, step Step) (models.Situacao, error) {
	if situacao, ok := mapSteps[step]; ok {
		return situacao, nil
	}

	var track map[Step]models.Situacao

	switch processType {
	case models.ProcessTypeMapeamento:
		track = mapeamentoSteps
	case models.ProcessTypeRevisao:
		track = revisaoSteps
	default:
		return "", fmt.Errorf("unknown process type: %s", processType)
	}

	situacao, ok := track[step]
	if !ok {
		return "", fmt.Errorf("no state registered for step %s on track %s", step, processType)
	}

	return situacao, nil
}
