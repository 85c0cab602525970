// Package models defines the core domain models for the competency-mapping workflow.
package models

import "time"

// ProcessType distinguishes the two workflow tracks a process can run.
type ProcessType string

const (
	ProcessTypeMapeamento ProcessType = "MAPEAMENTO"
	ProcessTypeRevisao    ProcessType = "REVISAO"
)

// Situacao is the closed set of subprocess workflow states.
type Situacao string

const (
	SituacaoNaoIniciado             Situacao = "NAO_INICIADO"
	SituacaoCadastroEmAndamento     Situacao = "CADASTRO_EM_ANDAMENTO"
	SituacaoCadastroDisponibilizado Situacao = "CADASTRO_DISPONIBILIZADO"
	SituacaoCadastroHomologado      Situacao = "CADASTRO_HOMOLOGADO"

	SituacaoRevisaoCadastroEmAndamento     Situacao = "REVISAO_CADASTRO_EM_ANDAMENTO"
	SituacaoRevisaoCadastroDisponibilizada Situacao = "REVISAO_CADASTRO_DISPONIBILIZADA"
	SituacaoRevisaoCadastroHomologada      Situacao = "REVISAO_CADASTRO_HOMOLOGADA"

	SituacaoMapaCriado          Situacao = "MAPA_CRIADO"
	SituacaoMapaDisponibilizado Situacao = "MAPA_DISPONIBILIZADO"
	SituacaoMapaComSugestoes    Situacao = "MAPA_COM_SUGESTOES"
	SituacaoMapaValidado        Situacao = "MAPA_VALIDADO"
	SituacaoMapaAjustado        Situacao = "MAPA_AJUSTADO"
	SituacaoMapaHomologado      Situacao = "MAPA_HOMOLOGADO"
)

// AllSituacoes lists every member of the closed state set.
var AllSituacoes = []Situacao{
	SituacaoNaoIniciado,
	SituacaoCadastroEmAndamento,
	SituacaoCadastroDisponibilizado,
	SituacaoCadastroHomologado,
	SituacaoRevisaoCadastroEmAndamento,
	SituacaoRevisaoCadastroDisponibilizada,
	SituacaoRevisaoCadastroHomologada,
	SituacaoMapaCriado,
	SituacaoMapaDisponibilizado,
	SituacaoMapaComSugestoes,
	SituacaoMapaValidado,
	SituacaoMapaAjustado,
	SituacaoMapaHomologado,
}

// Valid reports whether s is a member of the closed state set.
func (s Situacao) Valid() bool {
	for _, known := range AllSituacoes {
		if s == known {
			return true
		}
	}

	return false
}

// Subprocess is the per-unit work item under workflow control. Its Situacao
// is mutated exclusively by the transition executor.
type Subprocess struct {
	ID        int64     `json:"id"`
	ProcessID int64     `json:"process_id" validate:"required"`
	UnitID    int64     `json:"unit_id"    validate:"required"`
	Situacao  Situacao  `json:"situacao"   validate:"required"`
	MapID     *int64    `json:"map_id,omitempty"`

	PrazoEtapa1   *time.Time `json:"prazo_etapa1,omitempty"`
	DataFimEtapa1 *time.Time `json:"data_fim_etapa1,omitempty"`
	PrazoEtapa2   *time.Time `json:"prazo_etapa2,omitempty"`
	DataFimEtapa2 *time.Time `json:"data_fim_etapa2,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Process is the parent competency-mapping process; it defines the track
// (mapping or revision) all of its subprocesses run on.
type Process struct {
	ID          int64       `json:"id"`
	Type        ProcessType `json:"type"        validate:"required,oneof=MAPEAMENTO REVISAO"`
	Description string      `json:"description" validate:"required"`
	Prazo       *time.Time  `json:"prazo,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Caller is the pre-validated identity of the user driving an operation.
// Authentication happens upstream; the workflow only consumes it.
type Caller struct {
	Title string `json:"title" validate:"required"`
	Name  string `json:"name"`
}
