package web

import "time"

// Caller identity travels on headers; authentication happens upstream.
const (
	HeaderUserTitle = "X-User-Title"
	HeaderUserName  = "X-User-Name"
)

// TransitionRequest is the body shared by the plain transition endpoints.
type TransitionRequest struct {
	Observacoes string `json:"observacoes,omitempty"`
}

// DevolverRequest returns work to the owning unit; a justification is
// mandatory for the audit trail.
type DevolverRequest struct {
	Justificativa string `json:"justificativa" validate:"required"`
}

// DisponibilizarMapaRequest publishes a map for validation with the stage-2
// deadline.
type DisponibilizarMapaRequest struct {
	Prazo       time.Time `json:"prazo"       validate:"required"`
	Observacoes string    `json:"observacoes,omitempty"`
}

// SugestoesRequest presents the unit's suggestions for the published map.
type SugestoesRequest struct {
	Sugestoes string `json:"sugestoes" validate:"required"`
}

// RegistrarAtividadeRequest records a cadastre activity with its knowledge
// items.
type RegistrarAtividadeRequest struct {
	Descricao     string   `json:"descricao"     validate:"required"`
	Conhecimentos []string `json:"conhecimentos" validate:"required,min=1,dive,required"`
}

// RegistrarCompetenciaRequest records a competency on the drafted map, linked
// to registered activities.
type RegistrarCompetenciaRequest struct {
	Descricao    string  `json:"descricao"     validate:"required"`
	AtividadeIDs []int64 `json:"atividade_ids" validate:"required,min=1"`
}

// BulkRequest applies one operation to several units of a process.
type BulkRequest struct {
	UnitCodes   []int64 `json:"unit_codes" validate:"required,min=1"`
	Observacoes string  `json:"observacoes,omitempty"`
}
