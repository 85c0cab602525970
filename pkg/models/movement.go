package models

import "time"

// Movement is the immutable audit-trail record of a unit-to-unit hand-off.
// Movements are append-only; the latest one (by date) gives the current
// location of the subprocess.
type Movement struct {
	ID                string    `json:"id"`
	SubprocessID      int64     `json:"subprocess_id"`
	OriginUnitID      int64     `json:"origin_unit_id"`
	DestinationUnitID int64     `json:"destination_unit_id"`
	Description       string    `json:"description"`
	CallerTitle       string    `json:"caller_title"`
	Date              time.Time `json:"date"`
}

// AnalysisAction is the decision a reviewing unit recorded.
type AnalysisAction string

const (
	AnalysisAceite    AnalysisAction = "ACEITE"
	AnalysisDevolucao AnalysisAction = "DEVOLUCAO"
)

// AnalysisStage identifies which stage of the subprocess an analysis belongs
// to; disponibilizar clears the stage's analyses before a new round starts.
type AnalysisStage string

const (
	StageCadastro  AnalysisStage = "CADASTRO"
	StageValidacao AnalysisStage = "VALIDACAO"
)

// Analysis is the immutable record of an accept/return decision.
type Analysis struct {
	ID           string         `json:"id"`
	SubprocessID int64          `json:"subprocess_id"`
	Stage        AnalysisStage  `json:"stage"`
	Action       AnalysisAction `json:"action"`
	Justification string        `json:"justification"`
	CallerTitle  string         `json:"caller_title"`
	Date         time.Time      `json:"date"`
}
