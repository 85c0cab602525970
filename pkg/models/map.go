package models

import "time"

// CompetencyMap is the map drafted from a unit's registered activities. Only
// the shape the transition guards inspect is modeled here.
type CompetencyMap struct {
	ID                      int64      `json:"id"`
	SubprocessID            int64      `json:"subprocess_id"`
	Sugestoes               string     `json:"sugestoes,omitempty"`
	SugestoesApresentadasEm *time.Time `json:"sugestoes_apresentadas_em,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// Activity is a registered activity of a unit's cadastre.
type Activity struct {
	ID            int64       `json:"id"`
	MapID         int64       `json:"map_id"`
	Description   string      `json:"description"`
	Knowledge     []Knowledge `json:"knowledge,omitempty"`
	CompetencyIDs []int64     `json:"competency_ids,omitempty"`
}

// HasKnowledge reports whether at least one knowledge item is registered.
func (a *Activity) HasKnowledge() bool {
	return len(a.Knowledge) > 0
}

// Knowledge is a knowledge item attached to an activity.
type Knowledge struct {
	ID          int64  `json:"id"`
	ActivityID  int64  `json:"activity_id"`
	Description string `json:"description"`
}

// Competency is a competency of the drafted map; it must be linked to at
// least one activity before the map can be published for validation.
type Competency struct {
	ID          int64   `json:"id"`
	MapID       int64   `json:"map_id"`
	Description string  `json:"description"`
	ActivityIDs []int64 `json:"activity_ids,omitempty"`
}
