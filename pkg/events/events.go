// Package events defines event types for subprocess workflow notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/registry"
)

type EventType string

// NotificationTopic is the bus topic notification intents are delivered on.
const NotificationTopic = "sgcflow.notifications"

const EventTypeMetadataKey = "event_type"

const (
	TransitionCompletedEvent EventType = "subprocess.transition.completed"
	NotificationQueuedEvent  EventType = "notification.queued"
	DeadlineExpiredEvent     EventType = "subprocess.deadline.expired"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	SubprocessID int64          `json:"subprocess_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// UnitRef carries the unit fields notification recipients are resolved from.
type UnitRef struct {
	ID    int64  `json:"id"`
	Code  int64  `json:"code"`
	Sigla string `json:"sigla"`
	Email string `json:"email,omitempty"`
}

// NewUnitRef builds a UnitRef from the hierarchy model.
func NewUnitRef(unit *models.Unit) UnitRef {
	return UnitRef{
		ID:    unit.ID,
		Code:  unit.Code,
		Sigla: unit.Sigla,
		Email: unit.Email,
	}
}

// TransitionCompleted describes one committed workflow transition. It is
// handed to the notification dispatcher exactly once and never persisted.
type TransitionCompleted struct {
	BaseEvent

	ProcessID   int64                   `json:"process_id"`
	Transition  registry.TransitionType `json:"transition"`
	Situacao    models.Situacao         `json:"situacao"`
	Origin      UnitRef                 `json:"origin"`
	Destination UnitRef                 `json:"destination"`
	CallerTitle string                  `json:"caller_title"`
	Description string                  `json:"description"`
	Notes       string                  `json:"notes,omitempty"`
	Alert       bool                    `json:"alert"`
	Email       bool                    `json:"email"`
}

func (t TransitionCompleted) GetType() EventType {
	return TransitionCompletedEvent
}

// NotificationKind distinguishes the two delivery channels.
type NotificationKind string

const (
	NotificationEmail NotificationKind = "email"
	NotificationAlert NotificationKind = "alert"
)

// NotificationQueued is the delivery intent published to the notification
// bus; the delivery worker consumes it best-effort.
type NotificationQueued struct {
	BaseEvent

	Kind       NotificationKind `json:"kind"`
	Recipients []string         `json:"recipients,omitempty"`
	UnitSigla  string           `json:"unit_sigla,omitempty"`
	Subject    string           `json:"subject"`
	Body       string           `json:"body"`
}

func (n NotificationQueued) GetType() EventType {
	return NotificationQueuedEvent
}

// DeadlineExpired is emitted by the deadline sweep for subprocesses past
// their pending stage deadline. It never mutates workflow state.
type DeadlineExpired struct {
	BaseEvent

	ProcessID int64           `json:"process_id"`
	UnitID    int64           `json:"unit_id"`
	Situacao  models.Situacao `json:"situacao"`
	Deadline  time.Time       `json:"deadline"`
}

func (d DeadlineExpired) GetType() EventType {
	return DeadlineExpiredEvent
}

func NewBaseEvent(eventType EventType, subprocessID int64) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		SubprocessID: subprocessID,
		Metadata:     make(map[string]any),
	}
}
