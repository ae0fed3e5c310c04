package events

import (
	"time"

	"github.com/DmytryS/user-actions-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventActionConsumed         EventType = "action_consumed"
	EventUserLoggedIn           EventType = "user_logged_in"
	EventUserUpdated            EventType = "user_updated"
	EventUserDeleted            EventType = "user_deleted"
	EventNewsPublished          EventType = "news_published"
	EventNewsDeleted            EventType = "news_deleted"
)

// Actor identifies who triggered an event. An empty UserID means an anonymous caller.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ActionIssuedPayload accompanies register and reset events.
type ActionIssuedPayload struct {
	ActionID string              `json:"action_id"`
	Type     domain.ActionType   `json:"type"`
	Reused   bool                `json:"reused"`
	Status   domain.ActionStatus `json:"status"`
}

// ActionConsumedPayload accompanies EventActionConsumed.
type ActionConsumedPayload struct {
	UserID    string            `json:"user_id"`
	Type      domain.ActionType `json:"type"`
	NewStatus domain.UserStatus `json:"new_status"`
}

// UserChangedPayload accompanies admin edits.
type UserChangedPayload struct {
	Fields []string `json:"fields"`
}

// NewsPayload accompanies news events.
type NewsPayload struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}
