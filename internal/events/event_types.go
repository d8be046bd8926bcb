package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered    EventType = "user_registered"
	EventUserUpdated       EventType = "user_updated"
	EventUserDeleted       EventType = "user_deleted"
	EventCohortAdded       EventType = "cohort_added"
	EventCohortRemoved     EventType = "cohort_removed"
	EventMessagesDelivered EventType = "messages_delivered"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	UserID     string      `json:"user_id"`
	ExternalID string      `json:"external_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, userID, externalID string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		ExternalID: externalID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UserUpdatedPayload payload.
type UserUpdatedPayload struct {
	Username string `json:"username"`
	State    string `json:"state"`
}

// UserDeletedPayload payload.
type UserDeletedPayload struct {
	Deleted int64 `json:"deleted"`
}

// CohortChangedPayload payload for cohort_added and cohort_removed.
type CohortChangedPayload struct {
	CohortID string   `json:"cohort_id"`
	Cohorts  []string `json:"cohorts"`
}

// MessagesDeliveredPayload payload.
type MessagesDeliveredPayload struct {
	Count int `json:"count"`
}
