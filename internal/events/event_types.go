package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered      EventType = "account.registered"
	EventAccountDeleted         EventType = "account.deleted"
	EventPasswordResetRequested EventType = "account.password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AccountID string    `json:"account_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, accountID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AccountDeletedPayload payload.
type AccountDeletedPayload struct {
	Email     string `json:"email"`
	DeletedBy string `json:"deleted_by"`
}

// PasswordResetRequestedPayload carries the plaintext token so the mail can
// embed it. It must not be logged.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
