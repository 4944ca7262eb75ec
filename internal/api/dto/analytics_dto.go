package dto

import "encoding/json"

// RecordEventRequest is a client-reported analytics event. MovieID and
// EventData are optional.
type RecordEventRequest struct {
	ProfileID string          `json:"profile_id" validate:"required"`
	MovieID   string          `json:"movie_id"`
	EventType string          `json:"event_type" validate:"required,max=50"`
	EventData json.RawMessage `json:"event_data"`
}
