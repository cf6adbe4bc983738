package types

import "time"

// EventType names a domain event emitted by a state-changing operation.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventUserLogin       EventType = "user_login"
	EventNewRequest      EventType = "new_request"
	EventReportGenerated EventType = "report_generated"
)

// Event is one entry of the notification log.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"tipo"`
	Payload   map[string]any `json:"datos"`
	Timestamp time.Time      `json:"timestamp"`
}
