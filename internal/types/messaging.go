package types

import "time"

// AnalyticsEventType identifies the kind of purchase analytics event.
type AnalyticsEventType string

const (
	AnalyticsNavigate  AnalyticsEventType = "purchase_navigate"
	AnalyticsError     AnalyticsEventType = "purchase_error"
	AnalyticsCompleted AnalyticsEventType = "purchase_completed"
)

// AnalyticsMessage is the SQS payload published by the API for every purchase
// wizard event and consumed by the analytics worker. Every message carries the
// session's correlation id.
type AnalyticsMessage struct {
	EventID        string             `json:"event_id"`
	EventType      AnalyticsEventType `json:"event_type"`
	SessionID      string             `json:"session_id"`
	OrganizationID string             `json:"organization_id"`
	OccurredAt     time.Time          `json:"occurred_at"`

	// Navigation
	FromStep string `json:"from_step,omitempty"`
	ToStep   string `json:"to_step,omitempty"`

	// Errors and completion
	ErrorKind string `json:"error_kind,omitempty"`
	Variant   string `json:"variant,omitempty"`
	Message   string `json:"message,omitempty"`
}
