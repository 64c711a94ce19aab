package models

import "time"

type EventType string

const (
	// EventConnected is sent once to a subscriber right after it attaches.
	// It is never broadcast and never stored.
	EventConnected EventType = "CONNECTED"

	// EventFallDetected is the event produced by the fall-report ingestion path.
	EventFallDetected EventType = "FALL_DETECTED"

	// EventNewAlert is the event produced by the generic detector trigger path.
	EventNewAlert EventType = "NEW_ALERT"

	// EventStatusUpdate is re-broadcast after a durable status change.
	EventStatusUpdate EventType = "ALERT_STATUS_UPDATE"
)

// AlertEvent is the transient payload pushed to live subscribers. It carries
// no delivery guarantee: a client that connects after the push never sees it.
type AlertEvent struct {
	ID          int64       `json:"id,omitempty"`
	Type        EventType   `json:"type"`
	UserID      string      `json:"userId,omitempty"`
	Kind        AlertKind   `json:"alertType,omitempty"`
	Location    string      `json:"location,omitempty"`
	Address     string      `json:"address,omitempty"`
	Message     string      `json:"message,omitempty"`
	Guidance    string      `json:"aiResponse,omitempty"`
	Status      AlertStatus `json:"status,omitempty"`
	RespondedBy string      `json:"respondedBy,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
