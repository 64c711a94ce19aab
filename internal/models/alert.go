package models

import "time"

type AlertKind string

const (
	AlertKindFall    AlertKind = "fall"
	AlertKindMedical AlertKind = "medical"
	AlertKindInjury  AlertKind = "injury"
	AlertKindOther   AlertKind = "other"
)

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResponded    AlertStatus = "responded"
)

// Alert is the durable record of an emergency event. Only Status and
// RespondedBy may change after creation.
type Alert struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Kind        AlertKind   `json:"alert_type"`
	Location    string      `json:"location,omitempty"`
	Message     string      `json:"message,omitempty"`
	Status      AlertStatus `json:"status"`
	RespondedBy string      `json:"responded_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AlertWithSubject is an Alert joined with the registered subject's profile,
// shaped for responder display.
type AlertWithSubject struct {
	Alert
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	Address          string `json:"address,omitempty"`
	MedicalInfo      string `json:"medical_info,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
}
