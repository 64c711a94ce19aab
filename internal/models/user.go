package models

import "time"

// User is a registered community member (the subject alerts concern).
type User struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Phone            string     `json:"phone,omitempty"`
	Address          string     `json:"address,omitempty"`
	MedicalInfo      string     `json:"medical_info,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty"`
	FaceImagePath    string     `json:"face_data_path,omitempty"`
	ConsentGiven     bool       `json:"consent_given"`
	ConsentTimestamp *time.Time `json:"consent_timestamp,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
