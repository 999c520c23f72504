package models

import (
	"encoding/json"
	"time"
)

type PersonStatus string

const (
	PersonStatusActive   PersonStatus = "active"
	PersonStatusInactive PersonStatus = "inactive"
	PersonStatusDeleted  PersonStatus = "deleted"
)

// Person is the Attendance Store's identity record. PersonID is opaque
// text assigned by the caller (an HR/ID-badge system upstream), never
// generated here.
type Person struct {
	PersonID   string          `json:"person_id" db:"person_id"`
	Name       string          `json:"name" db:"name"`
	Email      string          `json:"email,omitempty" db:"email"`
	Department string          `json:"department,omitempty" db:"department"`
	Position   string          `json:"position,omitempty" db:"position"`
	Phone      string          `json:"phone,omitempty" db:"phone"`
	Status     PersonStatus    `json:"status" db:"status"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
