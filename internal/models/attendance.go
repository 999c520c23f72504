package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MarkedBy string

const (
	MarkedByAuto   MarkedBy = "auto"
	MarkedByManual MarkedBy = "manual"
	MarkedBySystem MarkedBy = "system"
)

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusLeft    AttendanceStatus = "left"
)

// AttendanceRow is one check-in/check-out span for a person on a date.
// Invariant: CheckOut, when set, is >= CheckIn; DurationMinutes is
// floor((CheckOut-CheckIn)/60s).
type AttendanceRow struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	PersonID        string           `json:"person_id" db:"person_id"`
	PersonName      string           `json:"person_name" db:"person_name"`
	CheckIn         time.Time        `json:"check_in" db:"check_in"`
	CheckOut        *time.Time       `json:"check_out,omitempty" db:"check_out"`
	Date            time.Time        `json:"date" db:"date"`
	DurationMinutes *int             `json:"duration_minutes,omitempty" db:"duration_minutes"`
	Source          string           `json:"source" db:"source"`
	Confidence      float32          `json:"confidence" db:"confidence"`
	MarkedBy        MarkedBy         `json:"marked_by" db:"marked_by"`
	Status          AttendanceStatus `json:"status" db:"status"`
	Metadata        json.RawMessage  `json:"metadata" db:"metadata"`
}

// DetectionEvent is an append-only audit row produced once per track
// on each background-loop pass, whether or not it resulted in an
// attendance insert.
type DetectionEvent struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	PersonID     *string         `json:"person_id,omitempty" db:"person_id"`
	PersonName   string          `json:"person_name" db:"person_name"`
	Timestamp    time.Time       `json:"ts" db:"ts"`
	Confidence   float32         `json:"confidence" db:"confidence"`
	Source       string          `json:"source" db:"source"`
	AttendanceID *uuid.UUID      `json:"attendance_id,omitempty" db:"attendance_id"`
	Embedding    []float32       `json:"-" db:"embedding"`
	Metadata     json.RawMessage `json:"metadata" db:"metadata"`
}
