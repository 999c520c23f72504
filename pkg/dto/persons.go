package dto

import "encoding/json"

type UpsertPersonRequest struct {
	PersonID   string          `json:"person_id" binding:"required"`
	Name       string          `json:"name" binding:"required"`
	Email      string          `json:"email,omitempty"`
	Department string          `json:"department,omitempty"`
	Position   string          `json:"position,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

type PersonResponse struct {
	PersonID   string          `json:"person_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email,omitempty"`
	Department string          `json:"department,omitempty"`
	Position   string          `json:"position,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Status     string          `json:"status"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type PersonListResponse struct {
	Persons []PersonResponse `json:"persons"`
	Total   int              `json:"total"`
}
