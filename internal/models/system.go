package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SystemConfigEntry is one runtime-tunable key/value pair, editable
// through the facade's config:get/config:set operations without a
// process restart.
type SystemConfigEntry struct {
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// APIKey is an issued credential with a scoped permission set
// (person:*, attendance:*, reports:*, config:*, logs:read, system:*,
// sync:*, admin, or *).
type APIKey struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Label       string     `json:"label" db:"label"`
	KeyHash     string     `json:"-" db:"key_hash"`
	Permissions []string   `json:"permissions" db:"permissions"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// SystemLogEntry is a structured log row persisted for the facade's
// logs:list operation, independent of the process's own slog output.
type SystemLogEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Timestamp time.Time       `json:"ts" db:"ts"`
	Level     string          `json:"level" db:"level"`
	Message   string          `json:"message" db:"message"`
	Fields    json.RawMessage `json:"fields" db:"fields"`
}
