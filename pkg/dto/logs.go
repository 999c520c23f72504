package dto

import "encoding/json"

type LogEntryResponse struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Fields    json.RawMessage `json:"fields,omitempty"`
}

type LogListResponse struct {
	Logs []LogEntryResponse `json:"logs"`
}
