package dto

type ChangeSourceRequest struct {
	Source string `json:"source" binding:"required"`
}

type SourceResponse struct {
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
	Active     bool   `json:"active"`
}

type StatusResponse struct {
	Active         bool   `json:"active"`
	Source         string `json:"source"`
	SourceType     string `json:"source_type"`
	Connected      bool   `json:"connected"`
	Alive          bool   `json:"alive"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	ReconnectCount int    `json:"reconnect_count"`
	TracksActive   int    `json:"tracks_active"`
}
