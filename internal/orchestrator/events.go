package orchestrator

import (
	"time"

	"github.com/anttok/recognitiond/internal/vision"
)

// WSDetectionEvent is the payload pushed to WebSocket clients and
// published on NATS for every observed track, regardless of status.
type WSDetectionEvent struct {
	Type       string     `json:"type"`
	Source     string     `json:"source"`
	TrackID    int        `json:"track_id"`
	BBox       [4]float32 `json:"bbox"`
	Name       string     `json:"name,omitempty"`
	PersonID   string     `json:"person_id,omitempty"`
	Confidence float32    `json:"confidence"`
	Status     string     `json:"status"`
	Timestamp  string     `json:"ts"`
}

func wsDetectionEvent(tr *vision.Track, source string, now time.Time) WSDetectionEvent {
	return WSDetectionEvent{
		Type:       "detection",
		Source:     source,
		TrackID:    tr.ID,
		BBox:       tr.BBox,
		Name:       tr.Name,
		PersonID:   tr.PersonID,
		Confidence: tr.FaceConfidence,
		Status:     string(tr.Status),
		Timestamp:  now.Format(time.RFC3339),
	}
}
