package orchestrator

import (
	"testing"
	"time"

	"github.com/anttok/recognitiond/internal/vision"
)

func TestWSDetectionEventMapsTrackFields(t *testing.T) {
	tr := &vision.Track{
		ID:             7,
		BBox:           [4]float32{1, 2, 3, 4},
		Name:           "Alice",
		PersonID:       "p1",
		FaceConfidence: 0.92,
		Status:         vision.StatusKnown,
	}
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	ev := wsDetectionEvent(tr, "rtsp://cam1", now)

	if ev.Type != "detection" {
		t.Errorf("expected type detection, got %q", ev.Type)
	}
	if ev.Source != "rtsp://cam1" {
		t.Errorf("expected source to pass through, got %q", ev.Source)
	}
	if ev.TrackID != 7 {
		t.Errorf("expected track id 7, got %d", ev.TrackID)
	}
	if ev.BBox != tr.BBox {
		t.Errorf("expected bbox to pass through, got %v", ev.BBox)
	}
	if ev.Name != "Alice" || ev.PersonID != "p1" {
		t.Errorf("expected identity fields to pass through, got name=%q person_id=%q", ev.Name, ev.PersonID)
	}
	if ev.Confidence != 0.92 {
		t.Errorf("expected confidence to pass through, got %f", ev.Confidence)
	}
	if ev.Status != "Known" {
		t.Errorf("expected status Known, got %q", ev.Status)
	}
	if ev.Timestamp != "2026-07-31T10:00:00Z" {
		t.Errorf("expected RFC3339 timestamp, got %q", ev.Timestamp)
	}
}

func TestWSDetectionEventUnknownTrackHasNoIdentity(t *testing.T) {
	tr := &vision.Track{ID: 3, Status: vision.StatusUnknown}
	ev := wsDetectionEvent(tr, "0", time.Now())

	if ev.Name != "" || ev.PersonID != "" {
		t.Errorf("expected no identity on an unknown track, got name=%q person_id=%q", ev.Name, ev.PersonID)
	}
	if ev.Status != "Unknown" {
		t.Errorf("expected status Unknown, got %q", ev.Status)
	}
}
