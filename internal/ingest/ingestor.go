// Package ingest implements the Video Ingestor (component A): a
// multi-transport source reader that exposes a single non-blocking
// latest_frame() method, downscales every produced frame, and reconnects
// network sources with backoff.
package ingest

import (
	"image"
	"time"
)

// Frame is an immutable decoded frame.
type Frame struct {
	Image     image.Image
	Width     int
	Height    int
	Timestamp time.Time
	Source    string
}

// Health reports an ingestor's current condition for the facade's
// background_status/current_source operations.
type Health struct {
	Connected      bool
	Alive          bool
	SourceType     SourceType
	Width          int
	Height         int
	FPS            float64
	ReconnectCount int
}

// Ingestor presents the single method the Orchestrator depends on. It
// must never block the caller for longer than a bounded poll.
type Ingestor interface {
	// LatestFrame returns the most recent decoded frame, or ok=false if
	// the stream has not produced one yet.
	LatestFrame() (frame *Frame, ok bool)
	Health() Health
	Close() error
}
