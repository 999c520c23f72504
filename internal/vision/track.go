package vision

import (
	"math"
	"sync"
	"time"
)

// Status is a track's recognition state.
type Status string

const (
	StatusTracking Status = "Tracking"
	StatusKnown    Status = "Known"
	StatusUnknown  Status = "Unknown"
)

// Color is the advisory render color for a track's current status. It is
// returned alongside the track for a consuming renderer; it carries no
// protocol meaning of its own.
type Color string

const (
	ColorGreen  Color = "green"  // Known
	ColorRed    Color = "red"    // Unknown
	ColorYellow Color = "yellow" // Tracking
)

func (s Status) Color() Color {
	switch s {
	case StatusKnown:
		return ColorGreen
	case StatusUnknown:
		return ColorRed
	default:
		return ColorYellow
	}
}

// Track is a live identity held by the Tracker.
type Track struct {
	ID                  int
	BBox                [4]float32
	DetectionConfidence float32

	FaceBBox       *[4]float32
	Name           string
	PersonID       string
	FaceConfidence float32
	Status         Status

	FramesTracked  int
	FramesLost     int
	FirstSeen      time.Time
	LastSeen       time.Time
	FaceLastSeen   time.Time

	// LastRecognitionAttempt rate-limits the recognizer, independent of
	// FaceLastSeen (which tracks when a face was last actually found).
	LastRecognitionAttempt time.Time
}

// Tracker implements IoU-based greedy multi-person tracking with
// per-track face memory. A track is removed once FramesLost exceeds
// maxAge; the caller must hold no other lock while calling Update.
type Tracker struct {
	mu      sync.Mutex
	tracks  map[int]*Track
	nextID  int
	maxAge  int
	minIoU  float32
	faceTTL time.Duration
}

// NewTracker builds a Tracker. maxAge is fixed at 3 by config default
// (see internal/config) — the constructor accepts whatever is passed so
// tests can exercise other values, but production wiring must not raise it.
func NewTracker(maxAge int, minIoU float32, faceMemoryTime time.Duration) *Tracker {
	return &Tracker{
		tracks:  make(map[int]*Track),
		maxAge:  maxAge,
		minIoU:  minIoU,
		faceTTL: faceMemoryTime,
	}
}

// Update associates detections with existing tracks by descending IoU,
// creates tracks for unmatched detections, ages and evicts stale tracks,
// and decays face memory past faceTTL. Returns the full live track set.
func (t *Tracker) Update(detections []Detection, now time.Time) []*Track {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tr := range t.tracks {
		tr.FramesLost++
	}

	matchedTrack := make(map[int]bool)
	matchedDet := make(map[int]bool)

	// Deterministic descending-IoU greedy association: repeatedly pick the
	// best remaining (detection, track) pair above the threshold.
	var candidates []pair
	for di, det := range detections {
		for id, tr := range t.tracks {
			v := iouBox(det.BBox, tr.BBox)
			if v >= t.minIoU {
				candidates = append(candidates, pair{di, id, v})
			}
		}
	}
	sortPairsByIoUDesc(candidates)

	for _, c := range candidates {
		if matchedDet[c.detIdx] || matchedTrack[c.trackID] {
			continue
		}
		tr := t.tracks[c.trackID]
		det := detections[c.detIdx]
		tr.BBox = det.BBox
		tr.DetectionConfidence = det.Confidence
		tr.FramesTracked++
		tr.FramesLost = 0
		tr.LastSeen = now
		matchedDet[c.detIdx] = true
		matchedTrack[c.trackID] = true
	}

	for di, det := range detections {
		if matchedDet[di] {
			continue
		}
		t.nextID++
		tr := &Track{
			ID:                  t.nextID,
			BBox:                det.BBox,
			DetectionConfidence: det.Confidence,
			Status:              StatusTracking,
			FramesTracked:       1,
			FirstSeen:           now,
			LastSeen:            now,
		}
		t.tracks[tr.ID] = tr
	}

	for id, tr := range t.tracks {
		if tr.FramesLost > t.maxAge {
			delete(t.tracks, id)
			continue
		}
		if tr.FaceBBox != nil && !tr.FaceLastSeen.IsZero() && now.Sub(tr.FaceLastSeen) > t.faceTTL {
			tr.FaceBBox = nil
		}
	}

	out := make([]*Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, tr)
	}
	return out
}

// RecordFaceMatch applies a Face Recognizer result for a track, per the
// status-transition rules: Tracking/Unknown -> Known on match; Tracking ->
// Unknown when a face was found but did not match. Known tracks never
// regress once set.
func (t *Tracker) RecordFaceMatch(trackID int, faceBBox [4]float32, name, personID string, faceConfidence float32, matched bool, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[trackID]
	if !ok {
		return
	}
	bbox := faceBBox
	tr.FaceBBox = &bbox
	tr.FaceConfidence = faceConfidence
	tr.FaceLastSeen = now
	tr.LastRecognitionAttempt = now

	if matched {
		tr.Name = name
		tr.PersonID = personID
		tr.Status = StatusKnown
		return
	}
	if tr.Status != StatusKnown {
		tr.Status = StatusUnknown
	}
}

// RecordRecognitionAttempt marks that the recognizer considered (but did
// not find or accept) a face for this track — e.g. quality below
// threshold — without disturbing its face memory.
func (t *Tracker) RecordRecognitionAttempt(trackID int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.tracks[trackID]; ok {
		tr.LastRecognitionAttempt = now
	}
}

// ShouldRecognize applies the per-track recognition rate limit: a Known
// track with fresh face memory may skip redetection; Unknown and Tracking
// tracks are always eligible.
func (t *Tracker) ShouldRecognize(tr *Track, ttl time.Duration, now time.Time) bool {
	if tr.Status != StatusKnown {
		return true
	}
	if tr.FaceLastSeen.IsZero() {
		return true
	}
	return now.Sub(tr.FaceLastSeen) >= ttl
}

// Snapshot returns the current live track set without mutating anything.
func (t *Tracker) Snapshot() []*Track {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, tr)
	}
	return out
}

// TrackCount returns the number of live tracks.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// Reset clears all tracks without resetting the ID sequence — track_id
// must never repeat within the lifetime of the owning process per the
// data model's monotonic-assignment invariant.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[int]*Track)
}

// pair is one candidate (detection, track) association above the IoU
// threshold, ranked by iouVal during greedy assignment.
type pair struct {
	detIdx, trackID int
	iouVal          float32
}

func sortPairsByIoUDesc(p []pair) {
	for i := 1; i < len(p); i++ {
		for j := i; j > 0 && p[j].iouVal > p[j-1].iouVal; j-- {
			p[j], p[j-1] = p[j-1], p[j]
		}
	}
}

// CosineSimilarity returns the dot product of two equal-length vectors,
// clamped to [-1, 1]; this equals their cosine similarity when both are
// L2-normalized, as embeddings are. Mismatched lengths yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(math.Min(1.0, math.Max(-1.0, dot)))
}

// EuclideanDistance computes the Euclidean distance between two equal-
// length vectors; used by the Face Recognizer's matching step.
func EuclideanDistance(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
