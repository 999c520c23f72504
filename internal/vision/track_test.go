package vision

import (
	"testing"
	"time"
)

func TestTrackerAssignsNewTrackIDs(t *testing.T) {
	tr := NewTracker(3, 0.3, time.Second)
	now := time.Now()

	tracks := tr.Update([]Detection{{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9}}, now)
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].ID != 1 {
		t.Errorf("expected first track ID 1, got %d", tracks[0].ID)
	}
	if tracks[0].Status != StatusTracking {
		t.Errorf("expected new track status Tracking, got %s", tracks[0].Status)
	}
}

func TestTrackerAssociatesByIoU(t *testing.T) {
	tr := NewTracker(3, 0.3, time.Second)
	now := time.Now()

	tr.Update([]Detection{{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9}}, now)
	tracks := tr.Update([]Detection{{BBox: [4]float32{1, 1, 11, 11}, Confidence: 0.8}}, now.Add(100*time.Millisecond))

	if len(tracks) != 1 {
		t.Fatalf("expected the moved detection to re-associate with the existing track, got %d tracks", len(tracks))
	}
	if tracks[0].ID != 1 {
		t.Errorf("expected track ID to persist as 1, got %d", tracks[0].ID)
	}
	if tracks[0].FramesTracked != 2 {
		t.Errorf("expected FramesTracked 2, got %d", tracks[0].FramesTracked)
	}
}

func TestTrackerEvictsPastMaxAge(t *testing.T) {
	tr := NewTracker(2, 0.3, time.Second)
	now := time.Now()

	tr.Update([]Detection{{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9}}, now)

	// Three consecutive misses exceed maxAge=2.
	for i := 1; i <= 3; i++ {
		tr.Update(nil, now.Add(time.Duration(i)*time.Millisecond))
	}

	if tr.TrackCount() != 0 {
		t.Errorf("expected track to be evicted after exceeding maxAge, got %d live tracks", tr.TrackCount())
	}
}

func TestTrackerIDsNeverRepeatAcrossReset(t *testing.T) {
	tr := NewTracker(3, 0.3, time.Second)
	now := time.Now()

	tr.Update([]Detection{{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9}}, now)
	tr.Reset()
	tracks := tr.Update([]Detection{{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9}}, now)

	if tracks[0].ID == 1 {
		t.Error("expected track ID sequence to survive Reset, got ID 1 reused")
	}
}

func TestRecordFaceMatchTransitions(t *testing.T) {
	tr := NewTracker(3, 0.3, time.Second)
	now := time.Now()
	tracks := tr.Update([]Detection{{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9}}, now)
	id := tracks[0].ID

	tr.RecordFaceMatch(id, [4]float32{1, 1, 5, 5}, "", "", 0.4, false, now)
	snap := tr.Snapshot()
	if snap[0].Status != StatusUnknown {
		t.Errorf("expected Unknown after unmatched face, got %s", snap[0].Status)
	}

	tr.RecordFaceMatch(id, [4]float32{1, 1, 5, 5}, "Alice", "p1", 0.9, true, now)
	snap = tr.Snapshot()
	if snap[0].Status != StatusKnown {
		t.Errorf("expected Known after matched face, got %s", snap[0].Status)
	}

	// Known never regresses on a later unmatched attempt.
	tr.RecordFaceMatch(id, [4]float32{1, 1, 5, 5}, "", "", 0.2, false, now)
	snap = tr.Snapshot()
	if snap[0].Status != StatusKnown {
		t.Errorf("expected Known status to stick, got %s", snap[0].Status)
	}
}

func TestShouldRecognize(t *testing.T) {
	tr := &Track{Status: StatusTracking}
	if !(&Tracker{}).ShouldRecognize(tr, time.Second, time.Now()) {
		t.Error("expected Tracking status to always be eligible for recognition")
	}

	known := &Track{Status: StatusKnown, FaceLastSeen: time.Now()}
	if (&Tracker{}).ShouldRecognize(known, time.Second, known.FaceLastSeen.Add(100*time.Millisecond)) {
		t.Error("expected fresh Known face memory to skip recognition")
	}
	if !(&Tracker{}).ShouldRecognize(known, time.Second, known.FaceLastSeen.Add(2*time.Second)) {
		t.Error("expected expired Known face memory to require recognition")
	}
}

func TestCosineSimilarityMismatchedLength(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("expected 0 for mismatched vector lengths, got %f", got)
	}
}

func TestEuclideanDistance(t *testing.T) {
	d := EuclideanDistance([]float32{0, 0}, []float32{3, 4})
	if d != 5 {
		t.Errorf("expected distance 5, got %f", d)
	}
}
