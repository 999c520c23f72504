package vision

import (
	"testing"

	"github.com/anttok/recognitiond/internal/config"
)

func testDetectorConfig() config.DetectorConfig {
	return config.DetectorConfig{
		MinConfidence: 0.5,
		MinArea:       100,
		MaxAspect:     4.0,
		MinWidth:      5,
		MaxWidthPx:    800,
		MinHeight:     5,
		MaxHeightPx:   1200,
	}
}

func TestFilterDetectionsByConfidence(t *testing.T) {
	dets := []Detection{
		{BBox: [4]float32{0, 0, 20, 20}, Confidence: 0.4},
		{BBox: [4]float32{0, 0, 20, 20}, Confidence: 0.9},
	}
	out := FilterDetections(dets, testDetectorConfig())
	if len(out) != 1 {
		t.Fatalf("expected 1 detection surviving confidence filter, got %d", len(out))
	}
	if out[0].Confidence != 0.9 {
		t.Errorf("expected the high-confidence detection to survive, got %f", out[0].Confidence)
	}
}

func TestFilterDetectionsByAspectRatio(t *testing.T) {
	cfg := testDetectorConfig()
	dets := []Detection{
		// height/width = 100/10 = 10, exceeds MaxAspect of 4.0
		{BBox: [4]float32{0, 0, 10, 100}, Confidence: 0.9},
	}
	out := FilterDetections(dets, cfg)
	if len(out) != 0 {
		t.Errorf("expected aspect-ratio outlier to be filtered, got %d survivors", len(out))
	}
}

func TestFilterDetectionsByArea(t *testing.T) {
	cfg := testDetectorConfig()
	dets := []Detection{
		{BBox: [4]float32{0, 0, 5, 5}, Confidence: 0.9}, // area 25 < MinArea 100
	}
	out := FilterDetections(dets, cfg)
	if len(out) != 0 {
		t.Errorf("expected undersized detection to be filtered, got %d survivors", len(out))
	}
}
