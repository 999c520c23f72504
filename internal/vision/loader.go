package vision

import (
	"fmt"
	"log/slog"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/anttok/recognitiond/internal/config"
)

// Engines bundles the three opaque model engines the orchestrator wires
// together: a person detector (component B's backend), a face detector,
// and a face embedder (both backing component D). All three are loaded
// together so a failure partway through cleanly releases what succeeded.
type Engines struct {
	Person     *PersonDetector
	Face       *FaceDetector
	Embedder   *Embedder
	Attributes *AttributePredictor // optional demographic signal; nil when genderage.onnx failed to load
}

func (e *Engines) Close() {
	if e == nil {
		return
	}
	if e.Person != nil {
		e.Person.Close()
	}
	if e.Face != nil {
		e.Face.Close()
	}
	if e.Embedder != nil {
		e.Embedder.Close()
	}
	if e.Attributes != nil {
		e.Attributes.Close()
	}
}

// LoadEngines loads all ONNX models referenced by cfg.ModelsDir. Model
// filenames are fixed by convention (person.onnx, det_10g.onnx,
// w600k_r50.onnx, genderage.onnx); a failure loading any of the first
// three unwinds everything already loaded before returning, while a
// failure loading genderage.onnx only leaves Attributes nil.
func LoadEngines(cfg config.DetectorConfig) (*Engines, error) {
	newOpts := func() (*ort.SessionOptions, error) {
		opts, err := ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("create session options: %w", err)
		}
		return opts, nil
	}

	personPath := filepath.Join(cfg.ModelsDir, "person.onnx")
	facePath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")
	attrPath := filepath.Join(cfg.ModelsDir, "genderage.onnx")

	slog.Info("loading person detector", "path", personPath, "device", cfg.Device)
	personOpts, err := newOpts()
	if err != nil {
		return nil, err
	}
	person, err := NewPersonDetector(personPath, 8400, cfg.MinConfidence, personOpts)
	personOpts.Destroy()
	if err != nil {
		return nil, fmt.Errorf("load person detector: %w", err)
	}

	slog.Info("loading face detector", "path", facePath)
	faceOpts, err := newOpts()
	if err != nil {
		person.Close()
		return nil, err
	}
	face, err := NewFaceDetector(facePath, 0.5, faceOpts)
	faceOpts.Destroy()
	if err != nil {
		person.Close()
		return nil, fmt.Errorf("load face detector: %w", err)
	}

	slog.Info("loading face embedder", "path", embPath)
	embOpts, err := newOpts()
	if err != nil {
		person.Close()
		face.Close()
		return nil, err
	}
	embedder, err := NewEmbedder(embPath, embOpts)
	embOpts.Destroy()
	if err != nil {
		person.Close()
		face.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	slog.Info("loading attribute predictor", "path", attrPath)
	attrOpts, err := newOpts()
	if err != nil {
		person.Close()
		face.Close()
		embedder.Close()
		return nil, err
	}
	attrs, err := NewAttributePredictor(attrPath, attrOpts)
	attrOpts.Destroy()
	if err != nil {
		// Demographic attributes are a supplementary signal, not part of
		// the core recognition contract — degrade gracefully instead of
		// failing engine load entirely.
		slog.Warn("attribute predictor unavailable, gender/age disabled", "error", err)
		attrs = nil
	}

	slog.Info("vision engines ready")
	return &Engines{Person: person, Face: face, Embedder: embedder, Attributes: attrs}, nil
}
