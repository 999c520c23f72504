package vision

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/anttok/recognitiond/internal/config"
)

// FaceMirror is an immutable snapshot of the Face Store's encodings, held
// by the Recognizer so matching is O(N) over a consistent view without
// re-deriving encodings from image files. A new snapshot fully replaces
// the old one; readers never observe a torn view (§9 dual-mirror note).
type FaceMirror struct {
	Names      []string
	PersonIDs  []string
	Encodings  [][]float32
}

// MatchResult is one face-recognition outcome for a track.
type MatchResult struct {
	FaceBBox   [4]float32
	Quality    float32
	Matched    bool
	Name       string
	PersonID   string
	Confidence float32
	Gender     string
	GenderConf float32
	Age        int
	AgeRange   string
}

// Recognizer implements component D: multi-scale face detection within a
// person crop, quality-gated encoding, and adaptive-tolerance matching
// against an in-memory mirror of the Face Store.
type Recognizer struct {
	faceDetector *FaceDetector
	embedder     *Embedder
	attributes   *AttributePredictor // optional; nil disables gender/age
	cfg          config.FaceMatchConfig

	mu     sync.RWMutex
	mirror *FaceMirror
}

func NewRecognizer(faceDetector *FaceDetector, embedder *Embedder, attributes *AttributePredictor, cfg config.FaceMatchConfig) *Recognizer {
	return &Recognizer{
		faceDetector: faceDetector,
		embedder:     embedder,
		attributes:   attributes,
		cfg:          cfg,
		mirror:       &FaceMirror{},
	}
}

// SetMirror atomically replaces the in-memory encoding mirror. Callers
// (the Face Store under its append/clear critical section) build the new
// mirror off to the side and swap it in with one pointer write.
func (r *Recognizer) SetMirror(m *FaceMirror) {
	r.mu.Lock()
	r.mirror = m
	r.mu.Unlock()
}

func (r *Recognizer) mirrorSnapshot() *FaceMirror {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mirror
}

// Recognize attempts to find, encode, and match a face within personCrop
// (the image region covered by a track's bbox, in frame pixel space).
// It returns nil, nil when no face clears the quality gate — the caller
// must leave the track's status as Tracking in that case.
func (r *Recognizer) Recognize(personCrop image.Image) (*MatchResult, error) {
	best, bestQuality, err := r.detectBestFace(personCrop)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	if best == nil {
		return nil, nil
	}
	if bestQuality < r.cfg.QualityThreshold {
		return nil, nil
	}

	faceImg := cropRegion(personCrop, best.BBox, 0.0)
	if faceImg == nil {
		return nil, nil
	}

	preprocessed, err := PreprocessFace(faceImg)
	if err != nil {
		// Preprocessing is a best-effort visual-quality enhancement;
		// fall back to the raw crop rather than failing recognition.
		preprocessed = faceImg
	}

	embW, embH := r.embedder.InputSize()
	resized := resizeImage(preprocessed, embW, embH)
	embInput := preprocessForEmbedding(resized, embW, embH)
	embedding, err := r.embedder.Extract(embInput)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}

	result := &MatchResult{FaceBBox: best.BBox, Quality: bestQuality}

	name, personID, confidence, matched := r.match(embedding, bestQuality)
	result.Matched = matched
	result.Name = name
	result.PersonID = personID
	result.Confidence = confidence

	if r.attributes != nil {
		attrW, attrH := r.attributes.InputSize()
		attrInput := preprocessForAttributes(resizeImage(faceImg, attrW, attrH), attrW, attrH)
		if ga, err := r.attributes.Predict(attrInput); err == nil {
			result.Gender = ga.Gender
			result.GenderConf = ga.GenderConfidence
			result.Age = ga.Age
			result.AgeRange = ga.AgeRange
		}
	}

	return result, nil
}

// detectBestFace runs multi-scale detection at upsample levels [0,1,2] up
// to cfg.MaxUpsample, stopping early once a face with quality >= the
// configured early-stop threshold is found. Faces found across levels are
// deduplicated by IoU and the best-quality one is kept.
func (r *Recognizer) detectBestFace(personCrop image.Image) (*FaceDetection, float32, error) {
	detW, detH := r.faceDetector.InputSize()
	bounds := personCrop.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, 0, nil
	}

	type candidate struct {
		det     FaceDetection
		quality float32
	}
	var candidates []candidate

	for level := 0; level <= r.cfg.MaxUpsample; level++ {
		scale := 1 << uint(level)
		var input image.Image = personCrop
		w, h := origW, origH
		if level > 0 {
			w, h = origW*scale, origH*scale
			input = resizeImage(personCrop, w, h)
		}

		detInput := preprocessForFaceDetection(input, detW, detH)
		dets, err := r.faceDetector.Detect(detInput, w, h)
		if err != nil {
			return nil, 0, err
		}

		for _, d := range dets {
			// Rescale back to the original crop's coordinate space.
			bbox := [4]float32{
				d.BBox[0] / float32(scale),
				d.BBox[1] / float32(scale),
				d.BBox[2] / float32(scale),
				d.BBox[3] / float32(scale),
			}
			scaledDet := FaceDetection{BBox: bbox, Confidence: d.Confidence}
			q, err := QualityScore(personCrop, bbox)
			if err != nil {
				continue
			}
			candidates = append(candidates, candidate{det: scaledDet, quality: q})
		}

		if len(candidates) > 0 {
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.quality > best.quality {
					best = c
				}
			}
			if best.quality >= r.cfg.EarlyStopQuality {
				break
			}
		}
	}

	if len(candidates) == 0 {
		return nil, 0, nil
	}

	// Deduplicate across upsample levels: when two candidates overlap by
	// more than DedupIoU, keep only the higher-quality one.
	var deduped []candidate
	for _, c := range candidates {
		dupeOf := -1
		for i, k := range deduped {
			if iouBoxF(c.det.BBox, k.det.BBox) > r.cfg.DedupIoU {
				dupeOf = i
				break
			}
		}
		if dupeOf == -1 {
			deduped = append(deduped, c)
		} else if c.quality > deduped[dupeOf].quality {
			deduped[dupeOf] = c
		}
	}

	best := deduped[0]
	for _, c := range deduped[1:] {
		if c.quality > best.quality {
			best = c
		}
	}
	return &best.det, best.quality, nil
}

// match computes the Euclidean distance to every mirror encoding, applies
// the quality-adaptive tolerance table, and reports the closest match.
func (r *Recognizer) match(embedding []float32, quality float32) (name, personID string, confidence float32, matched bool) {
	mirror := r.mirrorSnapshot()
	if len(mirror.Encodings) == 0 {
		return "", "", 0, false
	}

	tolerance := adaptiveTolerance(quality, r.cfg.BaseTolerance)

	minDist := float32(-1)
	minIdx := -1
	for i, enc := range mirror.Encodings {
		if len(enc) != len(embedding) {
			continue
		}
		d := EuclideanDistance(embedding, enc)
		if minIdx == -1 || d < minDist {
			minDist = d
			minIdx = i
		}
	}

	if minIdx == -1 || minDist > tolerance {
		return "", "", 0, false
	}

	conf := clampF(1-minDist/tolerance, 0, 1)
	return mirror.Names[minIdx], mirror.PersonIDs[minIdx], conf, true
}

// adaptiveTolerance implements the quality-gated tolerance table:
// q>=0.7 -> base; 0.5<=q<0.7 -> min(0.70, base+0.05); q<0.5 -> min(0.75, base+0.10).
func adaptiveTolerance(quality, base float32) float32 {
	switch {
	case quality >= 0.7:
		return base
	case quality >= 0.5:
		t := base + 0.05
		if t > 0.70 {
			t = 0.70
		}
		return t
	default:
		t := base + 0.10
		if t > 0.75 {
			t = 0.75
		}
		return t
	}
}

// RecognizeSingleBest runs fast-path detection (upsample=0 only) against a
// standalone registration image and returns the single best face's
// embedding, for use by the register/register_face_for_existing_person
// facade operations — the subject is assumed close, so no multi-scale
// search is needed.
func (r *Recognizer) RecognizeSingleBest(img image.Image) (embedding []float32, bbox [4]float32, err error) {
	detW, detH := r.faceDetector.InputSize()
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	detInput := preprocessForFaceDetection(img, detW, detH)
	dets, err := r.faceDetector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, [4]float32{}, fmt.Errorf("detect: %w", err)
	}
	if len(dets) == 0 {
		return nil, [4]float32{}, ErrNoFace
	}

	best := dets[0]
	for _, d := range dets[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	faceImg := cropRegion(img, best.BBox, 0.1)
	if faceImg == nil {
		return nil, [4]float32{}, ErrNoFace
	}

	embW, embH := r.embedder.InputSize()
	resized := resizeImage(faceImg, embW, embH)
	embInput := preprocessForEmbedding(resized, embW, embH)
	embedding, err = r.embedder.Extract(embInput)
	if err != nil {
		return nil, [4]float32{}, fmt.Errorf("embed: %w", err)
	}

	return embedding, best.BBox, nil
}

var ErrNoFace = fmt.Errorf("no face detected in image")

// RecognitionTTL exposes the configured per-track rate-limit window.
func (r *Recognizer) RecognitionTTL() time.Duration { return r.cfg.RecognitionTTL }

// SnapshotJPEG upscales img so its shorter side is at least
// minShortSide and encodes it as JPEG at the given quality.
func SnapshotJPEG(img image.Image, minShortSide, quality int) []byte {
	return encodeJPEG(upscale(img, minShortSide), quality)
}
