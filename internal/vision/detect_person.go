package vision

import (
	"fmt"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/anttok/recognitiond/internal/config"
)

// Detection is a person detection in frame pixel space, prior to geometry
// filtering.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2
	Confidence float32
}

func (d Detection) width() float32  { return d.BBox[2] - d.BBox[0] }
func (d Detection) height() float32 { return d.BBox[3] - d.BBox[1] }

// PersonDetector wraps a single-class object-detection ONNX model (any
// backend emitting per-anchor (bbox, confidence) for a "person" class).
// The model is treated as an opaque engine; this type owns only tensor
// lifecycle and output decoding.
type PersonDetector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	boxesTensor  *ort.Tensor[float32] // [N, 4]
	scoresTensor *ort.Tensor[float32] // [N]
	numAnchors   int
	inputW       int
	inputH       int
	rawThreshold float32
}

// NewPersonDetector loads a single-class person-detection ONNX model with
// a flat [N,4] box output and [N] score output (a common export shape for
// single-stage detectors run with NMS done in postprocessing).
func NewPersonDetector(modelPath string, numAnchors int, rawThreshold float32, opts *ort.SessionOptions) (*PersonDetector, error) {
	inputW, inputH := 640, 640

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	boxesTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(numAnchors), 4))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create boxes tensor: %w", err)
	}

	scoresTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(numAnchors)))
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		return nil, fmt.Errorf("create scores tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"boxes", "scores"},
		[]ort.Value{inputTensor},
		[]ort.Value{boxesTensor, scoresTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		scoresTensor.Destroy()
		return nil, fmt.Errorf("create person detector session: %w", err)
	}

	return &PersonDetector{
		session:      session,
		inputTensor:  inputTensor,
		boxesTensor:  boxesTensor,
		scoresTensor: scoresTensor,
		numAnchors:   numAnchors,
		inputW:       inputW,
		inputH:       inputH,
		rawThreshold: rawThreshold,
	}, nil
}

// Detect runs person detection on one preprocessed frame and returns raw
// detections (before geometry filtering) rescaled to origW/origH.
func (d *PersonDetector) Detect(imgData []float32, origW, origH int) ([]Detection, error) {
	copy(d.inputTensor.GetData(), imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run person detection: %w", err)
	}

	boxes := d.boxesTensor.GetData()
	scores := d.scoresTensor.GetData()

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	var detections []Detection
	for i := 0; i < d.numAnchors; i++ {
		score := scores[i]
		if score < d.rawThreshold {
			continue
		}
		x1 := clampF(boxes[i*4+0]*scaleW, 0, float32(origW))
		y1 := clampF(boxes[i*4+1]*scaleH, 0, float32(origH))
		x2 := clampF(boxes[i*4+2]*scaleW, 0, float32(origW))
		y2 := clampF(boxes[i*4+3]*scaleH, 0, float32(origH))
		detections = append(detections, Detection{BBox: [4]float32{x1, y1, x2, y2}, Confidence: score})
	}

	return nmsPersons(detections, 0.45), nil
}

// DetectBatch runs detection over each frame in order; the returned slice
// preserves input-to-output position. The detector holds no state across
// calls, so batching is a plain loop — safe to parallelize by callers that
// do not share a single PersonDetector concurrently.
func (d *PersonDetector) DetectBatch(frames [][]float32, dims [][2]int) ([][]Detection, error) {
	out := make([][]Detection, len(frames))
	for i, f := range frames {
		dets, err := d.Detect(f, dims[i][0], dims[i][1])
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out[i] = dets
	}
	return out, nil
}

func (d *PersonDetector) InputSize() (int, int) { return d.inputW, d.inputH }

func (d *PersonDetector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.boxesTensor != nil {
		d.boxesTensor.Destroy()
	}
	if d.scoresTensor != nil {
		d.scoresTensor.Destroy()
	}
}

func nmsPersons(detections []Detection, iouThreshold float32) []Detection {
	if len(detections) == 0 {
		return detections
	}
	sort.Slice(detections, func(i, j int) bool { return detections[i].Confidence > detections[j].Confidence })

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}
	for i := range detections {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if keep[j] && iouBox(detections[i].BBox, detections[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var out []Detection
	for i, det := range detections {
		if keep[i] {
			out = append(out, det)
		}
	}
	return out
}

func iouBox(a, b [4]float32) float32 {
	return iouBoxF(a, b)
}

// FilterDetections applies the four geometry/confidence filters from the
// detector's contract, strictly in order: confidence, area, aspect ratio,
// absolute dimension bounds. It is a pure function so it is testable
// without a model.
func FilterDetections(dets []Detection, cfg config.DetectorConfig) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Confidence < cfg.MinConfidence {
			continue
		}
		w, h := d.width(), d.height()
		if w*h < cfg.MinArea {
			continue
		}
		if w <= 0 {
			continue
		}
		aspect := h / w
		if aspect < 0.3 || aspect > cfg.MaxAspect {
			continue
		}
		if w < cfg.MinWidth || w > cfg.MaxWidthPx {
			continue
		}
		if h < cfg.MinHeight || h > cfg.MaxHeightPx {
			continue
		}
		out = append(out, d)
	}
	return out
}
