package orchestrator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/vision"
)

// StreamFrame renders the latest ingested frame annotated with current
// track bounding boxes, colored by recognition status, and JPEG-encodes
// it for the MJPEG push endpoint. Grounded on the teacher pack's
// ffmpeg-backed MJPEG overlay stream, adapted to read directly from the
// ingestor's latest frame and the orchestrator's own tracker snapshot
// instead of a pre-annotated frame channel, since this facade has a
// single shared tracker rather than a per-camera detection pipeline.
func (o *Orchestrator) StreamFrame() ([]byte, error) {
	o.lifecycleMu.Lock()
	ing := o.ingestor
	o.lifecycleMu.Unlock()

	if ing == nil {
		return nil, apperr.New(apperr.KindFrameUnavailable, "no active source")
	}
	frame, ok := ing.LatestFrame()
	if !ok {
		return nil, apperr.New(apperr.KindFrameUnavailable, "no frame available yet")
	}

	bounds := frame.Image.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, frame.Image, bounds.Min, draw.Src)

	for _, tr := range o.tracker.Snapshot() {
		drawBox(rgba, tr.BBox, statusColor(tr.Status))
		if tr.FaceBBox != nil {
			drawBox(rgba, *tr.FaceBBox, statusColor(tr.Status))
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode stream frame: %w", err)
	}
	return buf.Bytes(), nil
}

func statusColor(s vision.Status) color.RGBA {
	switch s.Color() {
	case vision.ColorGreen:
		return color.RGBA{0, 200, 0, 255}
	case vision.ColorRed:
		return color.RGBA{200, 0, 0, 255}
	default:
		return color.RGBA{200, 200, 0, 255}
	}
}

const boxThickness = 2

func drawBox(img *image.RGBA, bbox [4]float32, c color.RGBA) {
	bounds := img.Bounds()
	x0, y0, x1, y1 := int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3])

	for t := 0; t < boxThickness; t++ {
		hLine(img, x0, x1, y0+t, c, bounds)
		hLine(img, x0, x1, y1-t, c, bounds)
		vLine(img, y0, y1, x0+t, c, bounds)
		vLine(img, y0, y1, x1-t, c, bounds)
	}
}

func hLine(img *image.RGBA, x0, x1, y int, c color.RGBA, bounds image.Rectangle) {
	if y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	for x := x0; x <= x1; x++ {
		if x >= bounds.Min.X && x < bounds.Max.X {
			img.Set(x, y, c)
		}
	}
}

func vLine(img *image.RGBA, y0, y1, x int, c color.RGBA, bounds image.Rectangle) {
	if x < bounds.Min.X || x >= bounds.Max.X {
		return
	}
	for y := y0; y <= y1; y++ {
		if y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, c)
		}
	}
}
