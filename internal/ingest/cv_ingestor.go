package ingest

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/anttok/recognitiond/internal/config"
	"github.com/anttok/recognitiond/internal/observability"
)

// reconnectPolicy distinguishes the three transport contracts from §4.A:
// a local device reports dead on EOF, a file seeks to start, and a
// network stream reconnects forever with backoff.
type reconnectPolicy int

const (
	policyNone reconnectPolicy = iota
	policyLoopFile
	policyReconnectNetwork
)

// cvIngestor is a gocv.VideoCapture-backed Ingestor serving local devices,
// RTSP/HTTP/RTMP network streams, and looped files through one reader
// loop, following the capture-setup idiom from the pack's OpenCV camera
// source (V4L2 backend, MJPEG FOURCC) generalized to any
// gocv-openable source string, and the atomic latest-frame-pointer /
// background-reconnect idiom from the pack's RTSP camera component.
type cvIngestor struct {
	uri        string
	sourceType SourceType
	policy     reconnectPolicy
	cfg        config.IngestConfig

	latest       atomic.Pointer[Frame]
	lastProduced atomic.Int64 // unix nanos
	connected    atomic.Bool
	reconnects   atomic.Int32

	cap   *gocv.VideoCapture
	capMu sync.Mutex

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	downscaleLogged atomic.Bool
}

// openCVSource opens a gocv.VideoCapture for uri given the ingestor's
// source type, mirroring the pack's device-open conventions.
func openCVSource(uri string, sourceType SourceType) (*gocv.VideoCapture, error) {
	switch sourceType {
	case SourceTypeDevice:
		idx, err := strconv.Atoi(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid device index %q: %w", uri, err)
		}
		cap, err := gocv.OpenVideoCaptureWithAPI(idx, gocv.VideoCaptureV4L2)
		if err != nil {
			return nil, err
		}
		cap.Set(gocv.VideoCaptureFOURCC, float64(0x47504A4D)) // MJPG
		return cap, nil
	default:
		// RTSP/HTTP/RTMP/file: gocv opens any FFmpeg-backed URL or path
		// the same way.
		return gocv.OpenVideoCaptureWithAPI(uri, gocv.VideoCaptureFFmpeg)
	}
}

// newCVIngestor opens uri with a bounded open timeout, independent of any
// socket-level timeout, and starts the dedicated reader goroutine.
// Per §4.A, RTSP/HTTP/RTMP sources must not perform a synchronous first
// read during open — only the reader goroutine reads frames.
func newCVIngestor(uri string, sourceType SourceType, policy reconnectPolicy, cfg config.IngestConfig) (*cvIngestor, error) {
	ing := &cvIngestor{
		uri:        uri,
		sourceType: sourceType,
		policy:     policy,
		cfg:        cfg,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	openResult := make(chan error, 1)
	go func() {
		cap, err := openCVSource(uri, sourceType)
		if err != nil {
			openResult <- err
			return
		}
		if !cap.IsOpened() {
			cap.Close()
			openResult <- fmt.Errorf("source %q did not open", uri)
			return
		}
		ing.capMu.Lock()
		ing.cap = cap
		ing.capMu.Unlock()
		ing.connected.Store(true)
		openResult <- nil
	}()

	select {
	case err := <-openResult:
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
	case <-time.After(cfg.OpenTimeout):
		return nil, fmt.Errorf("open source %q: timed out after %s", uri, cfg.OpenTimeout)
	}

	go ing.readLoop()
	return ing, nil
}

func (ing *cvIngestor) readLoop() {
	defer close(ing.done)

	sleepInterval := 10 * time.Millisecond
	if ing.sourceType == SourceTypeRTSP {
		sleepInterval = time.Millisecond
	}

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-ing.stop:
			return
		default:
		}

		ing.capMu.Lock()
		cap := ing.cap
		ing.capMu.Unlock()

		if cap == nil {
			time.Sleep(ing.cfg.ReconnectDelay)
			continue
		}

		// Discard stale buffered frames before decoding so the decoded
		// frame is the most recent available (RTSP specifically).
		if ing.sourceType == SourceTypeRTSP {
			for i := 0; i < 3; i++ {
				cap.Grab(1)
			}
		}

		ok := cap.Read(&mat)
		if !ok || mat.Empty() {
			if !ing.handleReadFailure() {
				return
			}
			continue
		}

		img, err := mat.ToImage()
		if err != nil {
			time.Sleep(sleepInterval)
			continue
		}

		downscaled, applied := adaptiveDownscale(img, ing.cfg.MaxWidth, ing.cfg.MaxHeight)
		if applied && ing.downscaleLogged.CompareAndSwap(false, true) {
			slog.Info("ingestor applied downscale", "source", ing.uri)
		}

		bounds := downscaled.Bounds()
		frame := &Frame{
			Image:     downscaled,
			Width:     bounds.Dx(),
			Height:    bounds.Dy(),
			Timestamp: time.Now(),
			Source:    ing.uri,
		}
		ing.latest.Store(frame)
		ing.lastProduced.Store(time.Now().UnixNano())
		observability.FramesIngested.WithLabelValues(string(ing.sourceType)).Inc()

		time.Sleep(sleepInterval)
	}
}

// handleReadFailure applies the per-source-type failure contract. Returns
// false if the reader loop should exit (local device EOF: report dead,
// never reconnect).
func (ing *cvIngestor) handleReadFailure() bool {
	switch ing.policy {
	case policyNone:
		ing.connected.Store(false)
		return false
	case policyLoopFile:
		ing.capMu.Lock()
		if ing.cap != nil {
			ing.cap.Set(gocv.VideoCapturePosFrames, 0)
		}
		ing.capMu.Unlock()
		return true
	case policyReconnectNetwork:
		ing.connected.Store(false)
		ing.reconnects.Add(1)
		observability.ReconnectCount.Inc()
		ing.capMu.Lock()
		if ing.cap != nil {
			ing.cap.Close()
			ing.cap = nil
		}
		ing.capMu.Unlock()

		select {
		case <-ing.stop:
			return false
		case <-time.After(ing.cfg.ReconnectDelay):
		}

		cap, err := openCVSource(ing.uri, ing.sourceType)
		if err != nil || !cap.IsOpened() {
			if cap != nil {
				cap.Close()
			}
			slog.Warn("ingestor reconnect failed", "source", ing.uri, "error", err)
			return true
		}
		ing.capMu.Lock()
		ing.cap = cap
		ing.capMu.Unlock()
		ing.connected.Store(true)
		return true
	default:
		return false
	}
}

func (ing *cvIngestor) LatestFrame() (*Frame, bool) {
	f := ing.latest.Load()
	if f == nil {
		return nil, false
	}
	return f, true
}

func (ing *cvIngestor) Health() Health {
	lastNano := ing.lastProduced.Load()
	alive := lastNano != 0 && time.Since(time.Unix(0, lastNano)) <= ing.cfg.AliveWindow

	w, h := 0, 0
	if f := ing.latest.Load(); f != nil {
		w, h = f.Width, f.Height
	}

	return Health{
		Connected:      ing.connected.Load(),
		Alive:          alive,
		SourceType:     ing.sourceType,
		Width:          w,
		Height:         h,
		ReconnectCount: int(ing.reconnects.Load()),
	}
}

// Close joins the reader goroutine within a bounded timeout; if the join
// fails the reader is abandoned and the next start generates a new one.
func (ing *cvIngestor) Close() error {
	var err error
	ing.closeOnce.Do(func() {
		close(ing.stop)
		select {
		case <-ing.done:
		case <-time.After(2 * time.Second):
			slog.Warn("ingestor reader did not join within timeout, abandoning", "source", ing.uri)
		}
		ing.capMu.Lock()
		if ing.cap != nil {
			err = ing.cap.Close()
			ing.cap = nil
		}
		ing.capMu.Unlock()
	})
	return err
}

// adaptiveDownscale scales img down to fit within maxW×maxH, preserving
// aspect ratio, using an area-average-equivalent resize. Returns the
// original image unchanged (applied=false) if it already fits.
func adaptiveDownscale(img image.Image, maxW, maxH int) (image.Image, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img, false
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return img, false
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)

	out, err := resized.ToImage()
	if err != nil {
		return img, false
	}
	return out, true
}
