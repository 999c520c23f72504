// Package orchestrator sequences a frame through the person detector,
// tracker, and face recognizer, running two loops — on-demand
// interactive and continuous background — against the same ingestor
// and tracker instance. Grounded on the teacher's ingest.Manager
// lifecycle and vision.Pipeline.ProcessFrame, fused into one in-process
// pair since this spec requires both loops to share one tracker rather
// than being split across separate ingestor/worker services.
package orchestrator

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/config"
	"github.com/anttok/recognitiond/internal/ingest"
	"github.com/anttok/recognitiond/internal/models"
	"github.com/anttok/recognitiond/internal/observability"
	"github.com/anttok/recognitiond/internal/queue"
	"github.com/anttok/recognitiond/internal/runstate"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/internal/vision"
)

const backgroundInterval = 500 * time.Millisecond

// TrackView is the read-only projection of a track returned to
// Facade callers.
type TrackView struct {
	TrackID    int        `json:"track_id"`
	BBox       [4]float32 `json:"bbox"`
	FaceBBox   *[4]float32 `json:"face_bbox,omitempty"`
	Name       string     `json:"name,omitempty"`
	PersonID   string     `json:"person_id,omitempty"`
	Confidence float32    `json:"face_confidence"`
	Status     string     `json:"status"`
}

// Status reports the orchestrator's run state for the facade's
// background_status/current_source operations.
type Status struct {
	Active       bool
	Source       string
	SourceType   string
	IngestHealth ingest.Health
	TracksActive int
}

type Orchestrator struct {
	engines    *vision.Engines
	recognizer *vision.Recognizer
	tracker    *vision.Tracker
	store      *storage.PostgresStore
	producer   *queue.Producer
	runstate   *runstate.Store

	cfgIngest    config.IngestConfig
	cfgDetector  config.DetectorConfig
	cfgTracking  config.TrackingConfig
	cfgFaceMatch config.FaceMatchConfig
	cfgAttend    config.AttendanceConfig

	// inferMu serializes all ONNX session calls (detector/recognizer),
	// which are not safe for concurrent Run from two goroutines.
	inferMu sync.Mutex

	// lifecycleMu guards ingestor/background-loop swap sequencing
	// (ChangeSource must be atomic with respect to itself).
	lifecycleMu sync.Mutex
	ingestor    ingest.Ingestor
	sourceURI   string
	sourceType  string
	bgCancel    context.CancelFunc
	bgDone      chan struct{}
}

func New(engines *vision.Engines, recognizer *vision.Recognizer, store *storage.PostgresStore, producer *queue.Producer, rs *runstate.Store, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		engines:      engines,
		recognizer:   recognizer,
		tracker:      vision.NewTracker(cfg.Tracking.MaxAge, cfg.Tracking.MinIoU, cfg.Tracking.FaceMemoryTime),
		store:        store,
		producer:     producer,
		runstate:     rs,
		cfgIngest:    cfg.Ingest,
		cfgDetector:  cfg.Detector,
		cfgTracking:  cfg.Tracking,
		cfgFaceMatch: cfg.FaceMatch,
		cfgAttend:    cfg.Attendance,
	}
}

// Resume recreates the last active source and starts the background
// loop if RunState.Active, consulted exactly once at startup.
func (o *Orchestrator) Resume(ctx context.Context) error {
	st := o.runstate.Load()
	if !st.Active {
		return nil
	}
	slog.Info("resuming active source from run-state", "source", st.Source)
	return o.ChangeSource(ctx, st.Source)
}

// ChangeSource atomically stops the current ingestor, persists the new
// RunState, starts the new ingestor, and clears the tracker, per §4.G.
func (o *Orchestrator) ChangeSource(ctx context.Context, uri string) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	newIngestor, err := ingest.Open(uri, o.cfgIngest)
	if err != nil {
		return apperr.Wrap(apperr.KindSourceOpenFailed, "open source", err)
	}

	o.stopBackgroundLocked()
	if o.ingestor != nil {
		_ = o.ingestor.Close()
	}

	sourceType := string(ingest.Classify(uri))
	if err := o.runstate.Save(runstate.State{Active: true, Source: uri, SourceType: runstate.SourceType(sourceType)}); err != nil {
		_ = newIngestor.Close()
		return fmt.Errorf("persist run-state: %w", err)
	}

	o.ingestor = newIngestor
	o.sourceURI = uri
	o.sourceType = sourceType
	o.tracker.Reset()

	bgCtx, cancel := context.WithCancel(context.Background())
	o.bgCancel = cancel
	o.bgDone = make(chan struct{})
	go o.backgroundLoop(bgCtx, newIngestor, o.bgDone)

	return nil
}

// StopSource halts the background loop and ingestor and marks the
// run-state inactive.
func (o *Orchestrator) StopSource(ctx context.Context) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	o.stopBackgroundLocked()
	if o.ingestor != nil {
		_ = o.ingestor.Close()
		o.ingestor = nil
	}
	prevSource, prevType := o.sourceURI, o.sourceType
	o.sourceURI, o.sourceType = "", ""
	return o.runstate.Save(runstate.State{Active: false, Source: prevSource, SourceType: runstate.SourceType(prevType)})
}

// stopBackgroundLocked signals the background loop to stop and waits
// up to one iteration period for it to observe the flag (§4.G: ≤~600ms).
func (o *Orchestrator) stopBackgroundLocked() {
	if o.bgCancel == nil {
		return
	}
	o.bgCancel()
	select {
	case <-o.bgDone:
	case <-time.After(600 * time.Millisecond):
		slog.Warn("background loop did not stop within one iteration")
	}
	o.bgCancel = nil
	o.bgDone = nil
}

func (o *Orchestrator) ValidateSource(uri string) error {
	if err := ingest.Validate(uri, o.cfgIngest); err != nil {
		return apperr.Wrap(apperr.KindSourceOpenFailed, "validate source", err)
	}
	return nil
}

func (o *Orchestrator) CurrentSource() (uri, sourceType string, active bool) {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()
	return o.sourceURI, o.sourceType, o.ingestor != nil
}

func (o *Orchestrator) Status() Status {
	o.lifecycleMu.Lock()
	ing := o.ingestor
	uri, sourceType := o.sourceURI, o.sourceType
	o.lifecycleMu.Unlock()

	st := Status{Active: ing != nil, Source: uri, SourceType: sourceType, TracksActive: o.tracker.TrackCount()}
	if ing != nil {
		st.IngestHealth = ing.Health()
	}
	return st
}

// RecognizeNow is the interactive loop (§4.G.1): pulls the latest
// frame, runs detect→track→recognize synchronously, and returns the
// live track set without committing attendance.
func (o *Orchestrator) RecognizeNow(ctx context.Context) ([]TrackView, error) {
	o.lifecycleMu.Lock()
	ing := o.ingestor
	source := o.sourceURI
	o.lifecycleMu.Unlock()

	if ing == nil {
		return nil, apperr.New(apperr.KindFrameUnavailable, "no active source")
	}
	frame, ok := ing.LatestFrame()
	if !ok {
		return nil, apperr.New(apperr.KindFrameUnavailable, "no frame available yet")
	}

	tracks, _ := o.runIteration(frame.Image, source, false)
	return tracks, nil
}

// RecognizeImage runs the interactive loop (§4.G.1) against a caller-
// supplied image instead of the ingestor's latest frame, per the
// recognize(image_bytes?) operation's "if image is provided, run B→C→D
// on it" branch. Never commits attendance, matching RecognizeNow.
func (o *Orchestrator) RecognizeImage(ctx context.Context, img image.Image) ([]TrackView, error) {
	tracks, _ := o.runIteration(img, "upload", false)
	return tracks, nil
}

// backgroundLoop runs continuously at ~2Hz, sequencing B→C→D for every
// iteration, committing attendance for Known tracks, and emitting a
// DetectionEvent per observed track.
func (o *Orchestrator) backgroundLoop(ctx context.Context, ing ingest.Ingestor, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(backgroundInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, ok := ing.LatestFrame()
		if !ok {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("background loop iteration panicked", "error", r)
				}
			}()
			o.runIteration(frame.Image, frame.Source, true)
		}()
	}
}

// runIteration performs one detect→track→recognize pass. commit=true
// (background loop only) additionally writes attendance and publishes
// DetectionEvents.
func (o *Orchestrator) runIteration(img image.Image, source string, commit bool) ([]TrackView, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	inW, inH := o.engines.Person.InputSize()
	tensor := vision.PreprocessPersonDetectorInput(img, inW, inH)

	o.inferMu.Lock()
	raw, err := o.engines.Person.Detect(tensor, w, h)
	o.inferMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("person detect: %w", err)
	}
	observability.PersonDetections.Add(float64(len(raw)))

	filtered := vision.FilterDetections(raw, o.cfgDetector)

	now := time.Now()
	tracks := o.tracker.Update(filtered, now)

	views := make([]TrackView, 0, len(tracks))
	for _, tr := range tracks {
		if o.tracker.ShouldRecognize(tr, o.cfgFaceMatch.RecognitionTTL, now) {
			o.recognizeTrack(img, tr, now)
		}

		views = append(views, TrackView{
			TrackID:    tr.ID,
			BBox:       tr.BBox,
			FaceBBox:   tr.FaceBBox,
			Name:       tr.Name,
			PersonID:   tr.PersonID,
			Confidence: tr.FaceConfidence,
			Status:     string(tr.Status),
		})

		if commit {
			o.commitTrack(tr, source, now)
		}
	}

	if commit {
		observability.TracksActive.Set(float64(len(tracks)))
	}
	return views, nil
}

// recognizeTrack crops the track's bbox and attempts face recognition.
// The attempt time is always recorded; the tracker's face-memory fields
// are updated only when a face is recognized or classified as unknown.
func (o *Orchestrator) recognizeTrack(img image.Image, tr *vision.Track, now time.Time) {
	crop := vision.CropTrack(img, tr.BBox)

	o.inferMu.Lock()
	result, err := o.recognizer.Recognize(crop)
	o.inferMu.Unlock()

	o.tracker.RecordRecognitionAttempt(tr.ID, now)
	if err != nil || result == nil {
		// No face found at acceptable quality this attempt: leave
		// status as-is (Tracking, or sticky Known/Unknown from memory).
		return
	}

	if result.Matched {
		observability.FacesRecognized.Inc()
	} else {
		observability.FacesUnknown.Inc()
	}
	o.tracker.RecordFaceMatch(tr.ID, result.FaceBBox, result.Name, result.PersonID, result.Confidence, result.Matched, now)
}

// commitTrack inserts an AttendanceRow for Known tracks (duplicate-
// suppressed) and always emits a DetectionEvent audit row.
func (o *Orchestrator) commitTrack(tr *vision.Track, source string, now time.Time) {
	var attendanceID *uuid.UUID

	if tr.Status == vision.StatusKnown && o.store != nil {
		row := models.AttendanceRow{
			ID:         uuid.New(),
			PersonID:   tr.PersonID,
			PersonName: tr.Name,
			CheckIn:    now,
			Date:       now.Truncate(24 * time.Hour),
			Source:     source,
			Confidence: tr.FaceConfidence,
			MarkedBy:   models.MarkedByAuto,
			Status:     models.AttendanceStatusPresent,
		}
		committed, inserted, err := o.store.MarkAttendance(context.Background(), row, o.cfgAttend.DuplicateWindow)
		switch {
		case err != nil:
			slog.Error("mark attendance failed", "person_id", tr.PersonID, "error", err)
		case !inserted:
			observability.DuplicateSuppressed.Inc()
			slog.Debug("duplicate attendance suppressed", "person_id", tr.PersonID)
		default:
			observability.AttendanceCommitted.Inc()
			attendanceID = &committed.ID
		}
	}

	if o.store != nil {
		var personID *string
		if tr.PersonID != "" {
			personID = &tr.PersonID
		}
		ev := models.DetectionEvent{
			PersonID:     personID,
			PersonName:   tr.Name,
			Timestamp:    now,
			Confidence:   tr.FaceConfidence,
			Source:       source,
			AttendanceID: attendanceID,
		}
		if err := o.store.CreateDetectionEvent(context.Background(), ev); err != nil {
			slog.Error("create detection event failed", "error", err)
		}
		if o.producer != nil {
			if err := o.producer.PublishEvent(context.Background(), source, wsDetectionEvent(tr, source, now)); err != nil {
				slog.Warn("publish detection event failed", "error", err)
			}
		}
	}
}

func (o *Orchestrator) Close() {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()
	o.stopBackgroundLocked()
	if o.ingestor != nil {
		_ = o.ingestor.Close()
	}
}
