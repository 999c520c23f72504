package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "frames_ingested_total",
		Help:      "Total number of frames produced by the video ingestor",
	}, []string{"source_type"})

	PersonDetections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "person_detections_total",
		Help:      "Total number of person detections surviving geometry filters",
	})

	FacesRecognized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "faces_recognized_total",
		Help:      "Total number of tracks transitioned to Known",
	})

	FacesUnknown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "faces_unknown_total",
		Help:      "Total number of tracks transitioned to Unknown",
	})

	AttendanceCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "attendance_committed_total",
		Help:      "Total number of attendance rows committed by the background loop",
	})

	DuplicateSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "duplicate_suppressed_total",
		Help:      "Total number of auto-attendance inserts rejected as duplicates",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recognitiond",
		Name:      "inference_duration_seconds",
		Help:      "Duration of detector/recognizer inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	TracksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "recognitiond",
		Name:      "tracks_active",
		Help:      "Number of live tracks held by the tracker",
	})

	ReconnectCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recognitiond",
		Name:      "ingestor_reconnects_total",
		Help:      "Total number of ingestor reconnect attempts",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recognitiond",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "recognitiond",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
