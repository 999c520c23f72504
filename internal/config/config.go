// Package config loads the service's YAML configuration file and applies
// environment variable overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Detector   DetectorConfig   `yaml:"detector"`
	FaceMatch  FaceMatchConfig  `yaml:"face_match"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Logging    LoggingConfig    `yaml:"logging"`
	Paths      PathsConfig      `yaml:"paths"`
}

// PathsConfig locates the small local files the facade keeps outside
// Postgres: the Face Store mirror and the Run-State record.
type PathsConfig struct {
	FaceStore string `yaml:"face_store"`
	RunState  string `yaml:"run_state"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// IngestConfig governs the Video Ingestor (component A).
type IngestConfig struct {
	DefaultSource  string        `yaml:"default_source"`
	MaxWidth       int           `yaml:"max_width"`
	MaxHeight      int           `yaml:"max_height"`
	BufferDepth    int           `yaml:"buffer_depth"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	AliveWindow    time.Duration `yaml:"alive_window"`
}

// DetectorConfig governs the Person Detector (component B).
type DetectorConfig struct {
	ModelsDir     string  `yaml:"models_dir"`
	Device        string  `yaml:"device"` // "cpu" or "cuda"
	MinConfidence float32 `yaml:"min_confidence"`
	MinArea       float32 `yaml:"min_area"`
	MaxAspect     float32 `yaml:"max_aspect"`
	MinWidth      float32 `yaml:"min_width"`
	MaxWidthPx    float32 `yaml:"max_width_px"`
	MinHeight     float32 `yaml:"min_height"`
	MaxHeightPx   float32 `yaml:"max_height_px"`
	BatchSize     int     `yaml:"batch_size"`
}

// FaceMatchConfig governs the Face Recognizer (component D).
type FaceMatchConfig struct {
	MaxUpsample       int           `yaml:"max_upsample"`
	QualityThreshold  float32       `yaml:"quality_threshold"`
	BaseTolerance     float32       `yaml:"base_tolerance"`
	RecognitionTTL    time.Duration `yaml:"recognition_ttl"`
	EncodingDim       int           `yaml:"encoding_dim"`
	DedupIoU          float32       `yaml:"dedup_iou"`
	EarlyStopQuality  float32       `yaml:"early_stop_quality"`
}

type TrackingConfig struct {
	MaxAge           int           `yaml:"max_age"`
	MinIoU           float32       `yaml:"min_iou"`
	FaceMemoryTime   time.Duration `yaml:"face_memory_time"`
}

// AttendanceConfig governs the Attendance Store (component F).
type AttendanceConfig struct {
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}

	if cfg.Ingest.MaxWidth == 0 {
		cfg.Ingest.MaxWidth = 1280
	}
	if cfg.Ingest.MaxHeight == 0 {
		cfg.Ingest.MaxHeight = 720
	}
	if cfg.Ingest.BufferDepth == 0 {
		cfg.Ingest.BufferDepth = 1
	}
	if cfg.Ingest.OpenTimeout == 0 {
		cfg.Ingest.OpenTimeout = 8 * time.Second
	}
	if cfg.Ingest.ReconnectDelay == 0 {
		cfg.Ingest.ReconnectDelay = 5 * time.Second
	}
	if cfg.Ingest.AliveWindow == 0 {
		cfg.Ingest.AliveWindow = 5 * time.Second
	}

	if cfg.Detector.Device == "" {
		cfg.Detector.Device = "cpu"
	}
	if cfg.Detector.MinConfidence == 0 {
		cfg.Detector.MinConfidence = 0.65
	}
	if cfg.Detector.MinArea == 0 {
		cfg.Detector.MinArea = 3000
	}
	if cfg.Detector.MaxAspect == 0 {
		cfg.Detector.MaxAspect = 4.0
	}
	if cfg.Detector.MinWidth == 0 {
		cfg.Detector.MinWidth = 20
	}
	if cfg.Detector.MaxWidthPx == 0 {
		cfg.Detector.MaxWidthPx = 800
	}
	if cfg.Detector.MinHeight == 0 {
		cfg.Detector.MinHeight = 40
	}
	if cfg.Detector.MaxHeightPx == 0 {
		cfg.Detector.MaxHeightPx = 1200
	}
	if cfg.Detector.BatchSize == 0 {
		cfg.Detector.BatchSize = 8
	}

	if cfg.FaceMatch.MaxUpsample == 0 {
		cfg.FaceMatch.MaxUpsample = 2
	}
	if cfg.FaceMatch.QualityThreshold == 0 {
		cfg.FaceMatch.QualityThreshold = 0.25
	}
	if cfg.FaceMatch.BaseTolerance == 0 {
		cfg.FaceMatch.BaseTolerance = 0.65
	}
	if cfg.FaceMatch.RecognitionTTL == 0 {
		cfg.FaceMatch.RecognitionTTL = 2 * time.Second
	}
	if cfg.FaceMatch.EncodingDim == 0 {
		cfg.FaceMatch.EncodingDim = 128
	}
	if cfg.FaceMatch.DedupIoU == 0 {
		cfg.FaceMatch.DedupIoU = 0.5
	}
	if cfg.FaceMatch.EarlyStopQuality == 0 {
		cfg.FaceMatch.EarlyStopQuality = 0.6
	}

	if cfg.Tracking.MaxAge == 0 {
		// Fixed at 3 per the normative resolution of the max_age open
		// question; do not raise this back toward a per-frame default.
		cfg.Tracking.MaxAge = 3
	}
	if cfg.Tracking.MinIoU == 0 {
		cfg.Tracking.MinIoU = 0.3
	}
	if cfg.Tracking.FaceMemoryTime == 0 {
		cfg.Tracking.FaceMemoryTime = 3 * time.Second
	}

	if cfg.Attendance.DuplicateWindow == 0 {
		cfg.Attendance.DuplicateWindow = 5 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Paths.FaceStore == "" {
		cfg.Paths.FaceStore = "data/faces.json"
	}
	if cfg.Paths.RunState == "" {
		cfg.Paths.RunState = "data/runstate.txt"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RECOG_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("RECOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("RECOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("RECOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("RECOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("RECOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("RECOG_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("RECOG_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("RECOG_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("RECOG_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("RECOG_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("RECOG_MODELS_DIR"); v != "" {
		cfg.Detector.ModelsDir = v
	}
	if v := os.Getenv("RECOG_DETECTOR_DEVICE"); v != "" {
		cfg.Detector.Device = v
	}
	if v := os.Getenv("RECOG_DEFAULT_SOURCE"); v != "" {
		cfg.Ingest.DefaultSource = v
	}
}
