package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/anttok/recognitiond/internal/api"
	"github.com/anttok/recognitiond/internal/api/ws"
	"github.com/anttok/recognitiond/internal/config"
	"github.com/anttok/recognitiond/internal/facestore"
	"github.com/anttok/recognitiond/internal/observability"
	"github.com/anttok/recognitiond/internal/orchestrator"
	"github.com/anttok/recognitiond/internal/queue"
	"github.com/anttok/recognitiond/internal/runstate"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting recognitiond", "port", cfg.Server.Port)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	ort.SetSharedLibraryPath(onnxLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("initialize onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	engines, err := vision.LoadEngines(cfg.Detector)
	if err != nil {
		slog.Error("load vision engines", "error", err)
		os.Exit(1)
	}
	defer engines.Close()

	recognizer := vision.NewRecognizer(engines.Face, engines.Embedder, engines.Attributes, cfg.FaceMatch)

	faceStore, err := facestore.Open(cfg.Paths.FaceStore, recognizer)
	if err != nil {
		slog.Error("open face store", "error", err)
		os.Exit(1)
	}

	rs := runstate.NewStore(cfg.Paths.RunState)

	orch := orchestrator.New(engines, recognizer, db, producer, rs, cfg)

	resumeCtx, resumeCancel := context.WithTimeout(context.Background(), cfg.Ingest.OpenTimeout)
	if err := orch.Resume(resumeCtx); err != nil {
		slog.Warn("resume active source", "error", err)
	}
	resumeCancel()
	defer orch.Close()

	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "recognitiond-ws", func(ctx context.Context, msg jetstream.Msg) error {
		var evt orchestrator.WSDetectionEvent
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			return err
		}
		hub.BroadcastEvent(evt)
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:       cfg.Server.APIKey,
		DB:           db,
		MinIO:        minioStore,
		Producer:     producer,
		Hub:          hub,
		FaceStore:    faceStore,
		Recognizer:   recognizer,
		Orchestrator: orch,
		Attendance:   cfg.Attendance,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("recognitiond listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down recognitiond...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("recognitiond stopped")
}

func onnxLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
