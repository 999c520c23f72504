package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anttok/recognitiond/internal/api/handlers"
	"github.com/anttok/recognitiond/internal/api/ws"
	"github.com/anttok/recognitiond/internal/auth"
	"github.com/anttok/recognitiond/internal/config"
	"github.com/anttok/recognitiond/internal/facestore"
	"github.com/anttok/recognitiond/internal/orchestrator"
	"github.com/anttok/recognitiond/internal/queue"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/internal/vision"
)

type RouterConfig struct {
	APIKey       string
	DB           *storage.PostgresStore
	MinIO        *storage.MinIOStore
	Producer     *queue.Producer
	Hub          *ws.Hub
	FaceStore    *facestore.Store
	Recognizer   *vision.Recognizer
	Orchestrator *orchestrator.Orchestrator
	Attendance   config.AttendanceConfig
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(auth.IssuedKeyMiddleware(cfg.DB))
	masterKey := auth.APIKeyMiddleware(cfg.APIKey)
	v1.Use(func(c *gin.Context) {
		// A matched issued key has already authenticated the request.
		if _, ok := c.Get("permissions"); ok {
			c.Next()
			return
		}
		masterKey(c)
	})

	v1.GET("/ws", cfg.Hub.HandleWS)

	faceH := handlers.NewFaceHandler(cfg.FaceStore, cfg.Recognizer, cfg.Orchestrator, cfg.DB, cfg.MinIO)
	v1.POST("/faces/register", auth.RequirePermission(auth.PermPersonAll), faceH.Register)
	v1.POST("/faces/register/:person_id", auth.RequirePermission(auth.PermPersonAll), faceH.RegisterForExisting)
	v1.GET("/faces", auth.RequirePermission(auth.PermPersonAll), faceH.List)
	v1.DELETE("/faces", auth.RequirePermission(auth.PermPersonAll), faceH.Clear)
	v1.POST("/recognize", faceH.Recognize)

	sourceH := handlers.NewSourceHandler(cfg.Orchestrator)
	v1.POST("/source", auth.RequirePermission(auth.PermSystemAll), sourceH.Change)
	v1.POST("/source/stop", auth.RequirePermission(auth.PermSystemAll), sourceH.Stop)
	v1.POST("/source/validate", auth.RequirePermission(auth.PermSystemAll), sourceH.Validate)
	v1.GET("/source", sourceH.Current)
	v1.GET("/status", sourceH.Status)
	v1.GET("/stream", sourceH.Stream)

	personH := handlers.NewPersonHandler(cfg.DB)
	v1.POST("/persons", auth.RequirePermission(auth.PermPersonAll), personH.Upsert)
	v1.GET("/persons", auth.RequirePermission(auth.PermPersonAll), personH.List)
	v1.GET("/persons/:person_id", auth.RequirePermission(auth.PermPersonAll), personH.Get)
	v1.PUT("/persons/:person_id", auth.RequirePermission(auth.PermPersonAll), personH.Update)
	v1.DELETE("/persons/:person_id", auth.RequirePermission(auth.PermPersonAll), personH.Delete)

	attendH := handlers.NewAttendanceHandler(cfg.DB, cfg.Attendance)
	v1.POST("/attendance", auth.RequirePermission(auth.PermAttendanceAll), attendH.Mark)
	v1.GET("/attendance", auth.RequirePermission(auth.PermAttendanceAll), attendH.List)
	v1.GET("/attendance/today", auth.RequirePermission(auth.PermAttendanceAll), attendH.Today)
	v1.GET("/attendance/:id", auth.RequirePermission(auth.PermAttendanceAll), attendH.Get)
	v1.POST("/attendance/:id/checkout", auth.RequirePermission(auth.PermAttendanceAll), attendH.Checkout)
	v1.GET("/persons/:person_id/attendance", auth.RequirePermission(auth.PermAttendanceAll), attendH.ForPerson)

	reportH := handlers.NewReportHandler(cfg.DB)
	v1.GET("/reports/range", auth.RequirePermission(auth.PermReportsAll), reportH.Range)
	v1.GET("/reports/daily-summary", auth.RequirePermission(auth.PermReportsAll), reportH.DailySummary)
	v1.GET("/export", auth.RequirePermission(auth.PermReportsAll), reportH.Export)

	configH := handlers.NewConfigHandler(cfg.DB)
	v1.GET("/config", auth.RequirePermission(auth.PermConfigAll), configH.List)
	v1.GET("/config/:key", auth.RequirePermission(auth.PermConfigAll), configH.Get)
	v1.PUT("/config/:key", auth.RequirePermission(auth.PermConfigAll), configH.Set)

	logH := handlers.NewLogHandler(cfg.DB)
	v1.GET("/logs", auth.RequirePermission(auth.PermLogsRead), logH.List)

	keyH := handlers.NewAuthKeyHandler(cfg.DB)
	v1.POST("/auth/keys", auth.RequirePermission(auth.PermAdmin), keyH.CreateKey)
	v1.DELETE("/auth/keys/:id", auth.RequirePermission(auth.PermAdmin), keyH.RevokeKey)

	v1.POST("/sync/hr", auth.RequirePermission(auth.PermSyncAll), systemH.SyncHR)

	return r
}
