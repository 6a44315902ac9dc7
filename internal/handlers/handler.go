package handlers

import (
	"context"
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kosarica/feed-service/internal/middleware"
	"github.com/kosarica/feed-service/internal/pipeline"
	"github.com/kosarica/feed-service/internal/runlog"
	"github.com/kosarica/feed-service/internal/storage"
	"github.com/kosarica/feed-service/internal/types"
)

// Refresher is the part of the refresh pipeline the API drives
type Refresher interface {
	Trigger(opts pipeline.RunOptions) (string, error)
	Status() pipeline.StatusSnapshot
	// Forget and ForgetAll drop cached fingerprints so deleted feeds are
	// regenerated by the next pass
	Forget(supplierID string)
	ForgetAll()
}

// RunHistory reads persisted run history
type RunHistory interface {
	ListRecent(ctx context.Context, limit int) ([]types.RunSummary, error)
	GetSuppliers(ctx context.Context, runID string) ([]types.SupplierResult, error)
}

// Handler serves the feed service API
type Handler struct {
	refresher Refresher
	store     storage.Storage
	runlogs   *runlog.Manager
	history   RunHistory
	dbStatus  func(ctx context.Context) error
	logger    *zerolog.Logger
}

// Deps are the collaborators of a Handler. RunLogs, History and DBStatus are
// optional; their routes report the feature as unavailable when nil.
type Deps struct {
	Refresher Refresher
	Store     storage.Storage
	RunLogs   *runlog.Manager
	History   RunHistory
	DBStatus  func(ctx context.Context) error
	Logger    *zerolog.Logger
}

// New creates a handler
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}
	return &Handler{
		refresher: deps.Refresher,
		store:     deps.Store,
		runlogs:   deps.RunLogs,
		history:   deps.History,
		dbStatus:  deps.DBStatus,
		logger:    deps.Logger,
	}
}

// RouteConfig controls route registration
type RouteConfig struct {
	InternalAPIKey string
	// TriggerLimiter throttles POST /generate per client; nil disables it
	TriggerLimiter *middleware.IPRateLimiter
}

// Register mounts all routes on the router
func (h *Handler) Register(router *gin.Engine, cfg RouteConfig) {
	router.SetHTMLTemplate(template.Must(template.New("output").Parse(outputIndexTemplate)))

	router.GET("/", h.Root)
	router.GET("/health", h.HealthCheck)
	router.GET("/status", h.Status)
	router.GET("/files", h.ListFiles)
	router.GET("/files/:filename", h.GetFileInfo)
	router.GET("/output/", h.OutputIndex)
	router.GET("/output/:filename", h.ViewFile)
	router.GET("/download/:filename", h.DownloadFile)
	router.GET("/logs", h.ListLogs)
	router.GET("/logs/:filename", h.GetLog)
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:runId/suppliers", h.GetRunSuppliers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	protected := router.Group("/")
	protected.Use(middleware.InternalAuthMiddleware(cfg.InternalAPIKey))
	{
		generate := []gin.HandlerFunc{h.Generate}
		if cfg.TriggerLimiter != nil {
			generate = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(cfg.TriggerLimiter)}, generate...)
		}
		protected.POST("/generate", generate...)
		protected.DELETE("/files/:filename", h.DeleteFile)
		protected.DELETE("/files", h.DeleteAllFiles)
	}
}
