package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/async"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/export"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
)

// ExtractorSource leases the extractor bound to an API key; "" selects the
// default. release is called once the batch no longer needs the extractor.
type ExtractorSource interface {
	For(ctx context.Context, apiKey string) (ex llm.Extractor, release func(), err error)
}

// BatchProcessor runs a batch synchronously.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, req core.BatchRequest) (core.BatchResult, error)
}

// Deps are the collaborators the HTTP API serves.
type Deps struct {
	Store      repository.RecordStore
	Processor  BatchProcessor
	Queue      async.Queue
	Extractors ExtractorSource
	Exporter   *export.Service
	Years      entity.YearRange
}

type Options struct {
	MaxUploadMB    int
	AllowKeyHeader bool
}

// Server holds the state for the REST API server.
type Server struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	router *gin.Engine
}

const apiKeyHeader = "X-Api-Key"

// NewServer creates a new Server instance.
func NewServer(deps Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 100
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = int64(opts.MaxUploadMB) << 20
	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logger,
		router: r,
	}
	r.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/v1")
	v1.POST("/batches", s.handleCreateBatch)
	v1.GET("/batches/:id", s.handleGetBatch)
	v1.GET("/records", s.handleListRecords)
	v1.DELETE("/records", s.handleClearRecords)
	v1.POST("/records/:id/notes", s.handleAddNote)
	v1.GET("/summary", s.handleSummary)
	v1.GET("/export.csv", s.handleExport(export.CSV))
	v1.GET("/export.xlsx", s.handleExport(export.XLSX))
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header("X-Request-Id", rid)
		logger := s.logger.With("request_id", rid)
		ctx := common.WithRequestID(c.Request.Context(), rid)
		c.Request = c.Request.WithContext(common.WithLogger(ctx, logger))

		c.Next()

		logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	if err := repository.HealthCheck(c.Request.Context(), s.deps.Store, 2*time.Second, s.logger); err != nil {
		handleError(c, common.NewAppError(common.CodeUnavailable, "record store unavailable", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleError writes the single error banner for err.
func handleError(c *gin.Context, err error) {
	body := gin.H{
		"code":    common.ErrorCode(err),
		"message": common.UserMessage(err),
	}
	var fe *common.FieldErrors
	if common.IsValidationError(err) && errors.As(err, &fe) {
		fields := make([]gin.H, 0, len(fe.Fields))
		for _, f := range fe.Fields {
			fields = append(fields, gin.H{"field": f.Field, "message": f.Message})
		}
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(common.HTTPStatus(err), gin.H{"error": body})
}
