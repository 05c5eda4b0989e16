// Package server provides the HTTP API with lifecycle management.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tdnguyen/interview-recorder-go/internal/db"
	"github.com/tdnguyen/interview-recorder-go/internal/metrics"
	"github.com/tdnguyen/interview-recorder-go/internal/questions"
	"github.com/tdnguyen/interview-recorder-go/internal/queue"
	"github.com/tdnguyen/interview-recorder-go/internal/storage"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	DB        *db.Client
	Store     *storage.Store
	Queue     *queue.Queue
	Metrics   *metrics.Collector
	Questions *questions.Bank
	Logger    *slog.Logger
}

// Server wraps the gin engine with dependencies and lifecycle management.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	db       *db.Client
	store    *storage.Store
	queue    *queue.Queue
	metrics  *metrics.Collector
	bank     *questions.Bank
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates the server and registers all routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bank := deps.Questions
	if bank == nil {
		bank = questions.Empty()
	}

	s := &Server{
		db:      deps.DB,
		store:   deps.Store,
		queue:   deps.Queue,
		metrics: deps.Metrics,
		bank:    bank,
		logger:  logger,
		upgrader: websocket.Upgrader{
			// The recorder frontend is served from a different origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(logger))

	api := router.Group("/api")
	{
		api.POST("/verify-token", s.handleVerifyToken)
		api.POST("/session/start", s.handleSessionStart)
		api.POST("/upload-one", s.handleUploadOne)
		api.POST("/retry-processing", s.handleRetryProcessing)
		api.POST("/session/finish", s.handleSessionFinish)
		api.POST("/interviewer/create-session", s.handleCreateSession)
		api.GET("/jobs/:id", s.handleJobStatus)
		api.GET("/queue", s.handleQueueSnapshot)
		api.GET("/queue/watch", s.handleQueueWatch)
		api.GET("/stats", s.handleStats)
	}
	router.GET("/health", s.handleHealth)
	router.Static("/uploads", s.store.BaseDir())

	s.router = router
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP on addr and blocks until the listener fails or
// Shutdown is called.
func (s *Server) Run(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("http server listening", "addr", addr)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "interview-recorder"})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}
