// Package server exposes analyses over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rewired-gh/chatpeaks/internal/config"
	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Service is the part of the orchestrator the API needs.
type Service interface {
	Defaults() models.AnalysisConfig
	AnalyzeRecording(ctx context.Context, recordingID string, cfg *models.AnalysisConfig) (*models.AnalysisResult, error)
	Get(ctx context.Context, recordingID string) (*models.AnalysisResult, error)
	List(ctx context.Context, limit int) ([]models.AnalysisSummary, error)
	Delete(ctx context.Context, recordingID string) error
}

// Server serves the HTTP API.
type Server struct {
	svc    Service
	engine *gin.Engine
	http   *http.Server
}

type analyzeRequest struct {
	RecordingID string          `json:"recording_id"`
	Config      json.RawMessage `json:"config"`
}

// New creates a Server listening on addr. mode is a gin mode (debug, release or test).
func New(svc Service, addr, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}

	s := &Server{svc: svc}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.POST("/analyze", s.analyze)
	api.GET("/analysis/:id", s.getAnalysis)
	api.DELETE("/analysis/:id", s.deleteAnalysis)
	api.GET("/analyses", s.listAnalyses)
	api.GET("/settings", s.settings)

	s.engine = r
	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP API listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.RecordingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recording_id is required"})
		return
	}

	var cfg *models.AnalysisConfig
	if len(req.Config) > 0 && string(req.Config) != "null" {
		// Fields missing from the request keep their default values.
		merged := s.svc.Defaults()
		merged.WindowSizes = slices.Clone(merged.WindowSizes)
		merged.ExcitementKeywords = slices.Clone(merged.ExcitementKeywords)
		merged.DisallowedTerms = slices.Clone(merged.DisallowedTerms)
		if err := json.Unmarshal(req.Config, &merged); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config format"})
			return
		}
		if err := config.ValidateAnalysis(merged); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cfg = &merged
	}

	result, err := s.svc.AnalyzeRecording(c.Request.Context(), req.RecordingID, cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getAnalysis(c *gin.Context) {
	result, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listAnalyses(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	summaries, err := s.svc.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if summaries == nil {
		summaries = []models.AnalysisSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) deleteAnalysis(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) settings(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Defaults())
}

// writeError maps an error to its status code. Invalid input is checked first
// since an upstream failure may wrap a validation error.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	log := logger.WithComponent("server")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}
