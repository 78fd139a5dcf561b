// Package http wires the HTTP interface: router, middleware and server.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CyberTrace-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CyberTrace-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// needs.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	MatchingHandler *handlers.MatchingHandler
	ChatHandler     *handlers.ChatHandler
	HealthHandler   *handlers.HealthHandler

	Logger  logging.Logger
	Metrics *prometheus.AppMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Mode string
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if h := cfg.AnalysisHandler; h != nil {
		api.POST("/analyze-audio", h.AnalyzeAudio)
		api.POST("/analyze-video", h.AnalyzeVideo)
		api.POST("/analyze-image", h.AnalyzeImage)
		api.POST("/analyze-pdf", h.AnalyzeDocument)
		api.POST("/analyze-complaint", h.AnalyzeComplaint)
		api.POST("/summarize", h.Summarize)
		api.POST("/check-contradiction", h.CheckContradiction)
		api.POST("/classify", h.Classify)
		api.POST("/complete-analysis", h.Complete)
	}
	if h := cfg.MatchingHandler; h != nil {
		api.POST("/check-similarity", h.CheckSimilarity)
		api.POST("/check-similarity-advanced", h.CheckSimilarityAdvanced)
	}
	if h := cfg.ChatHandler; h != nil {
		api.POST("/chat", h.Chat)
		api.POST("/chat-enhanced", h.ChatEnhanced)
	}

	return r
}

// NewRouterFromConfig builds the router using the server section of the
// application configuration.
func NewRouterFromConfig(server config.ServerConfig, cfg RouterConfig) *gin.Engine {
	cfg.Mode = server.Mode
	return NewRouter(cfg)
}
