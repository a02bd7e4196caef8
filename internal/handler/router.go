package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weixiu/weixiu/internal/middleware"
)

// RouterConfig 路由配置
type RouterConfig struct {
	Timeout        time.Duration
	CORSEnabled    bool
	CORSOrigins    []string
	Metrics        middleware.HTTPObserver
	MetricsPath    string
	MetricsHandler http.Handler
	RateLimiter    middleware.Limiter // 为空时不限流
}

// NewRouter 注册所有路由
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(), middleware.Logger(), middleware.SecurityHeaders())
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORSEnabled {
		r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	r.GET("/health", h.Health)
	r.GET("/version", h.Version)
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	api.Use(middleware.Timeout(cfg.Timeout))
	{
		api.GET("/categories", h.Categories)
		api.GET("/rules", h.Rules)
		api.POST("/categorize", h.Categorize)
		api.POST("/specializations/parse", h.ParseSpecialization)
		api.POST("/candidates", h.Candidates)
		api.POST("/assignments", h.CommitAssignment)
		api.POST("/workers", h.RegisterWorker)
		api.GET("/workers/:id/availability", h.WorkerAvailability)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
