package api

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/snapscrape/api/handler"
	"github.com/use-agent/snapscrape/api/middleware"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/scraper"
	"github.com/use-agent/snapscrape/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, notifier *webhook.Notifier, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Server.Mode != gin.TestMode {
		r.Use(gin.Logger())
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(sc))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Single URL, synchronous
	protected.POST("/process", handler.Process(sc))

	// Batch, asynchronous
	protected.POST("/batch", handler.PostBatch(sc, notifier))
	protected.GET("/batch/:id", handler.GetBatch())

	// Prompt templates
	protected.GET("/prompts", handler.Prompts(sc))

	return r
}
