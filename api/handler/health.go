package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/scraper"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports permit pool utilisation and degrades status when every permit is
// held.
func Health(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()

		status := "healthy"
		if stats.MaxConcurrent > 0 && stats.Active >= stats.MaxConcurrent {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    sc.Uptime().Round(time.Second).String(),
			PoolStats: stats,
			Version:   Version,
		})
	}
}
