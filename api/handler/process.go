package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/scraper"
)

// Process returns a handler for POST /api/v1/process.
//
// The pipeline runs synchronously. A capture or extraction failure is still a
// 200 with Success=false and the error record in Data; only a failed artifact
// write maps to an error status.
func Process(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, err.Error()))
			return
		}

		// ── 2. Run the pipeline ─────────────────────────────────────
		// A started URL runs to completion even if the client goes away;
		// otherwise a disconnect would persist a capture failure over
		// the last good data file.
		result, err := sc.Process(context.WithoutCancel(c.Request.Context()), req.URL, req.DataType)
		timing := models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
		if err != nil {
			respondError(c, err, timing)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, models.ProcessResponse{
			Success: !result.IsError(),
			Data:    result,
			Timing:  timing,
		})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ProcessResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeCaptureFailed, models.ErrCodeLLMFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
