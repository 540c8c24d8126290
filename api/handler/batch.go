package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/scraper"
	"github.com/use-agent/snapscrape/webhook"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*models.BatchJob)
				if job.CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBatch returns a handler for POST /api/v1/batch.
// It registers a job and runs the whole batch in the background.
func PostBatch(sc *scraper.Scraper, notifier *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, err.Error()))
			return
		}

		urls := lo.Uniq(req.URLs)
		job := models.NewBatchJob("batch-"+uuid.NewString(), len(urls), time.Now().Unix())
		batchStore.Store(job.ID, job)

		go runBatch(sc, notifier, job, urls, req)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: "processing",
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := batchStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.NewErrorResponse(models.ErrCodeInvalidInput, "batch job not found"))
			return
		}
		c.JSON(http.StatusOK, val.(*models.BatchJob).Snapshot())
	}
}

// runBatch processes the batch detached from the request context, so the job
// completes even after the client disconnects.
func runBatch(sc *scraper.Scraper, notifier *webhook.Notifier, job *models.BatchJob, urls []string, req models.BatchRequest) {
	results := sc.ProcessBatch(context.Background(), urls, req.DataType)
	job.Finish(results)

	snap := job.Snapshot()
	slog.Info("batch job finished",
		"id", job.ID,
		"status", snap.Status,
		"failed", snap.Failed,
		"total", snap.Total,
	)

	if req.WebhookURL != "" && notifier != nil {
		notifier.DeliverAsync(req.WebhookURL, webhook.NewEvent(webhook.EventBatchCompleted, job.ID, snap))
	}
}
