package models

import "sync"

// BatchRequest is the payload for POST /api/v1/batch.
type BatchRequest struct {
	// URLs is the list of target pages. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=100"`

	// DataType selects the prompt template for every URL in the batch.
	DataType string `json:"data_type,omitempty"`

	// WebhookURL receives a batch.completed event when the job finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// BatchResponse is the immediate response for POST /api/v1/batch.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Failed  int               `json:"failed"`
	Total   int               `json:"total"`
	Results map[string]Result `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch operation.
type BatchJob struct {
	ID        string
	Total     int
	CreatedAt int64 // unix timestamp

	mu      sync.Mutex
	status  string // "processing", "completed", "failed", "partial"
	failed  int
	results map[string]Result
}

// NewBatchJob creates a job in the "processing" state.
func NewBatchJob(id string, total int, createdAt int64) *BatchJob {
	return &BatchJob{ID: id, Total: total, CreatedAt: createdAt, status: "processing"}
}

// Finish records the batch results and derives the final status.
func (j *BatchJob) Finish(results map[string]Result) {
	failed := 0
	for _, r := range results {
		if r.IsError() {
			failed++
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = results
	j.failed = failed
	switch {
	case len(results) > 0 && failed == len(results):
		j.status = "failed"
	case failed > 0:
		j.status = "partial"
	default:
		j.status = "completed"
	}
}

// Snapshot returns the job as an API response.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return BatchStatusResponse{
		ID:      j.ID,
		Status:  j.status,
		Failed:  j.failed,
		Total:   j.Total,
		Results: j.results,
	}
}
