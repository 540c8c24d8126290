package models

// ProcessResponse is the response for POST /api/v1/process.
type ProcessResponse struct {
	// Success is false when the result is an error record.
	Success bool `json:"success"`

	// Data is the persisted result, including _metadata.
	Data Result `json:"data"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when the pipeline itself failed
	// (not when the result is an error record).
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the shared permit pool.
type PoolStats struct {
	MaxConcurrent int `json:"max_concurrent"`
	Active        int `json:"active"`
	Peak          int `json:"peak"`
}

// PromptsResponse is the response for GET /api/v1/prompts.
type PromptsResponse struct {
	Default   string   `json:"default"`
	DataTypes []string `json:"data_types"`
}

// ErrorResponse is returned when a request is rejected before the pipeline
// runs (validation, auth, rate limiting, unknown job).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// NewErrorResponse builds a failed ErrorResponse.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Message: message}}
}
