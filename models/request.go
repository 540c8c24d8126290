package models

// ProcessRequest is the payload for POST /api/v1/process.
type ProcessRequest struct {
	// URL is the target page to capture. Required.
	URL string `json:"url" binding:"required,url"`

	// DataType selects the prompt template (e.g. "product", "article").
	// Empty uses the configured default.
	DataType string `json:"data_type,omitempty"`
}
