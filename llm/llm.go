// Package llm queries vision-capable models with a screenshot and a prompt.
// Both clients use net/http directly; no provider SDK is needed.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/models"
)

// Extractor sends an image and a prompt to a vision model and returns the
// model's raw text answer.
type Extractor interface {
	Query(ctx context.Context, image []byte, prompt, model string) (string, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(ctx context.Context, image []byte, prompt, model string) (string, error)

func (f ExtractorFunc) Query(ctx context.Context, image []byte, prompt, model string) (string, error) {
	return f(ctx, image, prompt, model)
}

// New builds the client for cfg.Provider. httpClient may be nil.
func New(cfg config.VLMConfig, httpClient *http.Client) (Extractor, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGeminiClient(httpClient, cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "openai":
		return NewOpenAIClient(httpClient, cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown vision model provider %q", cfg.Provider)
	}
}

// apiErrorResponse is the error envelope shared by both providers.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// classifyLLMError maps HTTP status codes to appropriate error codes.
func classifyLLMError(statusCode int, body []byte) *models.ScrapeError {
	var errResp apiErrorResponse
	msg := "vision model API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeLLMFailure, fmt.Sprintf("vision model API returned %d: %s", statusCode, msg), nil)
	}
}

func missingKeyError(provider string) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeLLMAuthFailure, provider+" API key is not configured", nil)
}
