// Package extract turns a screenshot into a structured Result by querying a
// vision model and recovering JSON from its answer.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/use-agent/snapscrape/llm"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/permit"
)

// Controller calls the Extractor under a permit from the shared pool.
type Controller struct {
	extractor llm.Extractor
	pool      *permit.Pool
	model     string
}

// NewController creates a Controller. model is passed through to every
// query; an empty model lets the extractor pick its default.
func NewController(extractor llm.Extractor, pool *permit.Pool, model string) *Controller {
	return &Controller{extractor: extractor, pool: pool, model: model}
}

// Extract reads the image at imagePath and asks the model to answer prompt.
// It never returns an error: failures become error records.
func (c *Controller) Extract(ctx context.Context, imagePath, prompt string) models.Result {
	release, err := c.pool.Acquire(ctx)
	if err != nil {
		return models.ErrorResult(err.Error())
	}
	defer release()

	image, err := os.ReadFile(imagePath)
	if err != nil {
		slog.Error("failed to read screenshot", "path", imagePath, "error", err)
		return models.ErrorResult(err.Error())
	}

	text, err := c.extractor.Query(ctx, image, prompt, c.model)
	if err != nil {
		slog.Error("vision model query failed", "path", imagePath, "error", err)
		return models.ErrorResult(err.Error())
	}

	return Recover(text)
}

// Recover extracts a JSON object from free-form model output.
//
// Text that does not start with "{" is cut down to the span between the
// first "{" and the last "}". Anything that still fails to parse as a JSON
// object yields a parse-error record carrying the string that failed.
func Recover(text string) models.Result {
	candidate := strings.TrimSpace(text)
	if !strings.HasPrefix(candidate, "{") {
		candidate = objectSpan(candidate)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		slog.Warn("failed to parse model output as JSON", "error", err, "raw", truncate(candidate, 200))
		return models.ParseErrorResult(candidate)
	}
	return models.Result(obj)
}

// objectSpan returns s[first "{" : last "}"], inclusive. It returns s
// unchanged when either brace is missing, and "" when the last "}" precedes
// the first "{".
func objectSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < 0 {
		return s
	}
	if end < start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
