package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/use-agent/snapscrape/models"
)

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string // e.g. "https://generativelanguage.googleapis.com/v1beta"
	model      string
}

// NewGeminiClient creates a Gemini client. model is used when Query is called
// with an empty model name.
func NewGeminiClient(httpClient *http.Client, apiKey, baseURL, model string) *GeminiClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{httpClient: httpClient, apiKey: apiKey, baseURL: baseURL, model: model}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Query sends the image (as JPEG) followed by the prompt.
func (c *GeminiClient) Query(ctx context.Context, image []byte, prompt, model string) (string, error) {
	if c.apiKey == "" {
		return "", missingKeyError("Gemini")
	}
	if model == "" {
		model = c.model
	}

	data, err := jpegBase64(image)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to prepare image", err)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: data}},
				{Text: prompt},
			},
		}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/models/" + url.PathEscape(model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "vision model request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to read vision model response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyLLMError(resp.StatusCode, respBody)
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to parse vision model response", err)
	}
	if reason := genResp.PromptFeedback.BlockReason; reason != "" {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "prompt blocked: "+reason, nil)
	}
	if len(genResp.Candidates) == 0 {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "vision model returned no candidates", nil)
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
