package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/snapscrape/models"
)

// OpenAIClient is a lightweight client for OpenAI-compatible chat
// completion endpoints that accept image_url content parts.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string // e.g. "https://api.openai.com/v1"
	model      string
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(httpClient *http.Client, apiKey, baseURL, model string) *OpenAIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{httpClient: httpClient, apiKey: apiKey, baseURL: baseURL, model: model}
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Query sends the prompt and the image as a data URL.
func (c *OpenAIClient) Query(ctx context.Context, image []byte, prompt, model string) (string, error) {
	if c.apiKey == "" {
		return "", missingKeyError("OpenAI")
	}
	if model == "" {
		model = c.model
	}

	data, err := jpegBase64(image)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to prepare image", err)
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + data}},
				{Type: "text", Text: prompt},
			},
		}},
		Temperature: 0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// Build URL: baseURL + /chat/completions
	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "failed to parse vision model response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewScrapeError(models.ErrCodeLLMFailure, "vision model returned no choices", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}
