package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"
	"github.com/use-agent/snapscrape/models"
)

// apiClient talks to the snapscrape HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 600 * time.Second},
	}
}

// do sends a request and returns the response body.
func (a *apiClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollBatch polls a batch job until status is no longer "processing" or
// ctx is cancelled.
func (a *apiClient) pollBatch(ctx context.Context, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := a.do(ctx, http.MethodGet, "/api/v1/batch/"+id, nil)
			if err != nil {
				return nil, err
			}
			var status models.BatchStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != "processing" {
				return &status, nil
			}
		}
	}
}

func handleExtract(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := api.do(ctx, http.MethodPost, "/api/v1/process", models.ProcessRequest{
			URL:      url,
			DataType: request.GetString("data_type", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ProcessResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError("extraction failed: " + resp.Data.Err()), nil
		}

		pretty, err := json.MarshalIndent(resp.Data, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(pretty)), nil
	}
}

func handleBatch(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		respBody, err := api.do(ctx, http.MethodPost, "/api/v1/batch", models.BatchRequest{
			URLs:     urls,
			DataType: request.GetString("data_type", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var accepted models.BatchResponse
		if err := json.Unmarshal(respBody, &accepted); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if accepted.ID == "" {
			var rejected models.ErrorResponse
			if json.Unmarshal(respBody, &rejected) == nil && rejected.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", rejected.Error.Code, rejected.Error.Message)), nil
			}
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		status, err := api.pollBatch(ctx, accepted.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatBatch(status)), nil
	}
}

// formatBatch renders one section per URL, in sorted URL order.
func formatBatch(status *models.BatchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %s (%d failed of %d)\n\n", status.ID, status.Status, status.Failed, status.Total)

	urls := lo.Keys(status.Results)
	slices.Sort(urls)
	for _, u := range urls {
		r := status.Results[u]
		if r.IsError() {
			fmt.Fprintf(&sb, "--- %s FAILED: %s ---\n\n", u, r.Err())
			continue
		}
		pretty, _ := json.MarshalIndent(r, "", "  ")
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", u, pretty)
	}
	return sb.String()
}

func handleListDataTypes(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := api.do(ctx, http.MethodGet, "/api/v1/prompts", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var resp models.PromptsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Data types: %s (default: %s)",
			strings.Join(resp.DataTypes, ", "), resp.Default)), nil
	}
}
