package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("SNAPSCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SNAPSCRAPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SNAPSCRAPE_API_KEY is required")
		os.Exit(1)
	}

	s := newServer(newAPIClient(apiURL, apiKey))
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(api *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"snapscrape",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("screenshot_extract",
		mcp.WithDescription("Render a web page in a headless browser, screenshot it, and extract structured data from the screenshot with a vision model. Returns JSON."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to capture"),
		),
		mcp.WithString("data_type",
			mcp.Description("Prompt template to use, e.g. 'product' or 'article'. Call list_data_types for the full list."),
		),
	)
	s.AddTool(extractTool, handleExtract(api))

	batchTool := mcp.NewTool("screenshot_extract_batch",
		mcp.WithDescription("Capture and extract many pages concurrently. Every URL gets a result; failed pages carry an 'error' field."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to capture"),
		),
		mcp.WithString("data_type",
			mcp.Description("Prompt template applied to every URL"),
		),
	)
	s.AddTool(batchTool, handleBatch(api))

	listTool := mcp.NewTool("list_data_types",
		mcp.WithDescription("List the data types (prompt templates) the server knows."),
	)
	s.AddTool(listTool, handleListDataTypes(api))

	return s
}

// pollInterval is how often batch job status is checked.
var pollInterval = 2 * time.Second
