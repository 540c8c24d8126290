package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/use-agent/snapscrape/models"
	"gopkg.in/yaml.v3"
)

func sampleResult() models.Result {
	return models.Result{"title": "x"}.WithMetadata(models.Metadata{
		URL:       "https://example.com",
		Timestamp: "2024-01-01T00:00:00Z",
		DataType:  "article",
	})
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutput(&buf, "json", sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	md := got["_metadata"].(map[string]any)
	if got["title"] != "x" || md["data_type"] != "article" {
		t.Errorf("decoded = %v", got)
	}
	if !strings.Contains(buf.String(), "\n  \"") {
		t.Error("JSON output should be indented")
	}
}

func TestWriteOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutput(&buf, "yaml", sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	md, ok := got["_metadata"].(map[string]any)
	if !ok || md["url"] != "https://example.com" || md["data_type"] != "article" {
		t.Errorf("decoded = %v", got)
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	if err := writeOutput(&bytes.Buffer{}, "csv", sampleResult()); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# shop pages\nhttps://example.com/a\n\n  https://example.com/b  \n#https://example.com/skip\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readURLFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !slices.Equal(got, want) {
		t.Errorf("readURLFile() = %v, want %v", got, want)
	}
}

func TestReadURLFile_Missing(t *testing.T) {
	if _, err := readURLFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
