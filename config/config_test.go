package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()

	if !cfg.Screenshot.Headless {
		t.Error("Headless should default to true")
	}
	if !slices.Equal(cfg.Screenshot.Engines, []string{"chromium", "chromium-stealth"}) {
		t.Errorf("Engines = %v", cfg.Screenshot.Engines)
	}
	if cfg.Screenshot.ViewportWidth != 1920 || cfg.Screenshot.ViewportHeight != 1080 {
		t.Errorf("viewport = %dx%d, want 1920x1080", cfg.Screenshot.ViewportWidth, cfg.Screenshot.ViewportHeight)
	}
	if cfg.Screenshot.WaitUntil != "domcontentloaded" {
		t.Errorf("WaitUntil = %q", cfg.Screenshot.WaitUntil)
	}
	if cfg.Screenshot.NavigationTimeout != 45*time.Second {
		t.Errorf("NavigationTimeout = %v", cfg.Screenshot.NavigationTimeout)
	}
	if cfg.Screenshot.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Screenshot.MaxRetries)
	}
	if cfg.VLM.DefaultDataType != "product" {
		t.Errorf("DefaultDataType = %q", cfg.VLM.DefaultDataType)
	}
	for _, dt := range []string{"product", "article"} {
		if _, ok := cfg.VLM.PromptTemplates[dt]; !ok {
			t.Errorf("missing built-in prompt %q", dt)
		}
	}
	if cfg.Storage.OutputDir != "./screenshots" {
		t.Errorf("OutputDir = %q", cfg.Storage.OutputDir)
	}
	if cfg.Storage.CleanupScreenshots {
		t.Error("CleanupScreenshots should default to false")
	}
	if cfg.Storage.KeepDays != 7 {
		t.Errorf("KeepDays = %d, want 7", cfg.Storage.KeepDays)
	}
	if cfg.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.MaxConcurrent)
	}
	if cfg.VLM.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.VLM.Model)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SNAPSCRAPE_HEADLESS", "false")
	t.Setenv("SNAPSCRAPE_ENGINES", "chromium-stealth, remote")
	t.Setenv("SNAPSCRAPE_VIEWPORT_WIDTH", "1280")
	t.Setenv("SNAPSCRAPE_MAX_CONCURRENT", "7")
	t.Setenv("SNAPSCRAPE_EXTRA_HEADERS", "Accept-Language: de-DE, de;q=0.9|X-Test: 1")
	t.Setenv("SNAPSCRAPE_VLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()

	if cfg.Screenshot.Headless {
		t.Error("Headless should be false")
	}
	if !slices.Equal(cfg.Screenshot.Engines, []string{"chromium-stealth", "remote"}) {
		t.Errorf("Engines = %v", cfg.Screenshot.Engines)
	}
	if cfg.Screenshot.ViewportWidth != 1280 {
		t.Errorf("ViewportWidth = %d", cfg.Screenshot.ViewportWidth)
	}
	if cfg.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d", cfg.MaxConcurrent)
	}
	if got := cfg.Screenshot.Headers["Accept-Language"]; got != "de-DE, de;q=0.9" {
		t.Errorf("Accept-Language = %q", got)
	}
	if got := cfg.Screenshot.Headers["X-Test"]; got != "1" {
		t.Errorf("X-Test = %q", got)
	}
	if cfg.VLM.Model != "gpt-4o-mini" || cfg.VLM.APIKey != "sk-test" {
		t.Errorf("VLM = %+v", cfg.VLM)
	}
}

func TestLoad_BrowserArgsKeepCommas(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SNAPSCRAPE_BROWSER_ARGS", "--window-size=1920,1080| --no-sandbox |")

	cfg := Load()

	want := []string{"--window-size=1920,1080", "--no-sandbox"}
	if !slices.Equal(cfg.Screenshot.BrowserArgs, want) {
		t.Errorf("BrowserArgs = %q, want %q", cfg.Screenshot.BrowserArgs, want)
	}
}

func TestLoadPromptDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "recipe.prompt"), "  Extract the recipe.\n")
	writeFile(t, filepath.Join(dir, "product.prompt"), "custom product prompt")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "empty.prompt"), "   ")

	templates := DefaultPromptTemplates()
	if err := LoadPromptDir(dir, templates); err != nil {
		t.Fatalf("LoadPromptDir() error: %v", err)
	}

	if templates["recipe"] != "Extract the recipe." {
		t.Errorf("recipe = %q", templates["recipe"])
	}
	if templates["product"] != "custom product prompt" {
		t.Errorf("product = %q", templates["product"])
	}
	if _, ok := templates["notes"]; ok {
		t.Error("non-.prompt file should be ignored")
	}
	if _, ok := templates["empty"]; ok {
		t.Error("empty prompt file should be ignored")
	}
	if _, ok := templates["article"]; !ok {
		t.Error("built-in article prompt should survive")
	}
}

func TestLoadPromptDir_Missing(t *testing.T) {
	templates := map[string]string{}
	if err := LoadPromptDir(filepath.Join(t.TempDir(), "nope"), templates); err != nil {
		t.Errorf("missing dir should not error, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
