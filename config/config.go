package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Screenshot ScreenshotConfig
	VLM        VLMConfig
	Storage    StorageConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Webhook    WebhookConfig
	Log        LogConfig

	// MaxConcurrent sizes the single permit pool shared by screenshot capture
	// and model queries across all in-flight URLs.
	MaxConcurrent int // default: 3
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// ScreenshotConfig controls how pages are rendered and captured.
type ScreenshotConfig struct {
	Headless bool // default: true

	// Engines is the ordered fallback list tried on every retry.
	// Known engines: "chromium", "chromium-stealth", "remote".
	Engines []string // default: ["chromium", "chromium-stealth"]

	ViewportWidth     int     // default: 1920
	ViewportHeight    int     // default: 1080
	DeviceScaleFactor float64 // default: 2.0

	// NavigationTimeout bounds a single navigation attempt.
	NavigationTimeout time.Duration // default: 45s

	// WaitUntil is one of "load", "domcontentloaded", "networkidle".
	WaitUntil string // default: "domcontentloaded"

	Locale     string // default: "en-US"
	TimezoneID string // default: "UTC"
	FullPage   bool   // default: true

	// PostLoadDelay is the settle delay after navigation.
	PostLoadDelay time.Duration // default: 3s

	// ScrollFraction is how far down the page to scroll before scrolling back.
	ScrollFraction float64 // default: 0.6

	// ScrollPause and ScrollBackPause are the waits after each scroll.
	ScrollPause     time.Duration // default: 1s
	ScrollBackPause time.Duration // default: 500ms

	// BrowserArgs are extra "--flag[=value]" launch arguments.
	BrowserArgs []string

	MaxRetries int    // default: 2
	UserAgent  string // default: desktop Chrome 122
	Headers    map[string]string

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// RemoteCDPURL enables the "remote" engine against an existing browser.
	RemoteCDPURL string
}

// VLMConfig controls the vision model and the prompt templates.
type VLMConfig struct {
	// Provider is "gemini" or "openai".
	Provider string // default: "gemini"
	Model    string // default: "gemini-2.0-flash"
	APIKey   string
	BaseURL  string
	Timeout  time.Duration // default: 120s

	// PromptTemplates maps data type names to prompts.
	PromptTemplates map[string]string

	// DefaultDataType is used when no data type is given or it is unknown.
	DefaultDataType string // default: "product"

	// PromptsDir holds "<data type>.prompt" files that override the built-ins.
	PromptsDir string // default: "./prompts"
}

// StorageConfig controls where artifacts are written and how long they live.
type StorageConfig struct {
	OutputDir string // default: "./screenshots"

	// CleanupScreenshots deletes each screenshot after processing and enables
	// the retention purge.
	CleanupScreenshots bool // default: false

	KeepDays       int    // default: 7
	FilePrefix     string // default: "screenshot_"
	DataFilePrefix string // default: "data_"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// WebhookConfig signs batch completion events.
type WebhookConfig struct {
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// DefaultHeaders are sent with every navigation unless overridden.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":             "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":    "en-US,en;q=0.9",
		"Accept-Encoding":    "gzip, deflate, br",
		"sec-ch-ua":          `"Chromium";v="122", "Google Chrome";v="122", "Not;A=Brand";v="99"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"macOS"`,
	}
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	provider := envOr("SNAPSCRAPE_VLM_PROVIDER", "gemini")

	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("SNAPSCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("SNAPSCRAPE_PORT", 8080),
			Mode: envOr("SNAPSCRAPE_MODE", "release"),
		},
		Screenshot: ScreenshotConfig{
			Headless:          envBoolOr("SNAPSCRAPE_HEADLESS", true),
			Engines:           envSliceOr("SNAPSCRAPE_ENGINES", []string{"chromium", "chromium-stealth"}),
			ViewportWidth:     envIntOr("SNAPSCRAPE_VIEWPORT_WIDTH", 1920),
			ViewportHeight:    envIntOr("SNAPSCRAPE_VIEWPORT_HEIGHT", 1080),
			DeviceScaleFactor: envFloatOr("SNAPSCRAPE_DEVICE_SCALE", 2.0),
			NavigationTimeout: envDurationOr("SNAPSCRAPE_NAV_TIMEOUT", 45*time.Second),
			WaitUntil:         envOr("SNAPSCRAPE_WAIT_UNTIL", "domcontentloaded"),
			Locale:            envOr("SNAPSCRAPE_LOCALE", "en-US"),
			TimezoneID:        envOr("SNAPSCRAPE_TIMEZONE", "UTC"),
			FullPage:          envBoolOr("SNAPSCRAPE_FULL_PAGE", true),
			PostLoadDelay:     envDurationOr("SNAPSCRAPE_POST_LOAD_DELAY", 3*time.Second),
			ScrollFraction:    envFloatOr("SNAPSCRAPE_SCROLL_FRACTION", 0.6),
			ScrollPause:       envDurationOr("SNAPSCRAPE_SCROLL_PAUSE", time.Second),
			ScrollBackPause:   envDurationOr("SNAPSCRAPE_SCROLL_BACK_PAUSE", 500*time.Millisecond),
			BrowserArgs: envSplitOr("SNAPSCRAPE_BROWSER_ARGS", "|", []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-http2",
				"--no-sandbox",
			}),
			MaxRetries:   envIntOr("SNAPSCRAPE_MAX_RETRIES", 2),
			UserAgent:    envOr("SNAPSCRAPE_USER_AGENT", defaultUserAgent),
			Headers:      envMapOr("SNAPSCRAPE_EXTRA_HEADERS", DefaultHeaders()),
			BrowserBin:   os.Getenv("SNAPSCRAPE_BROWSER_BIN"),
			RemoteCDPURL: os.Getenv("SNAPSCRAPE_REMOTE_CDP_URL"),
		},
		VLM: VLMConfig{
			Provider:        provider,
			Model:           envOr("SNAPSCRAPE_VLM_MODEL", defaultModel(provider)),
			APIKey:          apiKeyFor(provider),
			BaseURL:         envOr("SNAPSCRAPE_VLM_BASE_URL", defaultBaseURL(provider)),
			Timeout:         envDurationOr("SNAPSCRAPE_VLM_TIMEOUT", 120*time.Second),
			PromptTemplates: DefaultPromptTemplates(),
			DefaultDataType: envOr("SNAPSCRAPE_DEFAULT_DATA_TYPE", "product"),
			PromptsDir:      envOr("SNAPSCRAPE_PROMPTS_DIR", "./prompts"),
		},
		Storage: StorageConfig{
			OutputDir:          envOr("SNAPSCRAPE_OUTPUT_DIR", "./screenshots"),
			CleanupScreenshots: envBoolOr("SNAPSCRAPE_CLEANUP_SCREENSHOTS", false),
			KeepDays:           envIntOr("SNAPSCRAPE_KEEP_DAYS", 7),
			FilePrefix:         envOr("SNAPSCRAPE_FILE_PREFIX", "screenshot_"),
			DataFilePrefix:     envOr("SNAPSCRAPE_DATA_FILE_PREFIX", "data_"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SNAPSCRAPE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SNAPSCRAPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SNAPSCRAPE_RATE_RPS", 2.0),
			Burst:             envIntOr("SNAPSCRAPE_RATE_BURST", 5),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("SNAPSCRAPE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("SNAPSCRAPE_LOG_LEVEL", "info"),
			Format: envOr("SNAPSCRAPE_LOG_FORMAT", "json"),
		},
		MaxConcurrent: envIntOr("SNAPSCRAPE_MAX_CONCURRENT", 3),
	}

	if err := LoadPromptDir(cfg.VLM.PromptsDir, cfg.VLM.PromptTemplates); err != nil {
		slog.Warn("failed to load prompt templates", "dir", cfg.VLM.PromptsDir, "error", err)
	}
	return cfg
}

func defaultModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o-mini"
	}
	return "gemini-2.0-flash"
}

func defaultBaseURL(provider string) string {
	if provider == "openai" {
		return "https://api.openai.com/v1"
	}
	return "https://generativelanguage.googleapis.com/v1beta"
}

func apiKeyFor(provider string) string {
	if v := os.Getenv("SNAPSCRAPE_VLM_API_KEY"); v != "" {
		return v
	}
	if provider == "openai" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("GEMINI_API_KEY")
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	return envSplitOr(key, ",", fallback)
}

// envSplitOr is envSliceOr with a custom separator. Browser switches take
// comma-separated values (--window-size=1920,1080), so they use "|".
func envSplitOr(key, sep string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, sep)
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

// envMapOr parses "Key: value|Other: value" pairs. Header values commonly
// contain commas and semicolons, so entries are separated by "|".
func envMapOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(v, "|") {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			result[name] = strings.TrimSpace(value)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
