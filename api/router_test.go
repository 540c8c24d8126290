package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/engine"
	"github.com/use-agent/snapscrape/llm"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/scraper"
	"github.com/use-agent/snapscrape/storage"
	"github.com/use-agent/snapscrape/webhook"
)

const testKey = "test-key"

// stubRenderer fails every URL containing "fail" with a 500.
type stubRenderer struct{}

func (stubRenderer) Name() string { return "stub" }

func (stubRenderer) Launch(context.Context, engine.LaunchOptions) (engine.Session, error) {
	return stubSession{}, nil
}

type stubSession struct{}

func (stubSession) NewPage(context.Context, engine.PageOptions) (engine.Page, error) {
	return &stubPage{}, nil
}

func (stubSession) Close() error { return nil }

type stubPage struct{ url string }

func (p *stubPage) Navigate(_ context.Context, url string, _ engine.WaitCondition, _ time.Duration) (engine.Response, error) {
	p.url = url
	if strings.Contains(url, "fail") {
		return engine.Response{Status: 500}, nil
	}
	return engine.Response{Status: 200}, nil
}

func (p *stubPage) ScrollTo(context.Context, float64) error { return nil }

func (p *stubPage) Screenshot(context.Context, bool) ([]byte, error) { return []byte(p.url), nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:     config.ServerConfig{Mode: gin.TestMode},
		Screenshot: config.ScreenshotConfig{Engines: []string{"stub"}},
		VLM: config.VLMConfig{
			PromptTemplates: map[string]string{"product": "p", "article": "a"},
			DefaultDataType: "product",
		},
		Storage: config.StorageConfig{
			OutputDir:      filepath.Join(t.TempDir(), "out"),
			KeepDays:       7,
			FilePrefix:     "screenshot_",
			DataFilePrefix: "data_",
		},
		Auth:          config.AuthConfig{Enabled: true, APIKeys: []string{testKey}},
		RateLimit:     config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		MaxConcurrent: 2,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	ex := llm.ExtractorFunc(func(_ context.Context, image []byte, _, _ string) (string, error) {
		return `{"page": "` + string(image) + `"}`, nil
	})
	sc, err := scraper.NewScraper(cfg, engine.NewRegistry(stubRenderer{}), ex)
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(sc, webhook.NewNotifier("hook-secret"), cfg)
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("X-API-Key", testKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
	return v
}

func TestHealth_NoAuth(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	w := do(t, h, http.MethodGet, "/api/v1/health", "", false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[models.HealthResponse](t, w)
	if resp.Status != "healthy" || resp.PoolStats.MaxConcurrent != 2 {
		t.Errorf("health = %+v", resp)
	}
}

func TestAuth(t *testing.T) {
	h := newTestRouter(t, testConfig(t))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", testKey, http.StatusOK},
		{"bearer", "Authorization", "Bearer " + testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/prompts", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestProcess(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	w := do(t, h, http.MethodPost, "/api/v1/process", `{"url":"https://example.com/a","data_type":"article"}`, true)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.ProcessResponse](t, w)
	if !resp.Success || resp.Data["page"] != "https://example.com/a" {
		t.Errorf("response = %+v", resp)
	}
	md, ok := resp.Data[models.MetadataKey].(map[string]any)
	if !ok || md["data_type"] != "article" {
		t.Errorf("metadata = %v", resp.Data[models.MetadataKey])
	}
}

func TestProcess_ClientGoneStillCompletes(t *testing.T) {
	cfg := testConfig(t)
	h := newTestRouter(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process",
		bytes.NewBufferString(`{"url":"https://example.com/gone"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := decode[models.ProcessResponse](t, w)
	if !resp.Success || resp.Data["page"] != "https://example.com/gone" {
		t.Fatalf("response = %+v", resp)
	}

	_, dataPath := storage.Paths("https://example.com/gone", cfg.Storage.OutputDir,
		cfg.Storage.FilePrefix, cfg.Storage.DataFilePrefix)
	raw, err := os.ReadFile(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	var persisted map[string]any
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatal(err)
	}
	if _, failed := persisted["error"]; failed {
		t.Errorf("persisted error record: %v", persisted)
	}
}

func TestProcess_CaptureFailureIsErrorRecord(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	w := do(t, h, http.MethodPost, "/api/v1/process", `{"url":"https://example.com/fail"}`, true)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[models.ProcessResponse](t, w)
	if resp.Success || resp.Data.Err() != models.ErrCaptureFailed {
		t.Errorf("response = %+v", resp)
	}
}

func TestProcess_InvalidInput(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	for _, body := range []string{`{}`, `{"url":"not a url"}`, `not json`} {
		w := do(t, h, http.MethodPost, "/api/v1/process", body, true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestPrompts(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	w := do(t, h, http.MethodGet, "/api/v1/prompts", "", true)

	resp := decode[models.PromptsResponse](t, w)
	if resp.Default != "product" || len(resp.DataTypes) != 2 || resp.DataTypes[0] != "article" {
		t.Errorf("prompts = %+v", resp)
	}
}

func TestBatch_WithWebhook(t *testing.T) {
	events := make(chan webhook.Event, 1)
	var sig string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig = r.Header.Get(webhook.SignatureHeader)
		if sig != "sha256="+webhook.Sign("hook-secret", body) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var ev webhook.Event
		_ = json.Unmarshal(body, &ev)
		events <- ev
	}))
	defer hook.Close()

	h := newTestRouter(t, testConfig(t))
	body := `{"urls":["https://example.com/1","https://example.com/fail","https://example.com/1"],"webhook_url":"` + hook.URL + `"}`
	w := do(t, h, http.MethodPost, "/api/v1/batch", body, true)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	accepted := decode[models.BatchResponse](t, w)
	if accepted.Total != 2 || !strings.HasPrefix(accepted.ID, "batch-") {
		t.Fatalf("accepted = %+v", accepted)
	}

	var ev webhook.Event
	select {
	case ev = <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}
	if ev.Type != webhook.EventBatchCompleted || ev.JobID != accepted.ID {
		t.Errorf("event = %+v", ev)
	}

	w = do(t, h, http.MethodGet, "/api/v1/batch/"+accepted.ID, "", true)
	status := decode[models.BatchStatusResponse](t, w)
	if status.Status != "partial" || status.Failed != 1 || len(status.Results) != 2 {
		t.Errorf("batch status = %+v", status)
	}
	if status.Results["https://example.com/fail"].Err() != models.ErrCaptureFailed {
		t.Errorf("failed url result = %v", status.Results["https://example.com/fail"])
	}
}

func TestBatch_NotFound(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	w := do(t, h, http.MethodGet, "/api/v1/batch/batch-missing", "", true)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBatch_InvalidInput(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	w := do(t, h, http.MethodPost, "/api/v1/batch", `{"urls":[]}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1}
	h := newTestRouter(t, cfg)

	if w := do(t, h, http.MethodGet, "/api/v1/prompts", "", true); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w := do(t, h, http.MethodGet, "/api/v1/prompts", "", true)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}
