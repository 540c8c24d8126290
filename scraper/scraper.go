package scraper

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/use-agent/snapscrape/capture"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/engine"
	"github.com/use-agent/snapscrape/extract"
	"github.com/use-agent/snapscrape/llm"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/permit"
	"github.com/use-agent/snapscrape/storage"
)

// Scraper runs the capture-extract pipeline for one URL or a batch of URLs.
// It is safe for concurrent use.
type Scraper struct {
	pool      *permit.Pool
	capturer  *capture.Controller
	extractor *extract.Controller
	storage   *storage.Lifecycle

	prompts         map[string]string
	defaultDataType string
	startTime       time.Time
}

// NewScraper wires the pipeline. The extractor is built once by the caller
// and shared by every URL this Scraper processes.
func NewScraper(cfg *config.Config, registry *engine.Registry, extractor llm.Extractor) (*Scraper, error) {
	lc, err := storage.NewLifecycle(cfg.Storage)
	if err != nil {
		return nil, err
	}

	prompts := lo.Assign(cfg.VLM.PromptTemplates)
	defaultDataType := cfg.VLM.DefaultDataType
	if _, ok := prompts[defaultDataType]; !ok {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("no prompt template for default data type %q", defaultDataType),
			nil,
		)
	}

	// ── Shared permit pool: bounds capture and extraction together ───
	pool := permit.NewPool(cfg.MaxConcurrent)
	slog.Info("permit pool created", "maxConcurrent", pool.Size())

	return &Scraper{
		pool:            pool,
		capturer:        capture.NewController(registry, pool, capture.ProfileFromConfig(cfg.Screenshot)),
		extractor:       extract.NewController(extractor, pool, cfg.VLM.Model),
		storage:         lc,
		prompts:         prompts,
		defaultDataType: defaultDataType,
		startTime:       time.Now(),
	}, nil
}

// Stats returns a snapshot of the permit pool.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxConcurrent: s.pool.Size(),
		Active:        s.pool.Active(),
		Peak:          s.pool.Peak(),
	}
}

// Uptime returns how long the Scraper has existed.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// DataTypes returns the known data type names, sorted.
func (s *Scraper) DataTypes() []string {
	names := lo.Keys(s.prompts)
	slices.Sort(names)
	return names
}

// DefaultDataType returns the data type used when none is requested.
func (s *Scraper) DefaultDataType() string {
	return s.defaultDataType
}

// resolvePrompt defaults an empty dataType and returns its prompt. Unknown
// data types keep their name but use the default prompt.
func (s *Scraper) resolvePrompt(dataType string) (string, string) {
	if dataType == "" {
		dataType = s.defaultDataType
	}
	if prompt, ok := s.prompts[dataType]; ok {
		return dataType, prompt
	}
	slog.Warn("unknown data type, using default prompt", "dataType", dataType, "default", s.defaultDataType)
	return dataType, s.prompts[s.defaultDataType]
}
