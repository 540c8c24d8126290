package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/models"
)

// Lifecycle writes artifacts and applies the retention policy.
// It is safe for concurrent use as long as callers write distinct paths.
type Lifecycle struct {
	cfg config.StorageConfig
	now func() time.Time
}

// NewLifecycle ensures the output directory exists.
func NewLifecycle(cfg config.StorageConfig) (*Lifecycle, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to create output directory", err)
	}
	return &Lifecycle{cfg: cfg, now: time.Now}, nil
}

// Paths returns the artifact paths for url under the configured directory.
func (l *Lifecycle) Paths(url string) (imagePath, dataPath string) {
	return Paths(url, l.cfg.OutputDir, l.cfg.FilePrefix, l.cfg.DataFilePrefix)
}

// PersistImage writes the screenshot, replacing any previous one.
func (l *Lifecycle) PersistImage(path string, image []byte) error {
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeStorage, "failed to write screenshot", err)
	}
	slog.Info("screenshot saved", "path", path, "bytes", len(image))
	return nil
}

// PersistData writes result as indented JSON, replacing any previous file.
func (l *Lifecycle) PersistData(path string, result models.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return models.NewScrapeError(models.ErrCodeStorage, "failed to encode result", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeStorage, "failed to write data file", err)
	}
	slog.Info("data saved", "path", path)
	return nil
}

// MaybeDeleteImage removes the screenshot when cleanup is enabled.
// Failures are logged, never returned.
func (l *Lifecycle) MaybeDeleteImage(path string) {
	if !l.cfg.CleanupScreenshots {
		return
	}
	if err := os.Remove(path); err != nil {
		slog.Error("failed to clean up screenshot", "path", path, "error", err)
		return
	}
	slog.Info("cleaned up screenshot", "path", path)
}

// PurgeExpired deletes prefixed artifacts older than KeepDays. It is a no-op
// unless cleanup is enabled. A failed scan abandons the purge.
func (l *Lifecycle) PurgeExpired() {
	if !l.cfg.CleanupScreenshots {
		return
	}

	entries, err := os.ReadDir(l.cfg.OutputDir)
	if err != nil {
		slog.Error("failed to scan output directory, skipping purge", "dir", l.cfg.OutputDir, "error", err)
		return
	}

	maxAge := time.Duration(l.cfg.KeepDays) * 24 * time.Hour
	now := l.now()

	candidates := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return strings.HasPrefix(e.Name(), l.cfg.FilePrefix) || strings.HasPrefix(e.Name(), l.cfg.DataFilePrefix)
	})

	removed := 0
	for _, e := range candidates {
		path := filepath.Join(l.cfg.OutputDir, e.Name())
		info, err := e.Info()
		if err != nil {
			slog.Error("failed to stat artifact, skipping purge", "path", path, "error", err)
			return
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		slog.Info("removing old file", "path", path)
		if err := os.Remove(path); err != nil {
			slog.Error("failed to remove old file, skipping purge", "path", path, "error", err)
			return
		}
		removed++
	}
	slog.Debug("purge finished", "dir", l.cfg.OutputDir, "removed", removed)
}
