package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/use-agent/snapscrape/models"
)

// Process runs the pipeline for one URL and returns the persisted Result.
//
// Lifecycle:
//
//  1. Resolve prompt     – empty data type uses the default
//  2. Artifact paths     – deterministic per URL
//  3. Capture            – retry over engines under one permit
//  4. Persist image      – only on capture success
//  5. Extract            – vision model under a permit
//  6. Metadata           – attached whatever the outcome
//  7. Persist data       – always, so every URL leaves a data artifact
//  8. Cleanup            – delete the image if configured
//
// Capture and extraction failures are reported inside the Result. Only a
// failed artifact write is returned as an error.
func (s *Scraper) Process(ctx context.Context, url, dataType string) (models.Result, error) {
	// ── 1. Resolve prompt ────────────────────────────────────────────
	dataType, prompt := s.resolvePrompt(dataType)

	// ── 2. Artifact paths ────────────────────────────────────────────
	imagePath, dataPath := s.storage.Paths(url)

	// ── 3. Capture ───────────────────────────────────────────────────
	image, ok := s.capturer.Capture(ctx, url).Get()
	if !ok {
		result := models.ErrorResult(models.ErrCaptureFailed).
			WithMetadata(models.NewMetadata(url, dataType))
		if err := s.storage.PersistData(dataPath, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	// ── 4. Persist image ─────────────────────────────────────────────
	if err := s.storage.PersistImage(imagePath, image); err != nil {
		return nil, err
	}

	// ── 5–6. Extract and attach metadata ─────────────────────────────
	result := s.extractor.Extract(ctx, imagePath, prompt).
		WithMetadata(models.NewMetadata(url, dataType))

	// ── 7. Persist data ──────────────────────────────────────────────
	if err := s.storage.PersistData(dataPath, result); err != nil {
		return nil, err
	}

	// ── 8. Cleanup ───────────────────────────────────────────────────
	s.storage.MaybeDeleteImage(imagePath)

	slog.Info("url processed", "url", url, "dataType", dataType, "error", result.Err())
	return result, nil
}

// ProcessBatch runs Process for every URL concurrently and returns the
// results keyed by URL. Duplicate URLs are processed once and share a slot.
//
// Expired artifacts are purged once before any URL starts. A failure or
// panic while processing one URL becomes an error record for that URL only.
func (s *Scraper) ProcessBatch(ctx context.Context, urls []string, dataType string) map[string]models.Result {
	s.storage.PurgeExpired()

	unique := lo.Uniq(urls)
	results := make(map[string]models.Result, len(unique))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, u := range unique {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			r := s.processIsolated(ctx, u, dataType)
			mu.Lock()
			results[u] = r
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	failed := lo.CountBy(lo.Values(results), func(r models.Result) bool { return r.IsError() })
	slog.Info("batch finished", "total", len(unique), "failed", failed)
	return results
}

func (s *Scraper) processIsolated(ctx context.Context, url, dataType string) (result models.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while processing url", "url", url, "panic", r)
			result = models.ErrorResult(fmt.Sprint(r))
		}
	}()

	result, err := s.Process(ctx, url, dataType)
	if err != nil {
		slog.Error("failed to process url", "url", url, "error", err)
		return models.ErrorResult(err.Error())
	}
	return result
}
