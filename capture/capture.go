// Package capture renders a URL and takes its screenshot, retrying over an
// ordered list of engines.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/engine"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/permit"
)

// Profile is the immutable set of render settings applied to every attempt.
type Profile struct {
	Engines    []string
	MaxRetries int

	Launch engine.LaunchOptions
	Page   engine.PageOptions

	WaitUntil         engine.WaitCondition
	NavigationTimeout time.Duration

	PostLoadDelay   time.Duration
	ScrollFraction  float64
	ScrollPause     time.Duration
	ScrollBackPause time.Duration
	FullPage        bool
}

// ProfileFromConfig builds a Profile from the screenshot settings.
func ProfileFromConfig(cfg config.ScreenshotConfig) Profile {
	return Profile{
		Engines:    append([]string(nil), cfg.Engines...),
		MaxRetries: max(cfg.MaxRetries, 0),
		Launch: engine.LaunchOptions{
			Headless: cfg.Headless,
			Bin:      cfg.BrowserBin,
			Args:     append([]string(nil), cfg.BrowserArgs...),
		},
		Page: engine.PageOptions{
			ViewportWidth:     cfg.ViewportWidth,
			ViewportHeight:    cfg.ViewportHeight,
			DeviceScaleFactor: cfg.DeviceScaleFactor,
			Locale:            cfg.Locale,
			TimezoneID:        cfg.TimezoneID,
			UserAgent:         cfg.UserAgent,
			Headers:           lo.Assign(cfg.Headers),
		},
		WaitUntil:         engine.ParseWaitCondition(cfg.WaitUntil),
		NavigationTimeout: cfg.NavigationTimeout,
		PostLoadDelay:     cfg.PostLoadDelay,
		ScrollFraction:    cfg.ScrollFraction,
		ScrollPause:       cfg.ScrollPause,
		ScrollBackPause:   cfg.ScrollBackPause,
		FullPage:          cfg.FullPage,
	}
}

// Attempts is the number of attempts made before giving up.
func (p Profile) Attempts() int {
	return (p.MaxRetries + 1) * len(p.Engines)
}

// Controller runs the retry-over-fallback capture loop.
type Controller struct {
	registry *engine.Registry
	pool     *permit.Pool
	profile  Profile
}

// NewController creates a Controller. pool is shared with extraction.
func NewController(registry *engine.Registry, pool *permit.Pool, profile Profile) *Controller {
	return &Controller{registry: registry, pool: pool, profile: profile}
}

// Capture returns the screenshot of url, or None once every engine has
// failed on every retry.
//
// A single permit is held for the whole sequence of attempts. Engines are
// tried in declared order on each retry round, with no backoff between
// attempts.
func (c *Controller) Capture(ctx context.Context, url string) mo.Option[[]byte] {
	release, err := c.pool.Acquire(ctx)
	if err != nil {
		slog.Error("capture aborted waiting for permit", "url", url, "error", err)
		return mo.None[[]byte]()
	}
	defer release()

	for retry := 0; retry <= c.profile.MaxRetries; retry++ {
		for _, name := range c.profile.Engines {
			image, err := c.attempt(ctx, url, name).Get()
			if err == nil {
				slog.Info("screenshot captured", "url", url, "engine", name, "retry", retry, "bytes", len(image))
				return mo.Some(image)
			}
			slog.Warn("capture attempt failed", "url", url, "engine", name, "retry", retry, "error", err)
		}
	}

	slog.Error("all capture attempts failed", "url", url, "attempts", c.profile.Attempts())
	return mo.None[[]byte]()
}

// attempt performs one launch-navigate-settle-screenshot cycle. The session
// is always closed, including when renderer code panics.
func (c *Controller) attempt(ctx context.Context, url, name string) (res mo.Result[[]byte]) {
	renderer, ok := c.registry.Lookup(name)
	if !ok {
		return mo.Err[[]byte](fmt.Errorf("unknown engine %q", name))
	}

	var session engine.Session
	defer func() {
		if r := recover(); r != nil {
			res = mo.Err[[]byte](models.NewScrapeError(models.ErrCodeBrowserCrash, fmt.Sprintf("renderer panic: %v", r), nil))
		}
		if session != nil {
			if err := session.Close(); err != nil {
				slog.Debug("failed to close browser session", "engine", name, "error", err)
			}
		}
	}()

	// ── 1. Launch a fresh session ────────────────────────────────────
	session, err := renderer.Launch(ctx, c.profile.Launch)
	if err != nil {
		return mo.Err[[]byte](err)
	}

	// ── 2. Open a configured page ────────────────────────────────────
	page, err := session.NewPage(ctx, c.profile.Page)
	if err != nil {
		return mo.Err[[]byte](err)
	}

	// ── 3. Navigate and check the response ──────────────────────────
	resp, err := page.Navigate(ctx, url, c.profile.WaitUntil, c.profile.NavigationTimeout)
	if err != nil {
		return mo.Err[[]byte](models.NewScrapeError(models.ErrCodeNavigation, "navigate failed", err))
	}
	if err := checkStatus(resp.Status); err != nil {
		return mo.Err[[]byte](err)
	}

	// ── 4. Settle, then scroll down and back to trigger lazy content ─
	if err := sleep(ctx, c.profile.PostLoadDelay); err != nil {
		return mo.Err[[]byte](err)
	}
	if err := page.ScrollTo(ctx, c.profile.ScrollFraction); err != nil {
		return mo.Err[[]byte](fmt.Errorf("scroll: %w", err))
	}
	if err := sleep(ctx, c.profile.ScrollPause); err != nil {
		return mo.Err[[]byte](err)
	}
	if err := page.ScrollTo(ctx, 0); err != nil {
		return mo.Err[[]byte](fmt.Errorf("scroll back: %w", err))
	}
	if err := sleep(ctx, c.profile.ScrollBackPause); err != nil {
		return mo.Err[[]byte](err)
	}

	// ── 5. Screenshot ────────────────────────────────────────────────
	image, err := page.Screenshot(ctx, c.profile.FullPage)
	if err != nil {
		return mo.Err[[]byte](fmt.Errorf("screenshot: %w", err))
	}
	return mo.Ok(image)
}

func checkStatus(status int) error {
	switch {
	case status == 0:
		return models.NewScrapeError(models.ErrCodeBadStatus, "no response received", nil)
	case status < 200 || status >= 400:
		return models.NewScrapeError(models.ErrCodeBadStatus, fmt.Sprintf("HTTP error status %d", status), nil)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
