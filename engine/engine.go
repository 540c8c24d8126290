package engine

import (
	"context"
	"strings"
	"time"
)

// Renderer launches browser sessions. Each engine name ("chromium",
// "chromium-stealth", "remote") maps to one Renderer.
type Renderer interface {
	// Name returns the engine identifier.
	Name() string

	// Launch starts (or attaches to) a browser. The caller owns the returned
	// Session and must Close it.
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session is one launched browser.
type Session interface {
	// NewPage opens a tab configured with opts and automation masking.
	NewPage(ctx context.Context, opts PageOptions) (Page, error)

	// Close releases the browser and every page it opened.
	Close() error
}

// Page is a single configured tab.
type Page interface {
	// Navigate loads url and waits for the wait condition, bounded by timeout.
	// A zero Response.Status means no main document response was observed.
	Navigate(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) (Response, error)

	// ScrollTo scrolls to fraction × the document height (0 = top).
	ScrollTo(ctx context.Context, fraction float64) error

	// Screenshot captures the page as PNG.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	Headless bool
	Bin      string

	// Args are "--name" or "--name=value" command-line switches.
	Args []string
}

// PageOptions configures a new page before navigation.
type PageOptions struct {
	ViewportWidth     int
	ViewportHeight    int
	DeviceScaleFactor float64
	Locale            string
	TimezoneID        string
	UserAgent         string
	Headers           map[string]string
}

// Response describes the main document response of a navigation.
type Response struct {
	Status int
}

// WaitCondition is the page lifecycle point a navigation waits for.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
)

// ParseWaitCondition maps a config value to a WaitCondition.
// Unknown values fall back to WaitDOMContentLoaded.
func ParseWaitCondition(s string) WaitCondition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "load":
		return WaitLoad
	case "networkidle", "networkidle0", "networkidle2":
		return WaitNetworkIdle
	default:
		return WaitDOMContentLoaded
	}
}
