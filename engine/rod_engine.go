package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// maskScript hides the most common automation markers. The stealth engine
// injects the full go-rod/stealth bundle instead. Both run as-is on every new
// document, so they must invoke themselves.
const maskScript = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => false });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	window.chrome = window.chrome || { runtime: {} };
})();`

// statusScript reads the main document status without CDP event listeners.
const statusScript = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch (e) {}
	return 0;
}`

const scrollScript = `(fraction) => {
	const el = document.scrollingElement || document.documentElement || document.body;
	window.scrollTo(0, el.scrollHeight * fraction);
}`

// RodRenderer is a Chromium renderer driven over the DevTools protocol.
type RodRenderer struct {
	name       string
	stealth    bool
	controlURL string
}

// NewChromium returns a renderer that launches a local Chromium per session.
func NewChromium() *RodRenderer {
	return &RodRenderer{name: "chromium"}
}

// NewStealthChromium is NewChromium with the go-rod/stealth evasions.
func NewStealthChromium() *RodRenderer {
	return &RodRenderer{name: "chromium-stealth", stealth: true}
}

// NewRemote returns a renderer that attaches to an already running browser
// at controlURL. Each session lives in its own incognito context, so closing
// it never kills the remote browser.
func NewRemote(controlURL string) *RodRenderer {
	return &RodRenderer{name: "remote", stealth: true, controlURL: controlURL}
}

func (r *RodRenderer) Name() string { return r.name }

// Launch starts a browser, or attaches to the remote one.
func (r *RodRenderer) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if r.controlURL != "" {
		return r.attach(ctx)
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	for _, arg := range opts.Args {
		name, value, ok := splitArg(arg)
		if !ok {
			continue
		}
		if value == "" {
			l.Set(flags.Flag(name))
		} else {
			l.Set(flags.Flag(name), value)
		}
	}
	l.Delete(flags.Flag("enable-automation"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%s: launch browser: %w", r.name, err)
	}

	kill := func() error {
		l.Kill()
		l.Cleanup()
		return nil
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = kill()
		return nil, fmt.Errorf("%s: connect to browser: %w", r.name, err)
	}
	slog.Debug("browser launched", "engine", r.name, "controlURL", controlURL)

	return &rodSession{browser: browser, stealth: r.stealth, teardown: kill}, nil
}

// attach opens a dedicated DevTools connection to the remote browser and an
// incognito context on it. The session owns both: Close disposes the context
// and then drops the connection. Closing the root browser itself would shut
// the remote browser down.
func (r *RodRenderer) attach(ctx context.Context) (Session, error) {
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, r.controlURL, nil); err != nil {
		return nil, fmt.Errorf("%s: connect to %s: %w", r.name, r.controlURL, err)
	}

	root := rod.New().ControlURL("").Client(cdp.New().Start(ws)).Context(ctx)
	if err := root.Connect(); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("%s: attach to %s: %w", r.name, r.controlURL, err)
	}
	incognito, err := root.Incognito()
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("%s: create browser context: %w", r.name, err)
	}
	return &rodSession{browser: incognito, stealth: r.stealth, teardown: ws.Close}, nil
}

// splitArg turns "--name=value" into ("name", "value"). Blank args are
// rejected.
func splitArg(arg string) (name, value string, ok bool) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", "", false
	}
	name, value, _ = strings.Cut(arg, "=")
	if name == "" {
		return "", "", false
	}
	return name, value, true
}

// browserHandle is the part of *rod.Browser a session uses.
type browserHandle interface {
	Page(opts proto.TargetCreateTarget) (*rod.Page, error)
	Close() error
}

type rodSession struct {
	browser browserHandle
	stealth bool

	// teardown runs after the browser is closed: it kills a launched
	// browser or drops the connection to a remote one.
	teardown func() error
}

// initScript is the script installed on every new document.
func initScript(stealthMode bool) string {
	if stealthMode {
		return stealth.JS
	}
	return maskScript
}

// NewPage opens a tab and applies masking, emulation and headers. Masking
// must be installed before the first navigation to take effect.
func (s *rodSession) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	p := page.Context(ctx)

	// ── 1. Automation masking ────────────────────────────────────────
	if _, err := p.EvalOnNewDocument(initScript(s.stealth)); err != nil {
		return nil, fmt.Errorf("inject masking script: %w", err)
	}

	// ── 2. Viewport and device scale ─────────────────────────────────
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: opts.DeviceScaleFactor,
	}).Call(p); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	// ── 3. Identity: user agent, locale, timezone ────────────────────
	if opts.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.Locale,
		}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	if opts.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: opts.Locale}).Call(p); err != nil {
			slog.Warn("locale override failed", "locale", opts.Locale, "error", err)
		}
	}
	if opts.TimezoneID != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: opts.TimezoneID}).Call(p); err != nil {
			return nil, fmt.Errorf("set timezone %q: %w", opts.TimezoneID, err)
		}
	}

	// ── 4. Extra request headers ─────────────────────────────────────
	if len(opts.Headers) > 0 {
		if err := (proto.NetworkEnable{}).Call(p); err != nil {
			return nil, fmt.Errorf("enable network domain: %w", err)
		}
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(opts.Headers)}).Call(p); err != nil {
			return nil, fmt.Errorf("set extra headers: %w", err)
		}
	}

	return &rodPage{page: page}, nil
}

// Close shuts the browser down, or disposes the incognito context of a
// remote session. Teardown runs even when that fails.
func (s *rodSession) Close() error {
	err := s.browser.Close()
	if s.teardown != nil {
		err = errors.Join(err, s.teardown())
	}
	return err
}

type rodPage struct {
	page *rod.Page
}

// Navigate sets up the lifecycle waiter before navigating so the event is
// not missed, then reads the document status.
func (p *rodPage) Navigate(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	pg := p.page.Context(ctx)

	waitFn := pg.WaitNavigation(lifecycleEvent(wait))
	if err := pg.Navigate(url); err != nil {
		return Response{}, err
	}
	waitFn()
	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("wait for %s: %w", wait, err)
	}

	res, err := pg.Eval(statusScript)
	if err != nil {
		return Response{}, nil
	}
	return Response{Status: res.Value.Int()}, nil
}

func (p *rodPage) ScrollTo(ctx context.Context, fraction float64) error {
	_, err := p.page.Context(ctx).Eval(scrollScript, fraction)
	return err
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func lifecycleEvent(w WaitCondition) proto.PageLifecycleEventName {
	switch w {
	case WaitLoad:
		return proto.PageLifecycleEventNameLoad
	case WaitNetworkIdle:
		return proto.PageLifecycleEventNameNetworkIdle
	default:
		return proto.PageLifecycleEventNameDOMContentLoaded
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
