package engine

import (
	"slices"
	"testing"

	"github.com/use-agent/snapscrape/config"
)

func TestParseWaitCondition(t *testing.T) {
	tests := []struct {
		in   string
		want WaitCondition
	}{
		{"load", WaitLoad},
		{"LOAD", WaitLoad},
		{"domcontentloaded", WaitDOMContentLoaded},
		{"networkidle", WaitNetworkIdle},
		{"networkidle0", WaitNetworkIdle},
		{"", WaitDOMContentLoaded},
		{"commit", WaitDOMContentLoaded},
	}
	for _, tt := range tests {
		if got := ParseWaitCondition(tt.in); got != tt.want {
			t.Errorf("ParseWaitCondition(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitArg(t *testing.T) {
	tests := []struct {
		arg       string
		wantName  string
		wantValue string
		wantOK    bool
	}{
		{"--disable-blink-features=AutomationControlled", "disable-blink-features", "AutomationControlled", true},
		{"--no-sandbox", "no-sandbox", "", true},
		{"  --disable-http2 ", "disable-http2", "", true},
		{"--lang=en-US,en", "lang", "en-US,en", true},
		{"", "", "", false},
		{"--", "", "", false},
		{"--=x", "", "", false},
	}
	for _, tt := range tests {
		name, value, ok := splitArg(tt.arg)
		if name != tt.wantName || value != tt.wantValue || ok != tt.wantOK {
			t.Errorf("splitArg(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.arg, name, value, ok, tt.wantName, tt.wantValue, tt.wantOK)
		}
	}
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Accept-Language": "en-US,en;q=0.9"})
	if got := m["Accept-Language"].Str(); got != "en-US,en;q=0.9" {
		t.Errorf("header value = %q", got)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("local engines only", func(t *testing.T) {
		r := NewRegistryFromConfig(config.ScreenshotConfig{})
		if got, want := r.Names(), []string{"chromium", "chromium-stealth"}; !slices.Equal(got, want) {
			t.Errorf("Names() = %v, want %v", got, want)
		}
		if _, ok := r.Lookup("remote"); ok {
			t.Error("remote engine registered without a CDP URL")
		}
	})

	t.Run("remote engine with CDP URL", func(t *testing.T) {
		r := NewRegistryFromConfig(config.ScreenshotConfig{RemoteCDPURL: "ws://127.0.0.1:9222"})
		rd, ok := r.Lookup("remote")
		if !ok {
			t.Fatal("remote engine not registered")
		}
		if rd.Name() != "remote" {
			t.Errorf("Name() = %q", rd.Name())
		}
	})
}

func TestRegistry_LaterEntriesWin(t *testing.T) {
	a := &RodRenderer{name: "x"}
	b := &RodRenderer{name: "x", stealth: true}
	r := NewRegistry(a, b)
	got, _ := r.Lookup("x")
	if got != b {
		t.Error("Lookup returned the first registration")
	}
}
