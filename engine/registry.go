package engine

import (
	"slices"

	"github.com/samber/lo"
	"github.com/use-agent/snapscrape/config"
)

// Registry resolves engine names to Renderers.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry registers renderers under their Name. Later entries win.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer, len(renderers))}
	for _, rd := range renderers {
		r.renderers[rd.Name()] = rd
	}
	return r
}

// NewRegistryFromConfig registers the local Chromium engines, plus "remote"
// when a CDP URL is configured.
func NewRegistryFromConfig(cfg config.ScreenshotConfig) *Registry {
	renderers := []Renderer{NewChromium(), NewStealthChromium()}
	if cfg.RemoteCDPURL != "" {
		renderers = append(renderers, NewRemote(cfg.RemoteCDPURL))
	}
	return NewRegistry(renderers...)
}

// Lookup returns the renderer registered under name.
func (r *Registry) Lookup(name string) (Renderer, bool) {
	rd, ok := r.renderers[name]
	return rd, ok
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	names := lo.Keys(r.renderers)
	slices.Sort(names)
	return names
}
