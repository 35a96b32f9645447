package orchestrator

import (
	"fmt"
	"sort"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// ManifestSelector selects among in-memory theme manifests. An empty name
// selects the first manifest by name; an empty variant selects none.
type ManifestSelector struct {
	mu        sync.RWMutex
	manifests map[string]*theme.Manifest
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector registers manifests by Name. Later duplicates win.
func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{manifests: make(map[string]*theme.Manifest, len(manifests))}
	for _, manifest := range manifests {
		s.Add(manifest)
	}
	return s
}

// Add registers manifest, ignoring nil and unnamed ones.
func (s *ManifestSelector) Add(manifest *theme.Manifest) {
	if manifest == nil || manifest.Name == "" {
		return
	}
	s.mu.Lock()
	s.manifests[manifest.Name] = manifest
	s.mu.Unlock()
}

// Select implements theme.ThemeSelector.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		names := make([]string, 0, len(s.manifests))
		for candidate := range s.manifests {
			names = append(names, candidate)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("theme: no manifests registered")
		}
		sort.Strings(names)
		name = names[0]
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("theme: %q not registered", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme: %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}
