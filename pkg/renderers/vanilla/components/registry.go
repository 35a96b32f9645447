package components

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	rendertemplate "github.com/goliatone/go-formbind/pkg/render/template"
)

// Renderer writes the HTML of one control into buf.
type Renderer func(buf *bytes.Buffer, control Control, data ComponentData) error

// ComponentData carries the template engine and the partial overrides of
// the active theme.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// Partials maps partial keys ("forms.input") to template names.
	Partials map[string]string
}

// Script is a script tag a component needs once per page.
type Script struct {
	Src    string
	Inline string
	Async  bool
	Defer  bool
	Module bool
}

func (s Script) key() string {
	if s.Src != "" {
		return "src:" + s.Src
	}
	return "inline:" + s.Inline
}

// Descriptor is a component: how a control renders and the assets the page
// needs when at least one control uses it.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
	Scripts     []Script
}

// Registry maps widget names to components. Lookups are case-insensitive.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{components: make(map[string]Descriptor)}
}

// Register adds or replaces the component for a widget name.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}
	descriptor.Name = name
	descriptor.Stylesheets = slices.Clone(descriptor.Stylesheets)
	descriptor.Scripts = slices.Clone(descriptor.Scripts)

	r.mu.Lock()
	r.components[name] = descriptor
	r.mu.Unlock()
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor returns the component registered for a widget name.
func (r *Registry) Descriptor(widget string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[strings.ToLower(strings.TrimSpace(widget))]
	return descriptor, ok
}

// Assets collects the stylesheets and scripts of the widgets used on a
// page. Each asset is listed once, at its first use.
func (r *Registry) Assets(widgets []string) (stylesheets []string, scripts []Script) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	first := func(key string) bool {
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	}
	for _, widget := range widgets {
		descriptor, ok := r.components[strings.ToLower(strings.TrimSpace(widget))]
		if !ok {
			continue
		}
		for _, href := range descriptor.Stylesheets {
			if href != "" && first("css:"+href) {
				stylesheets = append(stylesheets, href)
			}
		}
		for _, script := range descriptor.Scripts {
			if first(script.key()) {
				scripts = append(scripts, script)
			}
		}
	}
	return stylesheets, scripts
}
