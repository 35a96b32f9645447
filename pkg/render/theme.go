package render

import (
	"fmt"
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultThemeFallbacks maps partial keys to the bundled component
// templates. Theme templates override individual keys.
func DefaultThemeFallbacks() map[string]string {
	return map[string]string{
		"forms.form":        "templates/form.tmpl",
		"forms.input":       "templates/components/input.tmpl",
		"forms.textarea":    "templates/components/textarea.tmpl",
		"forms.select":      "templates/components/select.tmpl",
		"forms.checkbox":    "templates/components/toggle.tmpl",
		"forms.chips":       "templates/components/chips.tmpl",
		"forms.code-editor": "templates/components/code_editor.tmpl",
		"forms.key-value":   "templates/components/key_value.tmpl",
	}
}

// ResolveTheme asks selector for a theme/variant and flattens the selection
// into renderer configuration. A nil selector yields nil.
func ResolveTheme(selector theme.ThemeSelector, name, variant string, fallbacks map[string]string) (*theme.RendererConfig, error) {
	if selector == nil {
		return nil, nil
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("render: select theme %q/%q: %w", name, variant, err)
	}
	return ThemeConfig(selection, fallbacks), nil
}

// ThemeConfig flattens a theme selection: variant tokens, templates and
// asset files override the manifest's, tokens are exposed as CSS variables
// and templates are layered over fallbacks as partials.
func ThemeConfig(selection *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
	}
	for key, value := range fallbacks {
		cfg.Partials[key] = value
	}

	prefix := ""
	files := map[string]string{}
	if manifest := selection.Manifest; manifest != nil {
		mergeStrings(cfg.Tokens, manifest.Tokens)
		mergeStrings(cfg.Partials, manifest.Templates)
		prefix = manifest.Assets.Prefix
		mergeStrings(files, manifest.Assets.Files)
		if variant, ok := manifest.Variants[selection.Variant]; ok {
			mergeStrings(cfg.Tokens, variant.Tokens)
			mergeStrings(cfg.Partials, variant.Templates)
			if variant.Assets.Prefix != "" {
				prefix = variant.Assets.Prefix
			}
			mergeStrings(files, variant.Assets.Files)
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if prefix == "" || strings.Contains(file, "://") {
			return file
		}
		return path.Join(prefix, file)
	}
	return cfg
}

func mergeStrings(dst, src map[string]string) {
	for key, value := range src {
		dst[key] = value
	}
}
