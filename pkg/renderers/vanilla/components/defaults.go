package components

import (
	"bytes"
	"fmt"
	"strings"
)

const templatePrefix = "templates/components/"

// NewDefaultRegistry returns a registry with the built-in components. Every
// built-in renders through a template partial the theme can override.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameInput, Descriptor{
		Renderer: templateComponentRenderer("forms.input", templatePrefix+"input.tmpl"),
	})
	registry.MustRegister(NameTextarea, Descriptor{
		Renderer: templateComponentRenderer("forms.textarea", templatePrefix+"textarea.tmpl"),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: templateComponentRenderer("forms.select", templatePrefix+"select.tmpl"),
	})
	registry.MustRegister(NameToggle, Descriptor{
		Renderer: templateComponentRenderer("forms.checkbox", templatePrefix+"toggle.tmpl"),
	})
	registry.MustRegister(NameChips, Descriptor{
		Renderer: templateComponentRenderer("forms.chips", templatePrefix+"chips.tmpl"),
	})
	registry.MustRegister(NameCodeEditor, Descriptor{
		Renderer: templateComponentRenderer("forms.code-editor", templatePrefix+"code_editor.tmpl"),
		Scripts:  []Script{{Src: "/formbind/code-editor.js", Defer: true}},
	})
	registry.MustRegister(NameJSONEditor, Descriptor{
		Renderer: templateComponentRenderer("forms.code-editor", templatePrefix+"code_editor.tmpl"),
		Scripts:  []Script{{Src: "/formbind/code-editor.js", Defer: true}},
	})
	registry.MustRegister(NameKeyValue, Descriptor{
		Renderer: templateComponentRenderer("forms.key-value", templatePrefix+"key_value.tmpl"),
	})

	return registry
}

func templateComponentRenderer(partialKey, templateName string) Renderer {
	return func(buf *bytes.Buffer, control Control, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		resolved := templateName
		if candidate := strings.TrimSpace(data.Partials[partialKey]); candidate != "" {
			resolved = candidate
		}

		rendered, err := data.Template.RenderTemplate(resolved, map[string]any{"field": control})
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", resolved, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

// SanitizeClassList drops the fb- prefixed classes reserved for the
// renderer's own markup.
func SanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := tokens[:0]
	for _, token := range tokens {
		if strings.HasPrefix(token, "fb-") || strings.HasPrefix(token, "formbind-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}
