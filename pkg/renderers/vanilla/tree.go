package vanilla

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	rendertemplate "github.com/goliatone/go-formbind/pkg/render/template"
	"github.com/goliatone/go-formbind/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-formbind/pkg/view"
)

type treeRenderer struct {
	templates rendertemplate.TemplateRenderer
	registry  *components.Registry
	partials  map[string]string
	policy    *bluemonday.Policy
	classes   ChromeClasses

	used map[string]struct{}
}

func newTreeRenderer(templates rendertemplate.TemplateRenderer, registry *components.Registry, partials map[string]string, policy *bluemonday.Policy, classes ChromeClasses) *treeRenderer {
	return &treeRenderer{
		templates: templates,
		registry:  registry,
		partials:  partials,
		policy:    policy,
		classes:   classes,
		used:      make(map[string]struct{}),
	}
}

func (r *treeRenderer) render(nodes []*view.Node) (string, error) {
	var b strings.Builder
	if err := r.nodes(&b, nodes); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (r *treeRenderer) nodes(b *strings.Builder, nodes []*view.Node) error {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		var err error
		switch node.Kind {
		case view.KindField:
			err = r.field(b, node)
		case view.KindList:
			err = r.list(b, node)
		case view.KindItem:
			err = r.item(b, node)
		case view.KindGroup:
			err = r.group(b, node, r.classes.Fieldset, "")
		default:
			err = r.element(b, node)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// widgetFor falls back to a plain input, or a textarea for multiline text.
func widgetFor(node *view.Node) string {
	if widget := node.Prop("widget"); widget != "" {
		return widget
	}
	if node.Prop("multiline") == "true" || node.Props["multiline"] == true {
		return components.NameTextarea
	}
	return components.NameInput
}

func (r *treeRenderer) field(b *strings.Builder, node *view.Node) error {
	// object fields without an explicit widget lay out their children
	if node.Prop("widget") == "" && len(node.Children) > 0 {
		return r.group(b, node, r.classes.Fieldset, node.Name.String())
	}

	widget := widgetFor(node)
	descriptor, ok := r.registry.Descriptor(widget)
	if !ok {
		return fmt.Errorf("component %q not registered for field %q", widget, node.Name.String())
	}
	control := components.ControlFor(node, widget)

	var out bytes.Buffer
	data := components.ComponentData{Template: r.templates, Partials: r.partials}
	if err := descriptor.Renderer(&out, control, data); err != nil {
		return fmt.Errorf("render component %q for field %q: %w", widget, control.Name, err)
	}
	r.used[descriptor.Name] = struct{}{}

	b.WriteString(`<div class="`)
	b.WriteString(html.EscapeString(r.classes.Field))
	b.WriteString(`" data-path="`)
	b.WriteString(html.EscapeString(control.Name))
	b.WriteString(`" data-widget="`)
	b.WriteString(html.EscapeString(widget))
	b.WriteString(`">`)

	if control.Label != "" {
		b.WriteString(`<label`)
		if labelSupportsFor(widget) {
			b.WriteString(` for="`)
			b.WriteString(html.EscapeString(control.ID))
			b.WriteString(`"`)
		}
		b.WriteString(`>`)
		b.WriteString(html.EscapeString(control.Label))
		if control.Required {
			b.WriteString(`<span class="formbind-required" aria-hidden="true">*</span>`)
		}
		b.WriteString(`</label>`)
	}

	b.WriteString(strings.TrimSpace(out.String()))
	r.help(b, node)
	writeErrors(b, control.ErrorID, control.Errors)
	b.WriteString("</div>\n")
	return nil
}

func (r *treeRenderer) list(b *strings.Builder, node *view.Node) error {
	name := node.Name.String()
	b.WriteString(`<fieldset class="`)
	b.WriteString(html.EscapeString(r.classes.List))
	b.WriteString(`" data-path="`)
	b.WriteString(html.EscapeString(name))
	b.WriteString(`" data-widget="`)
	b.WriteString(html.EscapeString(widgetOr(node, "repeater")))
	b.WriteString(`">`)
	r.legend(b, node, name)
	r.help(b, node)
	errorID := ""
	if len(node.Errors) > 0 {
		errorID = components.ControlID(name) + "-errors"
	}
	writeErrors(b, errorID, node.Errors)
	b.WriteString("\n")
	if err := r.nodes(b, node.Children); err != nil {
		return err
	}
	b.WriteString(`<button type="button" class="formbind-add" data-action="add" data-path="`)
	b.WriteString(html.EscapeString(name))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(labelOr(node.Prop("addLabel"), "Add")))
	b.WriteString("</button>\n</fieldset>\n")
	return nil
}

func (r *treeRenderer) item(b *strings.Builder, node *view.Node) error {
	index := ""
	if n := len(node.Name); n > 0 && node.Name[n-1].IsIndex() {
		index = node.Name[n-1].String()
	}
	b.WriteString(`<div class="`)
	b.WriteString(html.EscapeString(r.classes.Item))
	b.WriteString(`" data-key="`)
	b.WriteString(html.EscapeString(node.Key))
	b.WriteString(`" data-index="`)
	b.WriteString(html.EscapeString(index))
	b.WriteString("\">\n")
	if err := r.nodes(b, node.Children); err != nil {
		return err
	}
	b.WriteString(`<button type="button" class="formbind-remove" data-action="remove" data-index="`)
	b.WriteString(html.EscapeString(index))
	b.WriteString("\">Remove</button>\n</div>\n")
	return nil
}

func (r *treeRenderer) group(b *strings.Builder, node *view.Node, class, path string) error {
	b.WriteString(`<fieldset class="`)
	b.WriteString(html.EscapeString(strings.TrimSpace(class + " " + components.SanitizeClassList(node.Prop("class")))))
	b.WriteString(`"`)
	if path != "" {
		b.WriteString(` data-path="`)
		b.WriteString(html.EscapeString(path))
		b.WriteString(`"`)
	}
	b.WriteString(`>`)
	r.legend(b, node, "")
	r.help(b, node)
	b.WriteString("\n")
	if err := r.nodes(b, node.Children); err != nil {
		return err
	}
	b.WriteString("</fieldset>\n")
	return nil
}

var tagPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

func (r *treeRenderer) element(b *strings.Builder, node *view.Node) error {
	tag := strings.ToLower(node.Prop("tag"))
	if !tagPattern.MatchString(tag) {
		return r.nodes(b, node.Children)
	}
	b.WriteString("<" + tag)
	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		if key == "tag" || key == "text" || strings.HasPrefix(key, "on") || !tagPattern.MatchString(key) {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		b.WriteString(" " + key + `="`)
		b.WriteString(html.EscapeString(components.Stringify(node.Props[key])))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(node.Prop("text")))
	if err := r.nodes(b, node.Children); err != nil {
		return err
	}
	b.WriteString("</" + tag + ">\n")
	return nil
}

func (r *treeRenderer) legend(b *strings.Builder, node *view.Node, fallback string) {
	label := labelOr(node.Prop("label"), fallback)
	if label == "" {
		return
	}
	b.WriteString(`<legend>`)
	b.WriteString(html.EscapeString(label))
	if node.Required {
		b.WriteString(`<span class="formbind-required" aria-hidden="true">*</span>`)
	}
	b.WriteString(`</legend>`)
}

// help writes the description, sanitised since schemas may carry markup.
func (r *treeRenderer) help(b *strings.Builder, node *view.Node) {
	text := node.Prop("helpText")
	if text == "" {
		text = node.Prop("description")
	}
	if text = strings.TrimSpace(r.policy.Sanitize(text)); text == "" {
		return
	}
	b.WriteString(`<p class="formbind-help">`)
	b.WriteString(text)
	b.WriteString(`</p>`)
}

func (r *treeRenderer) assets() ([]string, []components.Script) {
	if len(r.used) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(r.used))
	for name := range r.used {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Assets(names)
}

func writeErrors(b *strings.Builder, id string, messages []string) {
	if len(messages) == 0 {
		return
	}
	for i, message := range messages {
		b.WriteString(`<p class="formbind-error"`)
		if i == 0 && id != "" {
			b.WriteString(` id="`)
			b.WriteString(html.EscapeString(id))
			b.WriteString(`"`)
		}
		b.WriteString(` role="alert">`)
		b.WriteString(html.EscapeString(message))
		b.WriteString(`</p>`)
	}
}

func labelSupportsFor(widget string) bool {
	switch widget {
	case components.NameChips, components.NameKeyValue:
		return false
	}
	return true
}

func widgetOr(node *view.Node, fallback string) string {
	return labelOr(node.Prop("widget"), fallback)
}

func labelOr(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func cloneTree(nodes []*view.Node) []*view.Node {
	if nodes == nil {
		return nil
	}
	out := make([]*view.Node, 0, len(nodes))
	for _, node := range nodes {
		if node == nil {
			continue
		}
		clone := *node
		if node.Props != nil {
			clone.Props = make(map[string]any, len(node.Props))
			for key, value := range node.Props {
				clone.Props[key] = value
			}
		}
		clone.Children = cloneTree(node.Children)
		out = append(out, &clone)
	}
	return out
}
