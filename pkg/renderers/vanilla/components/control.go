package components

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/view"
)

// Control is the template-facing view of a bound field node.
type Control struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Widget      string   `json:"widget"`
	InputType   string   `json:"inputType"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder"`
	Class       string   `json:"class"`
	Language    string   `json:"language,omitempty"`
	Text        string   `json:"text"`
	Checked     bool     `json:"checked"`
	Required    bool     `json:"required"`
	ReadOnly    bool     `json:"readonly"`
	Rows        int      `json:"rows,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	ErrorID     string   `json:"errorId,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Entries     []Entry  `json:"entries,omitempty"`
}

// Option is one choice of a select or chips control.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Entry is one row of a key-value control.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ControlFor builds the control of a field node rendered with widget.
func ControlFor(node *view.Node, widget string) Control {
	name := node.Name.String()
	control := Control{
		ID:          ControlID(name),
		Name:        name,
		Widget:      widget,
		InputType:   inputType(node),
		Label:       node.Prop("label"),
		Placeholder: node.Prop("placeholder"),
		Class:       SanitizeClassList(node.Prop("class")),
		Required:    node.Required,
		ReadOnly:    truthy(node.Props["readonly"]),
		Errors:      node.Errors,
	}
	if len(node.Errors) > 0 {
		control.ErrorID = control.ID + "-errors"
	}
	if control.Label == "" && len(node.Name) > 0 {
		control.Label = node.Name[len(node.Name)-1].String()
	}

	switch widget {
	case NameToggle:
		control.Checked = truthy(node.Value)
	case NameSelect, NameChips:
		control.Options = optionsFor(node.Props["options"], node.Value)
	case NameJSONEditor:
		control.Language = "json"
		control.Text = prettyJSON(node.Value)
		control.Rows = 8
	case NameCodeEditor:
		control.Language = strings.ToLower(node.Prop("format"))
		control.Text = Stringify(node.Value)
		control.Rows = 8
	case NameKeyValue:
		control.Entries = entriesFor(node.Value)
	case NameTextarea:
		control.Text = Stringify(node.Value)
		control.Rows = 4
	default:
		control.Text = Stringify(node.Value)
	}
	return control
}

// ControlID is the element id used for the control bound to name.
func ControlID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return "fb-" + strings.NewReplacer(".", "-", "*", "any").Replace(trimmed)
}

// Stringify renders a scalar for a value attribute. Nil is empty.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case map[string]any, []any:
		return prettyJSON(v)
	default:
		return fmt.Sprint(v)
	}
}

func inputType(node *view.Node) string {
	if explicit := node.Prop("inputType"); explicit != "" {
		return explicit
	}
	switch node.Type {
	case "integer", "number":
		return "number"
	}
	switch strings.ToLower(node.Prop("format")) {
	case "email":
		return "email"
	case "uri", "url":
		return "url"
	case "date":
		return "date"
	case "date-time":
		return "datetime-local"
	case "password":
		return "password"
	}
	return "text"
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	}
	return false
}

func optionsFor(raw any, current any) []Option {
	selected := map[string]bool{}
	switch v := current.(type) {
	case []any:
		for _, item := range v {
			selected[Stringify(item)] = true
		}
	case []string:
		for _, item := range v {
			selected[item] = true
		}
	case nil:
	default:
		selected[Stringify(v)] = true
	}

	var out []Option
	add := func(value, label string) {
		if label == "" {
			label = value
		}
		out = append(out, Option{Value: value, Label: label, Selected: selected[value]})
	}
	switch v := raw.(type) {
	case []Option:
		for _, option := range v {
			add(option.Value, option.Label)
		}
	case []string:
		for _, option := range v {
			add(option, "")
		}
	case []any:
		for _, option := range v {
			if m, ok := option.(map[string]any); ok {
				add(Stringify(m["value"]), Stringify(m["label"]))
				continue
			}
			add(Stringify(option), "")
		}
	}
	return out
}

func entriesFor(value any) []Entry {
	var out []Entry
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out = append(out, Entry{Key: key, Value: Stringify(v[key])})
		}
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, Entry{Key: Stringify(m["key"]), Value: Stringify(m["value"])})
		}
	}
	return out
}

func prettyJSON(value any) string {
	if value == nil {
		return ""
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(raw)
}
