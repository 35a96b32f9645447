// Package tui edits bound forms from a terminal. Render prompts for the
// fields of a rendered snapshot and serializes the answers; Edit drives a
// live form, writing every answer through the form store so normalizers
// and field rules apply, and growing lists on request.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/view"
)

// Renderer implements render.Renderer for terminal sessions.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	maxRounds         int
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		maxRounds:    100,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(os.Stdout)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for every field of the snapshot, seeded with the node
// values, and serializes the collected tree.
func (r *Renderer) Render(ctx context.Context, form render.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	nodes := form.Nodes
	if opts.Translator != nil {
		nodes = cloneTree(nodes)
		render.Localize(nodes, opts)
	}

	values := store.New(nil)
	for _, message := range form.Errors {
		if err := r.driver.Info(ctx, r.theme.ErrorPrefix+message); err != nil {
			return nil, err
		}
	}
	for _, node := range view.Fields(nodes) {
		if isGroup(node) {
			continue
		}
		if node.Value != nil {
			_ = values.SetValue(node.Name, node.Value)
		}
		if err := r.promptNode(ctx, node, values, nil); err != nil {
			return nil, err
		}
	}
	return r.output(values.Values(true))
}

// Session is a live form: binding.Form satisfies it for any value type.
type Session interface {
	Store() *store.Store
	Settle(ctx context.Context, root view.Render) ([]*view.Node, error)
}

// Edit prompts for each field of the live form once, validating answers
// with the field rules, and offers to add items to every list. Added items
// mount on the next settle and are prompted in turn.
func (r *Renderer) Edit(ctx context.Context, session Session, root view.Render) error {
	if r.driver == nil {
		return errors.New("tui: prompt driver is nil")
	}
	s := session.Store()
	prompted := map[string]struct{}{}
	offered := map[string]int{}

	for round := 0; round < r.maxRounds; round++ {
		nodes, err := session.Settle(ctx, root)
		if err != nil {
			return err
		}

		progressed := false
		var visitErr error
		view.Walk(nodes, func(node *view.Node) bool {
			if visitErr != nil {
				return false
			}
			switch node.Kind {
			case view.KindField:
				key := node.Name.Pointer()
				if _, done := prompted[key]; done || isGroup(node) {
					return true
				}
				prompted[key] = struct{}{}
				progressed = true
				visitErr = r.promptNode(ctx, node, s, func() ([]string, error) {
					return s.ValidateField(ctx, node.Name)
				})
				return false
			case view.KindList:
				key := node.Name.Pointer()
				items := countItems(node)
				if seen, ok := offered[key]; ok && seen == items {
					return true
				}
				// children first so a list is extended after its items are filled
				if pending := unprompted(node.Children, prompted); pending {
					return true
				}
				offered[key] = items
				add, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add an item to %s?", labelOf(node))})
				if err != nil {
					visitErr = err
					return false
				}
				if add {
					s.ArrayField(node.Name).Ops().Add()
					progressed = true
					return false
				}
			}
			return true
		})
		if visitErr != nil {
			return visitErr
		}
		if !progressed {
			return nil
		}
	}
	return ErrTooManyRounds
}

// isGroup reports object fields laid out through their children.
func isGroup(node *view.Node) bool {
	return node.Prop("widget") == "" && len(node.Children) > 0
}

func countItems(list *view.Node) int {
	n := 0
	for _, child := range list.Children {
		if child.Kind == view.KindItem {
			n++
		}
	}
	return n
}

func unprompted(nodes []*view.Node, prompted map[string]struct{}) bool {
	pending := false
	view.Walk(nodes, func(node *view.Node) bool {
		if node.Kind == view.KindField && !isGroup(node) {
			if _, done := prompted[node.Name.Pointer()]; !done {
				pending = true
			}
		}
		return !pending
	})
	return pending
}

type validateFunc func() ([]string, error)

// promptNode asks for one field until the answer parses and passes
// validate. Answers are written to s at the node path.
func (r *Renderer) promptNode(ctx context.Context, node *view.Node, s *store.Store, validate validateFunc) error {
	label := labelOf(node)
	help := helpOf(node)
	current, _ := s.Value(node.Name)

	for {
		value, err := r.ask(ctx, node, label, help, current)
		if err != nil {
			var invalid *inputError
			if errors.As(err, &invalid) {
				if err := r.info(ctx, node, invalid.message); err != nil {
					return err
				}
				continue
			}
			return err
		}
		if node.Required && store.IsEmpty(value) {
			if err := r.info(ctx, node, "required"); err != nil {
				return err
			}
			continue
		}
		if err := s.SetValue(node.Name, value); err != nil {
			return err
		}
		if validate == nil {
			return nil
		}
		messages, err := validate()
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		current = value
		if err := r.info(ctx, node, strings.Join(messages, "; ")); err != nil {
			return err
		}
	}
}

type inputError struct{ message string }

func (e *inputError) Error() string { return e.message }

func (r *Renderer) ask(ctx context.Context, node *view.Node, label, help string, current any) (any, error) {
	widget := node.Prop("widget")
	switch {
	case widget == "toggle" || node.Type == "boolean":
		current, _ := current.(bool)
		return r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current, Help: help})

	case widget == "chips":
		options := optionStrings(node.Props["options"])
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  options,
			Defaults: indicesOf(options, stringSlice(current)),
			Help:     help,
		})
		if err != nil {
			return nil, err
		}
		selected := make([]any, 0, len(indices))
		for _, idx := range indices {
			selected = append(selected, options[idx])
		}
		return selected, nil

	case widget == "select" || len(optionStrings(node.Props["options"])) > 0:
		options := optionStrings(node.Props["options"])
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      options,
			DefaultIndex: indexOf(options, stringOf(current)),
			Help:         help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(options) {
			return nil, &inputError{message: "invalid selection"}
		}
		return options[idx], nil

	case widget == "json-editor":
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: prettyJSON(current), Help: help})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, &inputError{message: fmt.Sprintf("invalid JSON: %v", err)}
		}
		return decoded, nil

	case node.Type == "integer" || node.Type == "number":
		text, err := r.driver.Input(ctx, InputConfig{Message: label, Default: stringOf(current), Help: help})
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		if node.Type == "integer" {
			parsed, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, &inputError{message: fmt.Sprintf("%q is not an integer", text)}
			}
			return parsed, nil
		}
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &inputError{message: fmt.Sprintf("%q is not a number", text)}
		}
		return parsed, nil

	case widget == "code-editor" || widget == "textarea" || node.Props["multiline"] == true:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: stringOf(current), Help: help})

	case strings.EqualFold(node.Prop("format"), "password"):
		return r.driver.Password(ctx, InputConfig{Message: label, Help: help})

	default:
		return r.driver.Input(ctx, InputConfig{
			Message:     label,
			Default:     stringOf(current),
			Help:        help,
			Placeholder: node.Prop("placeholder"),
		})
	}
}

func (r *Renderer) info(ctx context.Context, node *view.Node, message string) error {
	return r.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %s", r.theme.ErrorPrefix, node.Name.String(), message))
}

func (r *Renderer) output(values map[string]any) ([]byte, error) {
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func labelOf(node *view.Node) string {
	if label := node.Prop("label"); label != "" {
		return label
	}
	return node.Name.String()
}

func helpOf(node *view.Node) string {
	if help := node.Prop("helpText"); help != "" {
		return help
	}
	return node.Prop("description")
}

func cloneTree(nodes []*view.Node) []*view.Node {
	out := make([]*view.Node, 0, len(nodes))
	for _, node := range nodes {
		if node == nil {
			continue
		}
		clone := *node
		clone.Props = make(map[string]any, len(node.Props))
		for key, value := range node.Props {
			clone.Props[key] = value
		}
		clone.Children = cloneTree(node.Children)
		out = append(out, &clone)
	}
	return out
}
