// Package gotemplate renders the bundled form templates with pongo2. Its
// engine satisfies template.TemplateRenderer, the surface shared with
// github.com/goliatone/go-template, so renderers can swap engines, and it
// runs go-template pre and post hooks around every render.
package gotemplate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goccy/go-json"
	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formbind/pkg/render/template"
)

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	baseDir   string
	templates fs.FS
	extension string
	globals   map[string]any
	hooks     *gotemplatepkg.HookManager
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from files. It is consulted after WithBaseDir.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension sets the extension appended to template names, ".tpl" by
// default.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		cfg.extension = "." + strings.TrimPrefix(ext, ".")
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[key] = value
		}
	}
}

// WithPreHook runs hook before every render. Pre hooks may rewrite the data
// and the template name; lower priorities run first.
func WithPreHook(hook gotemplatepkg.PreHook, priority ...int) Option {
	return func(cfg *config) {
		if hook != nil {
			cfg.hooks.AddPreHook(hook, priority...)
		}
	}
}

// WithPostHook runs hook on every rendered output, after the template
// executed and before the writers see it.
func WithPostHook(hook gotemplatepkg.PostHook, priority ...int) Option {
	return func(cfg *config) {
		if hook != nil {
			cfg.hooks.AddPostHook(hook, priority...)
		}
	}
}

// Engine is a pongo2 template set with a per-name template cache.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	cache     map[string]*pongo2.Template
	extension string
	hooks     *gotemplatepkg.HookManager
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New builds an engine. At least one of WithBaseDir or WithFS is required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: ".tpl", hooks: gotemplatepkg.NewHooksManager()}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: template dir: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}
	if len(loaders) == 0 {
		return nil, errors.New("gotemplate: a template dir or fs.FS is required")
	}

	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", trimFilter)
	}

	engine := &Engine{
		set:       pongo2.NewSet("formbind", loaders...),
		cache:     make(map[string]*pongo2.Template),
		extension: cfg.extension,
		hooks:     cfg.hooks,
	}
	if err := engine.GlobalContext(cfg.globals); err != nil {
		return nil, err
	}
	return engine, nil
}

// Render treats name as inline content when it contains template tags.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if strings.Contains(name, "{{") || strings.Contains(name, "{%") {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate executes the named template, appending the configured
// extension when name lacks it.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	hook := &gotemplatepkg.HookContext{TemplateName: name, Data: data}
	if err := e.before(hook); err != nil {
		return "", err
	}
	name = hook.TemplateName
	if !strings.HasSuffix(name, e.extension) {
		name += e.extension
	}
	tmpl, err := e.load(name)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, name, hook, out)
}

// RenderString parses and executes inline template content.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	hook := &gotemplatepkg.HookContext{Template: content, Data: data}
	if err := e.before(hook); err != nil {
		return "", err
	}
	tmpl, err := e.set.FromString(hook.Template)
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse inline template: %w", err)
	}
	return e.execute(tmpl, "inline template", hook, out)
}

func (e *Engine) before(hook *gotemplatepkg.HookContext) error {
	hook.Metadata = map[string]any{"ext": e.extension}
	hook.IsPreHook = true
	for _, pre := range e.hooks.PreHooks() {
		if err := pre(hook); err != nil {
			return fmt.Errorf("gotemplate: pre hook: %w", err)
		}
	}
	hook.IsPreHook = false
	return nil
}

// RegisterFilter registers fn as a pongo2 filter. Filters are process
// global, so registering a taken name fails.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var arg any
		if param != nil {
			arg = param.Interface()
		}
		result, err := fn(in.Interface(), arg)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// GlobalContext merges data into the values every template sees.
func (e *Engine) GlobalContext(data any) error {
	if data == nil {
		return nil
	}
	globals, err := contextOf(data)
	if err != nil {
		return fmt.Errorf("gotemplate: global data: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set.Globals == nil {
		e.set.Globals = pongo2.Context{}
	}
	e.set.Globals.Update(globals)
	return nil
}

func (e *Engine) load(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.cache[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %q: %w", name, err)
	}
	e.cache[name] = tmpl
	return tmpl, nil
}

func (e *Engine) execute(tmpl *pongo2.Template, label string, hook *gotemplatepkg.HookContext, out []io.Writer) (string, error) {
	ctx, err := contextOf(hook.Data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: %s data: %w", label, err)
	}
	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", label, err)
	}

	hook.Output = buf.String()
	for _, post := range e.hooks.PostHooks() {
		result, err := post(hook)
		if err != nil {
			return "", fmt.Errorf("gotemplate: post hook on %s: %w", label, err)
		}
		hook.Output = result
	}

	for _, w := range out {
		if _, err := io.WriteString(w, hook.Output); err != nil {
			return "", err
		}
	}
	return hook.Output, nil
}

// contextOf turns template data into a pongo2 context. Maps are walked and
// any other value goes through a JSON round trip so templates address
// struct fields by their json names. Integral numbers stay integers.
func contextOf(data any) (pongo2.Context, error) {
	if data == nil {
		return pongo2.Context{}, nil
	}
	value, err := plain(data)
	if err != nil {
		return nil, err
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", data)
	}
	return pongo2.Context(m), nil
}

func plain(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, float32, float64, pongo2.FilterFunction,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v, nil
	case pongo2.Context:
		return plain(map[string]any(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			converted, err := plain(item)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			converted, err := plain(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	return numbers(decoded), nil
}

// numbers replaces the json.Number values left by a UseNumber decode with
// int64 when integral and float64 otherwise.
func numbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for key, item := range v {
			v[key] = numbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = numbers(item)
		}
		return v
	}
	return value
}

func trimFilter(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}
