package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbind/pkg/binding"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/renderers/tui"
	"github.com/goliatone/go-formbind/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// Runner executes one CLI run.
type Runner struct {
	stdout io.Writer
	driver tui.PromptDriver
	logger *slog.Logger
}

// NewRunner wires the runner to stdout. A nil driver selects the survey
// prompts.
func NewRunner(stdout io.Writer, driver tui.PromptDriver, logger *slog.Logger) *Runner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if driver == nil {
		driver = tui.NewSurveyDriver(stdout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{stdout: stdout, driver: driver, logger: logger}
}

// Run renders the form described by cfg, or edits it interactively when the
// renderer is tui, and writes the result to cfg.Output or stdout.
func (r *Runner) Run(ctx context.Context, cfg *Config) error {
	terminal, err := tui.New(
		tui.WithPromptDriver(r.driver),
		tui.WithOutputFormat(tui.OutputFormat(cfg.Format)),
		tui.WithTheme(tui.Theme{InfoPrefix: "> ", ErrorPrefix: "! "}),
	)
	if err != nil {
		return err
	}
	options, err := r.options(cfg, terminal)
	if err != nil {
		return err
	}
	orch := orchestrator.New(options...)

	req := orchestrator.Request{
		Source:       schema.SourceFor(cfg.Source),
		OperationID:  cfg.Operation,
		Renderer:     cfg.Renderer,
		ThemeName:    cfg.Theme,
		ThemeVariant: cfg.Variant,
	}
	if req.Values, err = readMap[any](cfg.ValuesFile); err != nil {
		return err
	}
	if req.Errors, err = readMap[[]string](cfg.ErrorsFile); err != nil {
		return err
	}

	var output []byte
	if cfg.Renderer == terminal.Name() && cfg.Interactive {
		output, err = r.edit(ctx, orch, terminal, req)
	} else {
		output, err = orch.Generate(ctx, req)
	}
	if err != nil {
		return err
	}
	return r.write(cfg.Output, output)
}

func (r *Runner) options(cfg *Config, terminal *tui.Renderer) ([]orchestrator.Option, error) {
	html, err := vanilla.New(vanilla.WithBanner(cfg.Banner))
	if err != nil {
		return nil, err
	}
	registry := render.NewRegistry()
	registry.MustRegister(html)
	registry.MustRegister(terminal)

	options := []orchestrator.Option{
		orchestrator.WithRegistry(registry),
		orchestrator.WithLogger(r.logger),
	}
	if cfg.Validator == ValidatorJSONSchema {
		options = append(options, orchestrator.WithValidatorFactory(orchestrator.JSONSchemaValidator))
	}
	if cfg.PresetFile != "" {
		data, err := os.ReadFile(cfg.PresetFile)
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", cfg.PresetFile, err)
		}
		preset, err := orchestrator.NewJSONPresetTransformer(data)
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithSchemaTransformer(preset))
	}
	if cfg.ThemeManifest != "" {
		manifest, err := loadManifest(cfg.ThemeManifest)
		if err != nil {
			return nil, err
		}
		options = append(options,
			orchestrator.WithThemeSelector(orchestrator.NewManifestSelector(manifest)),
			orchestrator.WithDefaultTheme(manifest.Name, ""),
		)
	}
	return options, nil
}

// edit runs the interactive editor over the live form and submits it. A
// submit rejected by the validator is reported with every field message.
func (r *Runner) edit(ctx context.Context, orch *orchestrator.Orchestrator, terminal *tui.Renderer, req orchestrator.Request) ([]byte, error) {
	bound, err := orch.Bind(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(req.Errors) > 0 {
		if _, err := orch.Settle(ctx, bound, req.Errors); err != nil {
			return nil, err
		}
	}
	if err := terminal.Edit(ctx, orch.Session(bound), bound.Root); err != nil {
		return nil, err
	}

	value, err := bound.Form.Submit(ctx)
	var submitErr *binding.SubmitError
	if errors.As(err, &submitErr) {
		return nil, fmt.Errorf("form is invalid: %w", submitErr)
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("cli: form submitted", "fields", len(value))
	return json.MarshalIndent(value, "", "  ")
}

func (r *Runner) write(path string, output []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(r.stdout, strings.TrimRight(string(output), "\n"))
		return err
	}
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	r.logger.Info("form written", "path", path)
	return nil
}

// readMap decodes a YAML (or JSON) file; an empty path yields nil.
func readMap[V any](path string) (map[string]V, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out map[string]V
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}
