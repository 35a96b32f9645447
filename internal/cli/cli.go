// Package cli implements the formbind command line: flag and config
// parsing plus a Runner that renders or interactively edits a form.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// ParseArgs parses command line arguments into Config. When --config is
// given the file is applied first and the arguments are parsed again on top.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	fs := pflag.NewFlagSet("formbind", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Source, "source", "s", "", "schema document path or URL (OpenAPI or JSON Schema)")
	fs.StringVarP(&cfg.Operation, "operation", "o", "", "OpenAPI operation ID")
	fs.StringVarP(&cfg.Renderer, "renderer", "r", "vanilla", "renderer: vanilla or tui")
	fs.StringVar(&cfg.Output, "output", "", "output file (stdout if empty)")
	fs.StringVarP(&cfg.Format, "format", "f", "json", "tui output format: json, form or pretty")
	fs.StringVar(&cfg.ValuesFile, "values", "", "YAML or JSON file with initial values")
	fs.StringVar(&cfg.ErrorsFile, "errors", "", "YAML or JSON file with a server error payload")
	fs.StringVar(&cfg.ThemeManifest, "theme-manifest", "", "YAML theme manifest")
	fs.StringVar(&cfg.Theme, "theme", "", "theme name")
	fs.StringVar(&cfg.Variant, "variant", "", "theme variant")
	fs.StringVar(&cfg.PresetFile, "preset", "", "JSON preset with per-field patches")
	fs.StringVar(&cfg.Banner, "banner", "", "HTML comment written ahead of the vanilla form")
	fs.StringVar(&cfg.Validator, "validator", ValidatorOpenAPI, "validator: openapi or jsonschema")
	fs.BoolVarP(&cfg.Interactive, "interactive", "i", true, "edit the live form when the renderer is tui")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	fs.StringVarP(&cfg.ConfigFile, "config", "c", "", "YAML config file")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if path := strings.TrimSpace(cfg.ConfigFile); path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(cfg.Source) == "" {
		return nil, fmt.Errorf("--source is required")
	}
	switch cfg.Renderer {
	case "vanilla", "tui":
	default:
		return nil, fmt.Errorf("--renderer must be vanilla or tui, got %q", cfg.Renderer)
	}
	switch cfg.Format {
	case "json", "form", "pretty":
	default:
		return nil, fmt.Errorf("--format must be json, form or pretty, got %q", cfg.Format)
	}
	switch cfg.Validator {
	case ValidatorOpenAPI, ValidatorJSONSchema:
	default:
		return nil, fmt.Errorf("--validator must be openapi or jsonschema, got %q", cfg.Validator)
	}
	return cfg, nil
}
