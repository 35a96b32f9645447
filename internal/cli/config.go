package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config stores CLI options for a single run. Every field except
// ConfigFile and ShowVersion can also come from a YAML config file; flags
// given on the command line win.
type Config struct {
	Source        string `yaml:"source"`
	Operation     string `yaml:"operation"`
	Renderer      string `yaml:"renderer"`
	Output        string `yaml:"output"`
	Format        string `yaml:"format"`
	ValuesFile    string `yaml:"values"`
	ErrorsFile    string `yaml:"errors"`
	ThemeManifest string `yaml:"themeManifest"`
	Theme         string `yaml:"theme"`
	Variant       string `yaml:"variant"`
	PresetFile    string `yaml:"preset"`
	Banner        string `yaml:"banner"`
	Validator     string `yaml:"validator"`
	Interactive   bool   `yaml:"interactive"`
	Verbose       bool   `yaml:"verbose"`
	ConfigFile    string `yaml:"-"`
	ShowVersion   bool   `yaml:"-"`
}

// Validator names accepted by --validator.
const (
	ValidatorOpenAPI    = "openapi"
	ValidatorJSONSchema = "jsonschema"
)

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
