package config

import (
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/biyu6/swift/internal/importer"
)

// Config represents the clangimport.yaml configuration.
type Config struct {
	Headers     string         `yaml:"headers"`
	Ignore      []string       `yaml:"ignore"`
	Frontends   []string       `yaml:"frontends"`
	Diagnostics []string       `yaml:"diagnostics"`
	Renderers   []string       `yaml:"renderers"`
	Importer    ImporterConfig `yaml:"importer"`
	Output      OutputConfig   `yaml:"output"`

	// SystemModules are imported modules expected to live outside the
	// header root.
	SystemModules []string `yaml:"system_modules"`
}

// ImporterConfig mirrors the import policy knobs of an importer session.
type ImporterConfig struct {
	Platform                  string `yaml:"platform"`
	DeploymentTarget          string `yaml:"deployment_target"`
	DeprecatedAsUnavailable   string `yaml:"deprecated_as_unavailable"`
	OmitNeedlessWords         bool   `yaml:"omit_needless_words"`
	InferDefaultArguments     bool   `yaml:"infer_default_arguments"`
	ImportForwardDeclarations bool   `yaml:"import_forward_declarations"`
	CreateUnavailableStubs    bool   `yaml:"create_unavailable_stubs"`
	Verbose                   bool   `yaml:"verbose"`
}

// OutputConfig controls where and how output artifacts are generated.
type OutputConfig struct {
	Dir                string `yaml:"dir"`
	MaxInterfaceTokens int    `yaml:"max_interface_tokens"`
	MaxSummaryTokens   int    `yaml:"max_summary_tokens"`
}

// Environment variables that override file settings.
const (
	EnvHeaders   = "CLANGIMPORT_HEADERS"
	EnvPlatform  = "CLANGIMPORT_PLATFORM"
	EnvVerbose   = "CLANGIMPORT_VERBOSE"
	EnvOutputDir = "CLANGIMPORT_OUTPUT_DIR"
)

const (
	defaultOutputDir = ".clangimport"
	defaultTokens    = 8000
	defaultSummary   = 4000
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	opts := importer.DefaultOptions()
	return &Config{
		Headers: ".",
		Ignore: []string{
			".git/**",
			"build/**",
			"DerivedData/**",
			"**/*.private.h",
			defaultOutputDir + "/**",
		},
		Frontends:   []string{"c", "objc"},
		Diagnostics: []string{"cycles", "imports", "unavailable"},
		Renderers:   []string{"interface", "summary"},
		SystemModules: []string{
			"ObjectiveC", "Darwin", "Dispatch", "CoreFoundation",
			"CoreGraphics", "QuartzCore", "UIKit", "AppKit",
		},
		Importer: ImporterConfig{
			Platform:               opts.Platform,
			DeploymentTarget:       opts.DeploymentTarget,
			OmitNeedlessWords:      opts.OmitNeedlessWords,
			InferDefaultArguments:  opts.InferDefaultArguments,
			CreateUnavailableStubs: opts.CreateUnavailableStubs,
		},
		Output: OutputConfig{
			Dir:                defaultOutputDir,
			MaxInterfaceTokens: defaultTokens,
			MaxSummaryTokens:   defaultSummary,
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	if cfg.Output.MaxInterfaceTokens == 0 {
		cfg.Output.MaxInterfaceTokens = defaultTokens
	}
	if cfg.Output.MaxSummaryTokens == 0 {
		cfg.Output.MaxSummaryTokens = defaultSummary
	}
	if cfg.Importer.Platform == "" {
		cfg.Importer.Platform = importer.DefaultOptions().Platform
	}
	return cfg, nil
}

// ApplyEnv overrides settings from CLANGIMPORT_* environment variables.
func (c *Config) ApplyEnv() {
	c.Headers = env.Str(EnvHeaders, c.Headers)
	c.Importer.Platform = env.Str(EnvPlatform, c.Importer.Platform)
	c.Output.Dir = env.Str(EnvOutputDir, c.Output.Dir)
	if env.Has(EnvVerbose) {
		c.Importer.Verbose = env.Bool(EnvVerbose)
	}
}

// ImporterOptions converts the importer section to session options.
func (c *Config) ImporterOptions() importer.Options {
	return importer.Options{
		OmitNeedlessWords:         c.Importer.OmitNeedlessWords,
		InferDefaultArguments:     c.Importer.InferDefaultArguments,
		ImportForwardDeclarations: c.Importer.ImportForwardDeclarations,
		CreateUnavailableStubs:    c.Importer.CreateUnavailableStubs,
		Platform:                  c.Importer.Platform,
		DeploymentTarget:          c.Importer.DeploymentTarget,
		DeprecatedAsUnavailable:   c.Importer.DeprecatedAsUnavailable,
		Verbose:                   c.Importer.Verbose,
	}
}

// IsFrontendEnabled returns true if the named frontend is enabled.
func (c *Config) IsFrontendEnabled(name string) bool {
	return contains(c.Frontends, name)
}

// IsDiagnosticEnabled returns true if the named diagnostic is enabled.
func (c *Config) IsDiagnosticEnabled(name string) bool {
	return contains(c.Diagnostics, name)
}

// IsRendererEnabled returns true if the named renderer is enabled.
func (c *Config) IsRendererEnabled(name string) bool {
	return contains(c.Renderers, name)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
