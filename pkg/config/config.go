// Package config loads rbparse tool settings from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Output formats for parse and tokens.
const (
	FormatSexp = "sexp"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds the settings shared by the rbparse subcommands.
type Config struct {
	Path             string        `toml:"path" yaml:"path"`
	IncludePositions bool          `toml:"include_positions" yaml:"include_positions"`
	Format           string        `toml:"format" yaml:"format"`
	CompatHash       bool          `toml:"compat_hash" yaml:"compat_hash"`
	MaxDepth         int           `toml:"max_depth" yaml:"max_depth"`
	Fixture          FixtureConfig `toml:"fixture" yaml:"fixture"`
}

// FixtureConfig controls `rbparse fixture` output.
type FixtureConfig struct {
	Package    string `toml:"package" yaml:"package"`
	FuncPrefix string `toml:"func_prefix" yaml:"func_prefix"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a config file, choosing the decoder by extension. An empty
// path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	path = os.ExpandEnv(path)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(content), &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromEnv loads the file named by RBPARSE_CONFIG, or the defaults.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("RBPARSE_CONFIG"))
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "(string)"
	}
	if c.Format == "" {
		c.Format = FormatSexp
	}
	if c.Fixture.Package == "" {
		c.Fixture.Package = "fixtures"
	}
	if c.Fixture.FuncPrefix == "" {
		c.Fixture.FuncPrefix = "Tree"
	}
}

// Validate reports every problem with the settings at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	switch c.Format {
	case FormatSexp, FormatJSON, FormatYAML:
	default:
		result = multierror.Append(result, fmt.Errorf("format %q is not one of sexp, json, yaml", c.Format))
	}
	if c.MaxDepth < 0 {
		result = multierror.Append(result, fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth))
	}
	if c.Fixture.Package != "" && !isIdentifier(c.Fixture.Package) {
		result = multierror.Append(result, fmt.Errorf("fixture.package %q is not a Go identifier", c.Fixture.Package))
	}
	return result.ErrorOrNil()
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
