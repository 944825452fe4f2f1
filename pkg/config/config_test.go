package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/rbparse/pkg/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Format != config.FormatSexp {
		t.Errorf("Format = %q", cfg.Format)
	}
	if cfg.Path != "(string)" {
		t.Errorf("Path = %q", cfg.Path)
	}
	if cfg.Fixture.Package != "fixtures" || cfg.Fixture.FuncPrefix != "Tree" {
		t.Errorf("Fixture = %+v", cfg.Fixture)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "toml",
			file: "rbparse.toml",
			content: `format = "json"
include_positions = true
compat_hash = true
max_depth = 50

[fixture]
package = "trees"
`,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Format != config.FormatJSON || !cfg.IncludePositions || !cfg.CompatHash || cfg.MaxDepth != 50 {
					t.Errorf("got %+v", cfg)
				}
				if cfg.Fixture.Package != "trees" || cfg.Fixture.FuncPrefix != "Tree" {
					t.Errorf("Fixture = %+v", cfg.Fixture)
				}
			},
		},
		{
			name: "yaml",
			file: "rbparse.yml",
			content: `format: yaml
path: script.rb
fixture:
  func_prefix: Golden
`,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Format != config.FormatYAML || cfg.Path != "script.rb" {
					t.Errorf("got %+v", cfg)
				}
				if cfg.Fixture.FuncPrefix != "Golden" || cfg.Fixture.Package != "fixtures" {
					t.Errorf("Fixture = %+v", cfg.Fixture)
				}
			},
		},
		{
			name:    "empty yaml",
			file:    "empty.yaml",
			content: "",
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Format != config.FormatSexp {
					t.Errorf("Format = %q", cfg.Format)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != config.FormatSexp {
		t.Errorf("Format = %q", cfg.Format)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    []string
	}{
		{"unknown toml key", "a.toml", "format = \"sexp\"\ncolour = \"red\"\n", []string{"unknown config keys", "colour"}},
		{"unknown yaml key", "a.yaml", "colour: red\n", []string{"failed to parse config", "colour"}},
		{"bad toml", "a.toml", "format = \n", []string{"failed to parse config"}},
		{"unsupported extension", "a.ini", "format=sexp", []string{"unsupported config format"}},
		{"every validation problem", "a.toml", "format = \"xml\"\nmax_depth = -1\n[fixture]\npackage = \"1bad\"\n",
			[]string{"invalid config", `format "xml"`, "max_depth must not be negative", `fixture.package "1bad"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			for _, want := range tt.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
		if err == nil || !strings.Contains(err.Error(), "config file not found") {
			t.Errorf("err = %v", err)
		}
	})
}
