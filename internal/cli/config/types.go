// Package config loads leapschema CLI configuration.
//
// Sources are layered with koanf: built-in defaults, leapschema.yaml,
// LEAPSCHEMA_* environment variables and finally explicitly set flags.
package config

import (
	"maps"

	"github.com/leapstack-labs/leapschema/pkg/core"
)

// TargetConfig holds catalog connection details. The adapter type is never
// configured here; it always comes from the manifest.
type TargetConfig struct {
	// Database is the database file for DuckDB and SQLite, or the database
	// name for Postgres.
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// AdapterConfig converts the target into adapter connection settings.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	if t == nil {
		return core.AdapterConfig{}
	}
	return core.AdapterConfig{
		Path:     t.Database,
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  maps.Clone(t.Options),
		Params:   maps.Clone(t.Params),
	}
}

// Config holds all CLI configuration options.
type Config struct {
	Manifest        string                   `koanf:"manifest"`
	OutputDir       string                   `koanf:"output_dir"`
	Workers         int                      `koanf:"workers"`
	IncludeMetadata bool                     `koanf:"include_metadata"`
	Introspect      bool                     `koanf:"introspect"`
	PoolSize        int                      `koanf:"pool_size"`
	StatePath       string                   `koanf:"state_path"`
	NoState         bool                     `koanf:"no_state"`
	Verbose         bool                     `koanf:"verbose"`
	OutputFormat    string                   `koanf:"output"`
	LogFormat       string                   `koanf:"log_format"`
	Target          *TargetConfig            `koanf:"target"`
	Targets         map[string]*TargetConfig `koanf:"targets"`

	// ProjectRoot anchors relative paths. Not read from any source.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-"`
	// TargetName is the selected entry of Targets, if any.
	TargetName string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultManifest  = "target/manifest.json"
	DefaultOutputDir = "schemas"
	DefaultStateFile = ".leapschema/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"
)

// Default returns the configuration used when nothing else is loaded.
func Default() *Config {
	return &Config{
		Manifest:        DefaultManifest,
		OutputDir:       DefaultOutputDir,
		IncludeMetadata: true,
		Introspect:      true,
		StatePath:       DefaultStateFile,
		OutputFormat:    DefaultOutput,
		LogFormat:       DefaultLogFormat,
		Target:          &TargetConfig{},
	}
}
