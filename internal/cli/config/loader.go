package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes every environment variable the loader reads.
// A double underscore separates nested keys: LEAPSCHEMA_TARGET__PASSWORD.
const EnvPrefix = "LEAPSCHEMA_"

var configNames = []string{"leapschema.yaml", "leapschema.yml"}

// flags that select or drive behaviour but are not config keys.
var ignoredFlags = map[string]bool{
	"config": true,
	"target": true,
	"watch":  true,
	"help":   true,
}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a leapschema config
// file. Returns empty strings if none is found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) (root, cfgFile string) {
	dir := startDir
	for range maxUpwardSearchLevels {
		if f := configExistsIn(dir); f != "" {
			return dir, f
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// cfgFile names an explicit config file; otherwise leapschema.yaml is searched
// upward from the working directory. targetName selects an entry of the
// targets map to merge over the base target.
func Load(cfgFile, targetName string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := cwd
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %s: %w", cfgFile, err)
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	} else if root, found := findProjectRootUpward(cwd); found != "" {
		projectRoot, cfgFile = root, found
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"manifest":         DefaultManifest,
		"output_dir":       DefaultOutputDir,
		"workers":          0,
		"include_metadata": true,
		"introspect":       true,
		"pool_size":        0,
		"state_path":       DefaultStateFile,
		"no_state":         false,
		"verbose":          false,
		"output":           DefaultOutput,
		"log_format":       DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, &Error{Key: "file", Message: fmt.Sprintf("error reading %s: %v", cfgFile, err)}
		}
	}

	// 3. Environment: LEAPSCHEMA_OUTPUT_DIR -> output_dir,
	// LEAPSCHEMA_TARGET__HOST -> target.host
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set. Paths given on the command line
	// are relative to the working directory, not the project root.
	flagPaths := make(map[string]string)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || ignoredFlags[f.Name] {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "state":
				key = "state_path"
			case "no_metadata":
				v, _ := flags.GetBool(f.Name)
				return "include_metadata", !v
			case "no_introspect":
				v, _ := flags.GetBool(f.Name)
				return "introspect", !v
			}
			if key == "manifest" || key == "output_dir" || key == "state_path" {
				if v, _ := flags.GetString(f.Name); v != "" {
					abs, _ := filepath.Abs(v)
					flagPaths[key] = abs
				}
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &Error{Key: "file", Message: fmt.Sprintf("unable to decode: %v", err)}
	}
	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = cfgFile

	// 6. Resolve relative paths against the project root
	cfg.Manifest = pick(flagPaths["manifest"], resolvePathRelativeTo(cfg.Manifest, projectRoot))
	cfg.OutputDir = pick(flagPaths["output_dir"], resolvePathRelativeTo(cfg.OutputDir, projectRoot))
	cfg.StatePath = pick(flagPaths["state_path"], resolvePathRelativeTo(cfg.StatePath, projectRoot))

	// 7. Target selection
	if targetName != "" {
		override, ok := cfg.Targets[targetName]
		if !ok {
			return nil, &Error{
				Key:     "target",
				Message: fmt.Sprintf("unknown target %q (available: %s)", targetName, availableTargets(cfg.Targets)),
			}
		}
		cfg.Target = MergeTargetConfig(cfg.Target, override)
		cfg.TargetName = targetName
	}
	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	expandTargetEnvVars(cfg.Target)
	if looksLikeFile(cfg.Target.Database) {
		cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func availableTargets(targets map[string]*TargetConfig) string {
	if len(targets) == 0 {
		return "none configured"
	}
	return strings.Join(slices.Sorted(maps.Keys(targets)), ", ")
}

// looksLikeFile reports whether a target database value names a local
// database file rather than a server-side database.
func looksLikeFile(database string) bool {
	if database == "" || database == ":memory:" {
		return false
	}
	if strings.ContainsAny(database, `/\`) {
		return true
	}
	switch strings.ToLower(filepath.Ext(database)) {
	case ".duckdb", ".db", ".ddb", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable
// values. Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in target fields that
// commonly hold credentials.
func expandTargetEnvVars(t *TargetConfig) {
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.Schema = expandEnvVars(t.Schema)
	for k, v := range t.Options {
		t.Options[k] = expandEnvVars(v)
	}
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		base = &TargetConfig{}
	}
	if override == nil {
		override = &TargetConfig{}
	}

	merged := &TargetConfig{
		Database: base.Database,
		Host:     base.Host,
		Port:     base.Port,
		User:     base.User,
		Password: base.Password,
		Schema:   base.Schema,
		Options:  make(map[string]string),
		Params:   make(map[string]any),
	}
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Params, base.Params)

	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	maps.Copy(merged.Options, override.Options)
	maps.Copy(merged.Params, override.Params)

	return merged
}
