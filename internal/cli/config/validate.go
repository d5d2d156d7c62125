package config

import (
	"fmt"
	"slices"
	"strings"
)

// Error reports an invalid configuration value.
type Error struct {
	Key     string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Message)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return &Error{Key: "output_dir", Message: "must not be empty"}
	}
	if c.Workers < 0 {
		return &Error{Key: "workers", Message: fmt.Sprintf("must be zero or positive, got %d", c.Workers)}
	}
	if c.PoolSize < 0 {
		return &Error{Key: "pool_size", Message: fmt.Sprintf("must be zero or positive, got %d", c.PoolSize)}
	}
	if !slices.Contains([]string{"auto", "text", "markdown", "md", "json"}, strings.ToLower(c.OutputFormat)) {
		return &Error{Key: "output", Message: fmt.Sprintf("unknown format %q (valid: auto, text, markdown, json)", c.OutputFormat)}
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		return &Error{Key: "log_format", Message: fmt.Sprintf("unknown format %q (valid: text, json)", c.LogFormat)}
	}
	if c.Target != nil && (c.Target.Port < 0 || c.Target.Port > 65535) {
		return &Error{Key: "target.port", Message: fmt.Sprintf("out of range: %d", c.Target.Port)}
	}
	return nil
}
