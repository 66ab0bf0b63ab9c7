// Package config provides configuration management for formtrace commands.
package config

import (
	"fmt"
	"net/url"
)

// AnalyzeConfig holds configuration for the analyze command.
type AnalyzeConfig struct {
	Patterns     []string
	Dir          string
	OutputPath   string
	OutputFormat string
	CacheURL     string
	LogLevel     string
	FailOnError  bool
}

// DefaultAnalyzeConfig returns configuration with default values.
func DefaultAnalyzeConfig() *AnalyzeConfig {
	return &AnalyzeConfig{
		Patterns:     []string{"./..."},
		Dir:          ".",
		OutputPath:   "",
		OutputFormat: "yaml",
		CacheURL:     "",
		LogLevel:     "info",
		FailOnError:  false,
	}
}

// outputFormats are the accepted --format values. "yaml" and "json"
// serialize the analysis report; "openapi" emits an OpenAPI 3 components
// document instead.
var outputFormats = map[string]bool{
	"yaml":    true,
	"json":    true,
	"openapi": true,
}

// logLevels are the accepted --log-level values.
var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateCacheURL checks a cache URL before any connection is attempted.
// Supported schemes: sqlite:// (file path) and postgres:// (DSN).
func ValidateCacheURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid cache URL: %w", err)
	}
	switch u.Scheme {
	case "sqlite", "postgres":
		return nil
	case "":
		return fmt.Errorf("cache URL missing scheme (use sqlite:// or postgres://)")
	default:
		return fmt.Errorf("unsupported cache URL scheme '%s' (use sqlite:// or postgres://)", u.Scheme)
	}
}

// cacheURLHasPassword reports whether a cache URL embeds a password.
// Credentialed URLs must come from the environment, never config files.
func cacheURLHasPassword(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return false
	}
	_, has := u.User.Password()
	return has
}
