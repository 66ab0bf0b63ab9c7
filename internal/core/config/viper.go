package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*AnalyzeConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultAnalyzeConfig
	v.SetDefault("analyze.patterns", []string{"./..."})
	v.SetDefault("analyze.dir", ".")
	v.SetDefault("analyze.output_path", "")
	v.SetDefault("analyze.output_format", "yaml")
	v.SetDefault("analyze.cache_url", "")
	v.SetDefault("analyze.log_level", "info")
	v.SetDefault("analyze.fail_on_error", false)

	// Bind environment variables with FT_ prefix
	v.SetEnvPrefix("FT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject credentialed database URLs in config files
	// Credentials must be environment-only per 12-factor principles
	if err := validateNoCredentialsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &AnalyzeConfig{
		Patterns:     v.GetStringSlice("analyze.patterns"),
		Dir:          v.GetString("analyze.dir"),
		OutputPath:   v.GetString("analyze.output_path"),
		OutputFormat: v.GetString("analyze.output_format"),
		CacheURL:     v.GetString("analyze.cache_url"),
		LogLevel:     v.GetString("analyze.log_level"),
		FailOnError:  v.GetBool("analyze.fail_on_error"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks a configuration after flag overrides are applied.
func Validate(cfg *AnalyzeConfig) error {
	return validateConfig(cfg)
}

// validateConfig checks package patterns, output format, log level and
// cache URL scheme.
func validateConfig(cfg *AnalyzeConfig) error {
	if len(cfg.Patterns) == 0 {
		return fmt.Errorf("at least one package pattern is required")
	}
	if !outputFormats[cfg.OutputFormat] {
		return fmt.Errorf("output_format must be yaml, json or openapi, got '%s'", cfg.OutputFormat)
	}
	if !logLevels[cfg.LogLevel] {
		return fmt.Errorf("log_level must be debug, info, warn or error, got '%s'", cfg.LogLevel)
	}
	if cfg.CacheURL != "" {
		if err := ValidateCacheURL(cfg.CacheURL); err != nil {
			return err
		}
	}
	return nil
}

// validateNoCredentialsInConfig enforces environment-only credentials
// (12-factor principle).
func validateNoCredentialsInConfig(v *viper.Viper) error {
	for _, key := range []string{"cache_url", "analyze.cache_url"} {
		if v.InConfig(key) && cacheURLHasPassword(v.GetString(key)) {
			return fmt.Errorf("database credentials not allowed in config files (use FT_ANALYZE_CACHE_URL environment variable)")
		}
	}
	return nil
}
