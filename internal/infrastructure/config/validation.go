package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	minRefreshInterval = time.Minute
	maxTouchIconSize   = 1024
	maxCacheCapacity   = 10000
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	validationErrors = append(validationErrors, validateLogging(config)...)
	validationErrors = append(validationErrors, validateIcons(config)...)
	validationErrors = append(validationErrors, validateInternals(config)...)

	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}

	return nil
}

func validateLogging(config *Config) []string {
	var validationErrors []string
	if _, err := zerolog.ParseLevel(config.Logging.Level); err != nil || config.Logging.Level == "" {
		validationErrors = append(validationErrors,
			fmt.Sprintf("logging.level must be one of trace, debug, info, warn, error (got %q)", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "json", "console":
	default:
		validationErrors = append(validationErrors,
			fmt.Sprintf("logging.format must be json or console (got %q)", config.Logging.Format))
	}
	if config.Logging.MaxAge < 0 {
		validationErrors = append(validationErrors, "logging.max_age must be non-negative")
	}
	return validationErrors
}

func validateIcons(config *Config) []string {
	var validationErrors []string
	icons := config.Icons
	if icons.Capacity < 1 || icons.Capacity > maxCacheCapacity {
		validationErrors = append(validationErrors,
			fmt.Sprintf("icons.capacity must be between 1 and %d", maxCacheCapacity))
	}
	if icons.RefreshInterval < minRefreshInterval {
		validationErrors = append(validationErrors,
			fmt.Sprintf("icons.refresh_interval must be at least %s", minRefreshInterval))
	}
	if icons.TouchIconSize < 1 || icons.TouchIconSize > maxTouchIconSize {
		validationErrors = append(validationErrors,
			fmt.Sprintf("icons.touch_icon_size must be between 1 and %d", maxTouchIconSize))
	}
	if icons.MinFaviconSize < 0 {
		validationErrors = append(validationErrors, "icons.min_favicon_size must be non-negative")
	}
	if icons.MaxConcurrentFetches < 1 {
		validationErrors = append(validationErrors, "icons.max_concurrent_fetches must be at least 1")
	}
	if icons.FetchTimeout <= 0 {
		validationErrors = append(validationErrors, "icons.fetch_timeout must be positive")
	}
	if icons.MaxIconBytes <= 0 {
		validationErrors = append(validationErrors, "icons.max_icon_bytes must be positive")
	}
	return validationErrors
}

func validateInternals(config *Config) []string {
	if !config.Internals.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(config.Internals.Listen); err != nil {
		return []string{fmt.Sprintf("internals.listen must be host:port (got %q)", config.Internals.Listen)}
	}
	return nil
}
