package config

import (
	"github.com/bnema/touchicons/internal/application/usecase"
	"github.com/bnema/touchicons/internal/infrastructure/favicon"
)

// Default configuration constants
const (
	// Logging defaults
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultMaxLogAgeDays = 7 // days

	// Internals surface defaults
	defaultInternalsListen = "127.0.0.1:7480"

	dirPerm  = 0o750
	filePerm = 0o600
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			MaxAge: defaultMaxLogAgeDays,
		},
		Icons: IconsConfig{
			Capacity:             usecase.DefaultCacheCapacity,
			RefreshInterval:      usecase.DefaultRefreshInterval,
			MinFaviconSize:       usecase.DefaultMinFaviconSize,
			TouchIconSize:        usecase.DefaultTouchIconSize,
			MaxConcurrentFetches: usecase.DefaultMaxConcurrentFetches,
			FetchTimeout:         favicon.DefaultFetchTimeout,
			MaxIconBytes:         favicon.DefaultMaxIconBytes,
			UserAgent:            favicon.DefaultUserAgent,
		},
		Internals: InternalsConfig{
			Enabled: true,
			Listen:  defaultInternalsListen,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
