package config

import "time"

// Config represents the complete touchicons configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging" toml:"logging"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	// Icons tunes the per-profile icon cache and its fetch pipeline.
	Icons     IconsConfig     `mapstructure:"icons" toml:"icons"`
	Internals InternalsConfig `mapstructure:"internals" toml:"internals"`
	Metrics   MetricsConfig   `mapstructure:"metrics" toml:"metrics"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
	MaxAge int    `mapstructure:"max_age" toml:"max_age"`

	// File output configuration
	LogDir        string `mapstructure:"log_dir" toml:"log_dir"`
	EnableFileLog bool   `mapstructure:"enable_file_log" toml:"enable_file_log"`
}

// DatabaseConfig holds the preference database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// IconsConfig holds icon cache settings.
type IconsConfig struct {
	// StorageDir is the root under which each profile gets its own icon directory.
	// Empty means the XDG data directory.
	StorageDir      string        `mapstructure:"storage_dir" toml:"storage_dir"`
	Capacity        int           `mapstructure:"capacity" toml:"capacity"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" toml:"refresh_interval"`
	MinFaviconSize  int           `mapstructure:"min_favicon_size" toml:"min_favicon_size"`
	TouchIconSize   int           `mapstructure:"touch_icon_size" toml:"touch_icon_size"`

	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches" toml:"max_concurrent_fetches"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout" toml:"fetch_timeout"`
	MaxIconBytes         int64         `mapstructure:"max_icon_bytes" toml:"max_icon_bytes"`
	UserAgent            string        `mapstructure:"user_agent" toml:"user_agent"`
}

// InternalsConfig controls the diagnostics HTTP surface started by `serve`.
type InternalsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Listen  string `mapstructure:"listen" toml:"listen"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}
