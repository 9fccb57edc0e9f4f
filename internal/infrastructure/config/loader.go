// Package config loads the touchicons TOML configuration through Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/bnema/touchicons/internal/logging"
)

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	mu        sync.RWMutex
	callbacks []func(Change)
	watching  bool
}

// NewManager creates a new configuration manager. An empty configFile
// searches the XDG config directory and the working directory.
func NewManager(configFile string) (*Manager, error) {
	v := viper.New()

	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		configDir, err := GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config directory: %w\nCheck XDG_CONFIG_HOME environment variable or HOME directory", err)
		}
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	// TOUCHICONS_ICONS_CAPACITY, TOUCHICONS_DATABASE_PATH, ...
	v.SetEnvPrefix("TOUCHICONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short names shared with logging.NewFromEnv.
	if err := v.BindEnv("logging.level", "TOUCHICONS_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind TOUCHICONS_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "TOUCHICONS_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("failed to bind TOUCHICONS_LOG_FORMAT: %w", err)
	}

	return &Manager{
		viper: v,
	}, nil
}

// Load loads the configuration from file and environment variables.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	m.setDefaults()

	if err := m.readConfigFile(); err != nil {
		return err
	}

	config, err := m.buildConfig()
	if err != nil {
		return err
	}
	m.config = config
	return nil
}

// buildConfig unmarshals, fills derived paths, normalizes and validates.
func (m *Manager) buildConfig() (*Config, error) {
	config, err := m.unmarshalConfig()
	if err != nil {
		return nil, err
	}
	if err := ensurePaths(config); err != nil {
		return nil, err
	}
	normalizeConfig(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func (m *Manager) readConfigFile() error {
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var configFileNotFoundError viper.ConfigFileNotFoundError
	if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
		configFile := m.viper.ConfigFileUsed()
		if configFile == "" {
			configFile, _ = GetConfigFile()
		}
		return fmt.Errorf("failed to read config file at %s: %w\nCheck the file format (must be valid TOML) and permissions", configFile, err)
	}

	if createErr := m.createDefaultConfig(); createErr != nil {
		configDir, _ := GetConfigDir()
		return fmt.Errorf(
			"failed to create default config at %s: %w\nTry creating the directory manually or check permissions",
			configDir,
			createErr,
		)
	}
	if rereadErr := m.viper.ReadInConfig(); rereadErr != nil {
		return fmt.Errorf(
			"failed to read newly created config file: %w\nThe config file was created but couldn't be read. Please check the file format",
			rereadErr,
		)
	}
	return nil
}

func (m *Manager) unmarshalConfig() (*Config, error) {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf(
			"failed to parse config file at %s: %w\nCheck for syntax errors, invalid values, or type mismatches",
			m.viper.ConfigFileUsed(),
			err,
		)
	}
	return config, nil
}

func ensurePaths(config *Config) error {
	if config.Database.Path == "" {
		dbPath, err := GetDatabaseFile()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}
		config.Database.Path = dbPath
	}
	if config.Icons.StorageDir == "" {
		dataDir, err := GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}
		config.Icons.StorageDir = dataDir
	}
	if config.Logging.LogDir == "" {
		logDir, err := GetLogDir()
		if err != nil {
			return fmt.Errorf("failed to get log directory: %w", err)
		}
		config.Logging.LogDir = logDir
	}
	return nil
}

func normalizeConfig(config *Config) {
	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	switch format := strings.ToLower(strings.TrimSpace(config.Logging.Format)); format {
	case "", "text":
		config.Logging.Format = defaultLogFormat
	default:
		config.Logging.Format = format
	}

	config.Database.Path = expandHome(config.Database.Path)
	config.Icons.StorageDir = expandHome(config.Icons.StorageDir)
	config.Logging.LogDir = expandHome(config.Logging.LogDir)

	config.Icons.UserAgent = strings.TrimSpace(config.Icons.UserAgent)
	config.Internals.Listen = strings.TrimSpace(config.Internals.Listen)
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyConfig(m.config)
}

// GetConfigFile returns the path to the configuration file being used.
func (m *Manager) GetConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// createDefaultConfig writes the defaults to the config file location.
func (m *Manager) createDefaultConfig() error {
	configFile := m.viper.ConfigFileUsed()
	if configFile == "" {
		var err error
		if configFile, err = GetConfigFile(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configFile), dirPerm); err != nil {
		return err
	}
	if err := WriteConfigOrdered(DefaultConfig(), configFile); err != nil {
		return err
	}
	m.viper.SetConfigFile(configFile)

	logger := logging.NewFromEnv()
	logger.Info().Str("file", configFile).Msg("created default configuration file")
	return nil
}

// setDefaults sets default configuration values in Viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.setLoggingDefaults(defaults)
	m.setIconsDefaults(defaults)
	m.setServerDefaults(defaults)
}

func (m *Manager) setLoggingDefaults(defaults *Config) {
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	m.viper.SetDefault("logging.log_dir", defaults.Logging.LogDir)
	m.viper.SetDefault("logging.enable_file_log", defaults.Logging.EnableFileLog)
	m.viper.SetDefault("database.path", defaults.Database.Path)
}

func (m *Manager) setIconsDefaults(defaults *Config) {
	m.viper.SetDefault("icons.storage_dir", defaults.Icons.StorageDir)
	m.viper.SetDefault("icons.capacity", defaults.Icons.Capacity)
	m.viper.SetDefault("icons.refresh_interval", defaults.Icons.RefreshInterval)
	m.viper.SetDefault("icons.min_favicon_size", defaults.Icons.MinFaviconSize)
	m.viper.SetDefault("icons.touch_icon_size", defaults.Icons.TouchIconSize)
	m.viper.SetDefault("icons.max_concurrent_fetches", defaults.Icons.MaxConcurrentFetches)
	m.viper.SetDefault("icons.fetch_timeout", defaults.Icons.FetchTimeout)
	m.viper.SetDefault("icons.max_icon_bytes", defaults.Icons.MaxIconBytes)
	m.viper.SetDefault("icons.user_agent", defaults.Icons.UserAgent)
}

func (m *Manager) setServerDefaults(defaults *Config) {
	m.viper.SetDefault("internals.enabled", defaults.Internals.Enabled)
	m.viper.SetDefault("internals.listen", defaults.Internals.Listen)
	m.viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
}
