package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/bnema/touchicons/internal/logging"
)

// Change is one successful reload of the config file.
type Change struct {
	Old *Config
	New *Config
}

// Sections lists the top-level sections whose values differ.
func (c Change) Sections() []string {
	var sections []string
	if c.Old.Logging != c.New.Logging {
		sections = append(sections, "logging")
	}
	if c.Old.Database != c.New.Database {
		sections = append(sections, "database")
	}
	if c.Old.Icons != c.New.Icons {
		sections = append(sections, "icons")
	}
	if c.Old.Internals != c.New.Internals {
		sections = append(sections, "internals")
	}
	if c.Old.Metrics != c.New.Metrics {
		sections = append(sections, "metrics")
	}
	return sections
}

// LevelChanged reports whether logging.level differs.
func (c Change) LevelChanged() bool {
	return c.Old.Logging.Level != c.New.Logging.Level
}

// RestartRequired lists the changed sections that only take effect when
// caches are reopened. Everything except logging.level qualifies.
func (c Change) RestartRequired() []string {
	var sections []string
	for _, s := range c.Sections() {
		if s == "logging" {
			old, cur := c.Old.Logging, c.New.Logging
			old.Level, cur.Level = "", ""
			if old == cur {
				continue
			}
		}
		sections = append(sections, s)
	}
	return sections
}

// Watch reloads the config file whenever it changes on disk. A file that
// fails to parse or validate is logged and the previous config stays.
// Callbacks only run for reloads that changed at least one value.
func (m *Manager) Watch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		return nil
	}

	m.viper.OnConfigChange(func(e fsnotify.Event) {
		log := logging.NewFromEnv()
		log.Debug().Str("op", e.Op.String()).Str("file", e.Name).Msg("config file event")

		m.mu.Lock()
		old := m.config
		if err := m.reload(); err != nil {
			m.mu.Unlock()
			log.Warn().Err(err).Msg("config reload rejected, keeping previous settings")
			return
		}
		change := Change{Old: copyConfig(old), New: copyConfig(m.config)}
		callbacks := append([]func(Change){}, m.callbacks...)
		m.mu.Unlock()

		if len(change.Sections()) == 0 {
			return
		}
		for _, fn := range callbacks {
			fn(change)
		}
	})
	m.viper.WatchConfig()

	m.watching = true
	return nil
}

// OnConfigChange registers fn to run after each effective reload.
func (m *Manager) OnConfigChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, fn)
}

// reload re-reads the config file. Must be called with m.mu held.
func (m *Manager) reload() error {
	if err := m.viper.ReadInConfig(); err != nil {
		return err
	}

	cfg, err := m.buildConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

func copyConfig(cfg *Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	c := *cfg
	return &c
}
