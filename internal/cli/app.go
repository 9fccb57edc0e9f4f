// Package cli wires the touchicons components for the command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/application/usecase"
	"github.com/bnema/touchicons/internal/cli/styles"
	"github.com/bnema/touchicons/internal/infrastructure/config"
	"github.com/bnema/touchicons/internal/infrastructure/favicon"
	"github.com/bnema/touchicons/internal/infrastructure/metrics"
	"github.com/bnema/touchicons/internal/infrastructure/persistence/sqlite"
	"github.com/bnema/touchicons/internal/logging"
	"github.com/bnema/touchicons/internal/profile"
)

const (
	profilesDirName = "profiles"
	iconsDirName    = "touch_icons"

	sizeScrapeTimeout = 2 * time.Second
)

// Options controls how the App is assembled.
type Options struct {
	// ConfigFile overrides the XDG config file location.
	ConfigFile string
	// LogToStderr mirrors logs to stderr (serve, --verbose).
	LogToStderr bool
	// Out receives styled command output.
	Out io.Writer
}

// App holds CLI dependencies.
type App struct {
	Config     *config.Config
	ConfigFile string
	Theme      *styles.Theme
	Metrics    *metrics.Metrics
	Registry   *profile.Registry
	Codec      *favicon.Codec

	db      *sqlite.LazyDB
	fetcher *favicon.Fetcher
	manager *config.Manager
	level   *logging.LevelVar

	prefsMu sync.Mutex
	prefs   map[string]*sqlite.PrefStore

	// Context with logger
	ctx        context.Context
	logCleanup func()
}

// NewApp loads configuration and builds every shared component. Profile
// caches are opened lazily through the registry.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	mgr, err := config.NewManager(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := NewAppFromConfig(ctx, mgr.Get(), mgr.GetConfigFile(), opts)
	if err != nil {
		return nil, err
	}
	a.manager = mgr
	return a, nil
}

// NewAppFromConfig builds the App from an already loaded configuration.
func NewAppFromConfig(ctx context.Context, cfg *config.Config, configFile string, opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	level := logging.NewLevelVar(logging.ParseLevel(cfg.Logging.Level))
	logger, logCleanup, logErr := logging.NewWithFile(
		logging.Config{Format: cfg.Logging.Format, TimeFormat: "15:04:05", LevelVar: level},
		logging.FileConfig{
			Enabled:       cfg.Logging.EnableFileLog,
			LogDir:        cfg.Logging.LogDir,
			MaxAgeDays:    cfg.Logging.MaxAge,
			WriteToStderr: opts.LogToStderr,
		},
	)
	ctx = logging.WithContext(ctx, logger)
	if logErr != nil {
		logger.Warn().Err(logErr).Msg("file logging unavailable")
	}

	a := &App{
		Config:     cfg,
		ConfigFile: configFile,
		Theme:      styles.NewTheme(opts.Out),
		Codec:      favicon.NewCodec(),
		db:         sqlite.NewLazyDB(cfg.Database.Path),
		fetcher: favicon.NewFetcher(favicon.FetcherConfig{
			Timeout:   cfg.Icons.FetchTimeout,
			MaxBytes:  cfg.Icons.MaxIconBytes,
			UserAgent: cfg.Icons.UserAgent,
		}),
		level:      level,
		prefs:      make(map[string]*sqlite.PrefStore),
		ctx:        ctx,
		logCleanup: logCleanup,
	}
	a.Registry = profile.NewRegistry(a.openProfile)

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		if err := a.Metrics.RegisterCacheSize(a.cacheSizes); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("register cache size metric: %w", err)
		}
	}

	logger.Debug().
		Str("config", configFile).
		Str("db_path", cfg.Database.Path).
		Str("storage_dir", cfg.Icons.StorageDir).
		Msg("app initialized")

	return a, nil
}

// Ctx returns the application context with logger.
func (a *App) Ctx() context.Context {
	return a.ctx
}

// ProfileDir returns the icon directory of a profile.
func (a *App) ProfileDir(profileID string) string {
	return filepath.Join(a.Config.Icons.StorageDir, profilesDirName, profileID, iconsDirName)
}

// Cache returns the icon cache of a profile, opening it on first use.
func (a *App) Cache(ctx context.Context, profileID string) (*usecase.IconStorage, error) {
	return a.Registry.Get(ctx, profileID)
}

// WatchConfig follows edits of the config file until the app closes.
// logging.level applies immediately; other changes are logged and wait for a
// restart.
func (a *App) WatchConfig() error {
	if a.manager == nil {
		return nil
	}
	a.manager.OnConfigChange(a.applyConfigChange)
	return a.manager.Watch()
}

func (a *App) applyConfigChange(c config.Change) {
	log := logging.FromContext(a.ctx)
	if c.LevelChanged() {
		a.level.Set(logging.ParseLevel(c.New.Logging.Level))
		log.Info().Str("level", c.New.Logging.Level).Msg("log level changed")
	}
	if sections := c.RestartRequired(); len(sections) > 0 {
		log.Warn().Strs("sections", sections).Msg("config changed, restart to apply")
	}
}

// Close shuts every profile cache down, then closes the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Registry != nil {
		if err := a.Registry.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close profiles: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.logCleanup != nil {
		a.logCleanup()
	}
	return errors.Join(errs...)
}

// openProfile is the registry factory: one pref store, blob store and
// cache per profile, sharing the database, fetcher and codec.
func (a *App) openProfile(ctx context.Context, profileID string) (*profile.Cache, error) {
	prefs := sqlite.NewPrefStore(ctx, a.db, profileID)
	blobs := favicon.NewBlobStore(a.ProfileDir(profileID))

	observers := []port.IconObserver{usecase.NewIconEventLogger(ctx)}
	if a.Metrics != nil {
		observers = append(observers, a.Metrics.Observer(profileID))
	}

	icons := a.Config.Icons
	storage, err := usecase.NewIconStorage(ctx, prefs, blobs, a.fetcher, a.Codec, usecase.IconStorageOptions{
		Capacity:             icons.Capacity,
		RefreshInterval:      icons.RefreshInterval,
		TouchIconSize:        icons.TouchIconSize,
		MinFaviconSize:       icons.MinFaviconSize,
		MaxConcurrentFetches: icons.MaxConcurrentFetches,
		Observers:            observers,
	})
	if err != nil {
		_ = prefs.Close(ctx)
		return nil, err
	}

	a.prefsMu.Lock()
	a.prefs[profileID] = prefs
	a.prefsMu.Unlock()

	release := func(ctx context.Context) error {
		a.prefsMu.Lock()
		delete(a.prefs, profileID)
		a.prefsMu.Unlock()
		return prefs.Close(ctx)
	}
	return &profile.Cache{Storage: storage, Release: release}, nil
}

func (a *App) cacheSizes() map[string]int {
	ctx, cancel := context.WithTimeout(a.ctx, sizeScrapeTimeout)
	defer cancel()
	return a.Registry.Sizes(ctx)
}
