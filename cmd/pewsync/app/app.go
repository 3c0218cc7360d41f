// Package app provides the application context and dependency management
// for the pewsync CLI. It centralizes configuration, logging and the
// Syncer the commands run jobs with.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/globals"
	"github.com/churchmedia/pewsync/internal/jobs"
	"github.com/churchmedia/pewsync/pkg/errors"
)

// App represents the pewsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config
	flags  *globals.Flags

	// Logger
	logger *zerolog.Logger

	// Syncer instance (lazy-initialized, singleton)
	mu     sync.Mutex
	syncer pewsync.Syncer
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from the environment and the
// default config file; a --config flag reloads it before a command runs.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		flags:   &globals.Flags{},
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Flags returns the global flags with the config output format applied.
func (a *App) Flags() *globals.Flags {
	flags := *a.flags
	if flags.Output == "" {
		flags.Output = a.config.Output
	}
	return &flags
}

// JobConfig returns the job configuration.
func (a *App) JobConfig() *jobs.Config {
	return a.config.Jobs
}

// DryRun reports whether the environment or config file asked for dry runs.
func (a *App) DryRun() bool {
	return a.config.DryRun
}

// Syncer returns the syncer, creating it lazily. With options a new,
// uncached syncer is returned.
func (a *App) Syncer(opts ...pewsync.Option) (pewsync.Syncer, error) {
	if len(opts) > 0 {
		s, err := pewsync.New(append(a.syncerOptions(), opts...)...)
		if err != nil {
			return nil, errors.WrapResource("create", "syncer", "with custom options", err)
		}
		return s, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.syncer != nil {
		return a.syncer, nil
	}

	s, err := pewsync.New(a.syncerOptions()...)
	if err != nil {
		return nil, errors.WrapResource("create", "syncer", "", err)
	}
	a.syncer = s
	return s, nil
}

// syncerOptions constructs syncer options from the app configuration.
// Services whose credentials are absent stay unconfigured.
func (a *App) syncerOptions() []pewsync.Option {
	opts := []pewsync.Option{pewsync.WithJobConfig(a.config.Jobs)}

	if a.config.WebflowToken != "" {
		opts = append(opts, pewsync.WithWebflow(a.config.WebflowToken))
	}
	if a.config.PlanningCenterAppID != "" || a.config.PlanningCenterSecret != "" {
		opts = append(opts, pewsync.WithPlanningCenter(a.config.PlanningCenterAppID, a.config.PlanningCenterSecret))
	}
	if a.config.SupabaseURL != "" || a.config.SupabaseKey != "" {
		opts = append(opts, pewsync.WithSupabase(a.config.SupabaseURL, a.config.SupabaseKey))
	}
	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config.Jobs == nil {
			config.Jobs = jobs.DefaultConfig()
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithSyncer sets a custom syncer instance (useful for testing).
func WithSyncer(s pewsync.Syncer) Option {
	return func(a *App) error {
		a.syncer = s
		return nil
	}
}
