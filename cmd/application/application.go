// Package application provides the application interface for pewsync commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            s, err := app.Syncer()
//	            if err != nil {
//	                return err
//	            }
//	            report, err := s.Sync(cmd.Context(), args[0])
//	            // ... print report
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/globals"
	"github.com/churchmedia/pewsync/internal/jobs"
)

// Application provides the application interface that commands need.
// The App struct from cmd/pewsync/app implements this interface.
type Application interface {
	// Syncer returns the syncer built from the loaded configuration.
	// Extra options are applied on top and bypass the cached instance.
	Syncer(opts ...pewsync.Option) (pewsync.Syncer, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// Flags returns the global flags after command-line parsing.
	Flags() *globals.Flags

	// JobConfig returns the collection ids and mappings jobs run with.
	JobConfig() *jobs.Config

	// DryRun reports whether DRY_RUN or the config file requested a dry run.
	DryRun() bool

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
