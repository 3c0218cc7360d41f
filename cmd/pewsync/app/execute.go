package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/churchmedia/pewsync/internal/cmd/globals"
	"github.com/churchmedia/pewsync/pkg/logging"
)

// Execute runs the pewsync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pewsync",
		Short:   "Church media and attendance sync",
		Version: a.version,
		Long: `pewsync keeps the church website and database in step with
Planning Center, the sermon media pipeline and the Webflow CMS.

Each job reads candidate records from a source, matches them against the
records already in the target by natural key, and creates or updates only
what changed. Re-running a job is safe: existing records are skipped.

Credentials are read from the environment (or .env / .env.local):
WEBFLOW_TOKEN, PCO_APP_ID, PCO_SECRET, SUPABASE_URL and
SUPABASE_SERVICE_ROLE_KEY.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	a.flags = globals.AddFlags(rootCmd)

	rootCmd.SetVersionTemplate("pewsync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. It reloads the config
// when --config names a file, applies the global flags and installs the
// logger on the command context.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if a.flags.Config != "" && a.flags.Config != a.config.ConfigFile {
		config, err := LoadConfig(a.flags.Config)
		if err != nil {
			return err
		}
		a.config = config
		a.mu.Lock()
		a.syncer = nil
		a.mu.Unlock()
	}

	a.config.UpdateFromFlags(a.flags.Verbose, a.flags.Quiet, a.flags.NoColor, a.flags.Output, a.flags.LogLevel)

	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.CreateSyncCommand())

	// Management commands
	rootCmd.AddCommand(a.CreateJobsCommand())
	rootCmd.AddCommand(a.CreateSchemaCommand())

	// Utility commands
	rootCmd.AddCommand(a.CreateVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
