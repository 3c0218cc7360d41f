package app

import (
	"github.com/spf13/cobra"

	"github.com/churchmedia/pewsync/cmd/pewsync/cmd/jobs"
	"github.com/churchmedia/pewsync/cmd/pewsync/cmd/schema"
	"github.com/churchmedia/pewsync/cmd/pewsync/cmd/sync"
)

// CreateSyncCommand creates the sync command with app dependencies.
func (a *App) CreateSyncCommand() *cobra.Command {
	return sync.NewCommand(a)
}

// CreateJobsCommand creates the jobs command with app dependencies.
func (a *App) CreateJobsCommand() *cobra.Command {
	return jobs.NewCommand(a)
}

// CreateSchemaCommand creates the schema command with app dependencies.
func (a *App) CreateSchemaCommand() *cobra.Command {
	return schema.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("pewsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
