// Package jobs provides the jobs command implementation.
package jobs

import (
	"github.com/spf13/cobra"

	"github.com/churchmedia/pewsync/cmd/application"
	"github.com/churchmedia/pewsync/internal/cmd/output"
)

// NewCommand creates the jobs command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "jobs",
		GroupID: "management",
		Short:   "List the available jobs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, err := app.Syncer()
			if err != nil {
				return err
			}
			return output.FormatJobs(cmd.OutOrStdout(), syncer.Jobs(), app.Flags())
		},
	}
}
