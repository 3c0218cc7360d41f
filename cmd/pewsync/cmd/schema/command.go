// Package schema provides the schema command implementation.
package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/churchmedia/pewsync/cmd/application"
	"github.com/churchmedia/pewsync/internal/cmd/output"
)

// NewCommand creates the schema command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var slugsOnly bool

	cmd := &cobra.Command{
		Use:     "schema [collection-id]",
		GroupID: "management",
		Short:   "Show the fields of a Webflow collection",
		Long: `Schema prints the live fields of a Webflow CMS collection. Jobs only
write fields listed here; anything else is dropped and reported.

Without an argument the configured sermons collection is shown.`,
		Example: `  pewsync schema                          # Sermons collection
  pewsync schema 6671ed65cb61325256e73270 --slugs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID := app.JobConfig().Webflow.SermonsCollection
			if len(args) == 1 {
				collectionID = args[0]
			}

			syncer, err := app.Syncer()
			if err != nil {
				return err
			}
			schema, err := syncer.Schema(cmd.Context(), collectionID)
			if err != nil {
				return err
			}

			if slugsOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(schema.Slugs(), "\n"))
				return err
			}
			return output.FormatSchema(cmd.OutOrStdout(), schema, app.Flags())
		},
	}

	cmd.Flags().BoolVar(&slugsOnly, "slugs", false, "Print only the field slugs, one per line")

	return cmd
}
