// Package sync provides the sync command implementation.
package sync

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/churchmedia/pewsync/cmd/application"
	"github.com/churchmedia/pewsync/internal/cmd/output"
	"github.com/churchmedia/pewsync/internal/jobs"
	pkgsync "github.com/churchmedia/pewsync/pkg/sync"
)

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:     "sync [job...]",
		GroupID: "core",
		Short:   "Run reconciliation jobs",
		Long: `Sync runs one or more jobs. Each job reads candidate records from its
source, skips the ones already present in the target, resolves or creates
referenced entities (people, speakers), drops fields the target does not
have, and writes the rest in batches of at most 100.

Jobs: ` + strings.Join(jobs.Names(), ", ") + `

A run that loses contact with a remote stops early and reports what it
wrote; records that failed individually are listed and do not stop the run.`,
		Example: `  pewsync sync submissions               # Import new connect cards
  pewsync sync speakers --dry-run         # Preview speaker links
  pewsync sync --all --fail-fast          # Run every job in order
  pewsync sync events -o json             # Report as JSON`,
		ValidArgs: jobs.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.All && len(args) > 0 {
				return fmt.Errorf("--all cannot be combined with job names")
			}
			if !flags.All && len(args) == 0 {
				return fmt.Errorf("name a job (%s) or pass --all", strings.Join(jobs.Names(), ", "))
			}
			return Execute(cmd, app, flags, args)
		},
	}

	flags = addFlags(cmd, app.DryRun())

	return cmd
}

// Execute runs the requested jobs and prints their reports. It fails
// when a job aborted or any record failed.
func Execute(cmd *cobra.Command, app application.Application, flags *Flags, names []string) error {
	ctx := cmd.Context()
	globalFlags := app.Flags()
	out := cmd.OutOrStdout()

	syncer, err := app.Syncer()
	if err != nil {
		return err
	}

	if len(names) == 1 {
		report, err := syncer.Sync(ctx, names[0], flags.Options()...)
		if report != nil {
			if fmtErr := output.FormatReport(out, report, globalFlags); fmtErr != nil {
				return fmtErr
			}
		}
		if err != nil {
			return fmt.Errorf("job %s: %w", names[0], err)
		}
		if report != nil && report.Failed > 0 {
			return fmt.Errorf("job %s: %d records failed", names[0], report.Failed)
		}
		return nil
	}

	result := syncer.SyncAll(ctx, names, flags.Options()...)
	if err := output.FormatResult(out, result, globalFlags); err != nil {
		return err
	}
	if !globalFlags.Quiet {
		cmd.PrintErrln(result.Summary())
	}
	if result.HasFailures() {
		return fmt.Errorf("%d of %d jobs aborted or had failed records", failedJobs(result), len(result.Jobs))
	}
	return nil
}

func failedJobs(result *pkgsync.Result) int {
	n := 0
	for _, job := range result.Jobs {
		if result.Errors[job] != nil {
			n++
			continue
		}
		if report := result.Reports[job]; report != nil && report.Failed > 0 {
			n++
		}
	}
	return n
}
