package sync

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/churchmedia/pewsync/pkg/constants"
	pkgsync "github.com/churchmedia/pewsync/pkg/sync"
)

// Flags holds the sync command flags.
type Flags struct {
	All       bool
	DryRun    bool
	BatchSize int
	PageSize  int
	PageDelay time.Duration
	Timeout   time.Duration
	FailFast  bool
}

// addFlags adds sync-specific flags to the command. dryRun is the default
// taken from DRY_RUN or the config file.
func addFlags(cmd *cobra.Command, dryRun bool) *Flags {
	flags := &Flags{}
	cmd.Flags().BoolVar(&flags.All, "all", false,
		"Run every job in order")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", dryRun,
		"Compute and report changes without writing")
	cmd.Flags().IntVar(&flags.BatchSize, "batch-size", constants.DefaultBatchSize,
		"Items per bulk write (1-100)")
	cmd.Flags().IntVar(&flags.PageSize, "page-size", constants.DefaultPageSize,
		"Items per page when reading (1-100)")
	cmd.Flags().DurationVar(&flags.PageDelay, "page-delay", constants.DefaultPageDelay,
		"Minimum pause between page requests")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0,
		"Upper bound for each job (0 for none)")
	cmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false,
		"Stop after the first aborted job")
	return flags
}

// Options converts the flags to run options.
func (f *Flags) Options() []pkgsync.Option {
	return []pkgsync.Option{
		pkgsync.WithDryRun(f.DryRun),
		pkgsync.WithMaxBatchSize(f.BatchSize),
		pkgsync.WithPageSize(f.PageSize),
		pkgsync.WithPageDelay(f.PageDelay),
		pkgsync.WithTimeout(f.Timeout),
		pkgsync.WithFailFast(f.FailFast),
	}
}
