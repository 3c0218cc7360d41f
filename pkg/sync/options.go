// Package sync provides run options and multi-job results for pewsync runs.
package sync

import (
	"fmt"
	"time"

	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/reconciler"
)

// Options controls a reconciliation run.
type Options struct {
	// Write control
	DryRun       bool // Compute the plan without remote writes
	MaxBatchSize int  // Items per bulk write call, 1..100

	// Read control
	PageSize  int           // Items per page request, 1..100
	PageDelay time.Duration // Minimum spacing between page fetches

	// Orchestration control
	Timeout  time.Duration // Upper bound for one job, zero means none
	FailFast bool          // Stop a multi-job run after the first aborted job
}

// Apply applies the given options to the run options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Defaults returns the default run options.
func Defaults() *Options {
	return &Options{
		DryRun:       false,
		MaxBatchSize: constants.DefaultBatchSize,
		PageSize:     constants.DefaultPageSize,
		PageDelay:    constants.DefaultPageDelay,
		Timeout:      0,
		FailFast:     false,
	}
}

// Option is a function that configures run Options.
type Option func(*Options)

// Validate checks if the run options are valid.
func (o *Options) Validate() error {
	if o.MaxBatchSize < 1 || o.MaxBatchSize > constants.MaxBatchSize {
		return &errors.ValidationError{
			Field:   "MaxBatchSize",
			Value:   o.MaxBatchSize,
			Message: fmt.Sprintf("must be between 1 and %d", constants.MaxBatchSize),
		}
	}
	if o.PageSize < 1 || o.PageSize > constants.MaxPageSize {
		return &errors.ValidationError{
			Field:   "PageSize",
			Value:   o.PageSize,
			Message: fmt.Sprintf("must be between 1 and %d", constants.MaxPageSize),
		}
	}
	if o.PageDelay < 0 {
		return &errors.ValidationError{
			Field:   "PageDelay",
			Value:   o.PageDelay,
			Message: "page delay must be non-negative",
		}
	}
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	return nil
}

// ReconcilerOptions converts run options to driver options.
func (o *Options) ReconcilerOptions() []reconciler.Option {
	return []reconciler.Option{
		reconciler.WithDryRun(o.DryRun),
		reconciler.WithMaxBatchSize(o.MaxBatchSize),
	}
}

// PaginateOptions converts run options to paginator options.
func (o *Options) PaginateOptions() []paginate.Option {
	return []paginate.Option{paginate.WithDelay(o.PageDelay)}
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithMaxBatchSize configures the write batch size.
func WithMaxBatchSize(n int) Option {
	return func(opts *Options) {
		opts.MaxBatchSize = n
	}
}

// WithPageSize configures the read page size.
func WithPageSize(n int) Option {
	return func(opts *Options) {
		opts.PageSize = n
	}
}

// WithPageDelay configures the pause between page fetches.
func WithPageDelay(d time.Duration) Option {
	return func(opts *Options) {
		opts.PageDelay = d
	}
}

// WithTimeout configures the per-job timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithFailFast configures fail-fast behavior for multi-job runs.
func WithFailFast(failFast bool) Option {
	return func(opts *Options) {
		opts.FailFast = failFast
	}
}
