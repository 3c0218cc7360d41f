// Package upsert submits pending writes to a remote collection in bounded,
// single-op batches. A failed batch only fails its own writes; the
// remaining batches are still submitted unless the remote is unavailable
// or the context is done.
package upsert

import (
	"context"
	"fmt"

	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/records"
)

// Writer issues one bulk write call and reports one result per item.
type Writer interface {
	Write(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error)

// Write calls f.
func (f WriterFunc) Write(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error) {
	return f(ctx, op, batch)
}

// Outcome is the result of one pending write.
type Outcome struct {
	Write  records.PendingWrite
	Batch  int // 1-based batch number across the Upserter's lifetime
	ID     string
	Err    error
	DryRun bool
	// Unsent marks a write that never reached the remote.
	Unsent bool
}

// Succeeded reports whether the write went through (or would have, in dry run).
func (o Outcome) Succeeded() bool { return o.Err == nil }

type options struct {
	maxBatchSize int
	dryRun       bool
	collection   string
}

// Option configures an Upserter.
type Option func(*options) error

// WithMaxBatchSize sets the largest batch size, between 1 and 100.
func WithMaxBatchSize(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxBatchSize {
			return errors.NewValidationError("max_batch_size", n, fmt.Sprintf("must be between 1 and %d", constants.MaxBatchSize))
		}
		o.maxBatchSize = n
		return nil
	}
}

// WithDryRun reports every write as succeeded without calling the writer.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithCollection names the target in errors and logs.
func WithCollection(name string) Option {
	return func(o *options) error {
		o.collection = name
		return nil
	}
}

// Upserter partitions and submits pending writes.
type Upserter struct {
	writer  Writer
	opts    options
	batches int
}

// New creates an Upserter writing through w.
func New(w Writer, opts ...Option) (*Upserter, error) {
	if w == nil {
		return nil, errors.NewValidationError("writer", nil, "cannot be nil")
	}
	o := options{maxBatchSize: constants.DefaultBatchSize, collection: "collection"}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Upserter{writer: w, opts: o}, nil
}

// Batches returns how many batches have been formed so far.
func (u *Upserter) Batches() int { return u.batches }

// Submit writes every pending write at most once and returns one Outcome
// per write, in input order. A failed batch does not stop the others,
// except when its error is ErrRemoteUnavailable: the batches after it are
// then reported Unsent with that error. Once ctx is done, the batches not
// yet sent are reported Unsent with ErrCanceled.
func (u *Upserter) Submit(ctx context.Context, writes []records.PendingWrite) []Outcome {
	outcomes := make([]Outcome, 0, len(writes))
	var halt error
	for _, batch := range partition(writes, u.opts.maxBatchSize) {
		u.batches++
		if halt != nil {
			outcomes = append(outcomes, u.unsent(u.batches, batch, halt)...)
			continue
		}
		out := u.submitBatch(ctx, u.batches, batch)
		if len(out) > 0 && batchFailed(out) && errors.IsRemoteUnavailable(out[0].Err) {
			halt = fmt.Errorf("%w: not sent after batch %d failed", errors.ErrRemoteUnavailable, u.batches)
		}
		outcomes = append(outcomes, out...)
	}
	return outcomes
}

// batchFailed reports whether the whole batch failed with one batch error.
func batchFailed(out []Outcome) bool {
	var batchErr *errors.BatchError
	return errors.As(out[0].Err, &batchErr)
}

func (u *Upserter) unsent(n int, batch []records.PendingWrite, err error) []Outcome {
	batchErr := &errors.BatchError{Collection: u.opts.collection, Batch: n, Size: len(batch), Err: err}
	out := make([]Outcome, len(batch))
	for i, w := range batch {
		out[i] = Outcome{Write: w, Batch: n, Err: batchErr, Unsent: true}
	}
	return out
}

func (u *Upserter) submitBatch(ctx context.Context, n int, batch []records.PendingWrite) []Outcome {
	logger := logging.FromContext(ctx)
	op := batch[0].Op
	out := make([]Outcome, len(batch))

	if u.opts.dryRun {
		for i, w := range batch {
			out[i] = Outcome{Write: w, Batch: n, ID: dryRunID(w), DryRun: true}
		}
		logger.Info().Int("batch", n).Int("items", len(batch)).Str("op", op.String()).Msg("Dry run: batch not sent")
		return out
	}

	fail := func(err error) []Outcome {
		batchErr := &errors.BatchError{Collection: u.opts.collection, Batch: n, Size: len(batch), Err: err}
		for i, w := range batch {
			out[i] = Outcome{Write: w, Batch: n, Err: batchErr}
		}
		return out
	}

	if err := ctx.Err(); err != nil {
		return u.unsent(n, batch, fmt.Errorf("%w: %w", errors.ErrCanceled, err))
	}

	results, err := u.writer.Write(ctx, op, batch)
	if err == nil && len(results) != len(batch) {
		err = fmt.Errorf("writer returned %d results for %d items", len(results), len(batch))
	}
	if err != nil {
		logger.Error().Err(err).Int("batch", n).Int("items", len(batch)).Str("op", op.String()).Msg("Batch failed")
		return fail(err)
	}

	failed := 0
	for i, w := range batch {
		out[i] = Outcome{Write: w, Batch: n, ID: results[i].ID, Err: results[i].Err}
		if results[i].Err != nil {
			failed++
		}
	}
	logger.Debug().Int("batch", n).Int("items", len(batch)).Int("failed", failed).Str("op", op.String()).Msg("Batch submitted")
	return out
}

// partition splits writes into contiguous runs of one op and at most max items.
func partition(writes []records.PendingWrite, maxSize int) [][]records.PendingWrite {
	var batches [][]records.PendingWrite
	start := 0
	for i := 1; i <= len(writes); i++ {
		if i == len(writes) || i-start == maxSize || writes[i].Op != writes[start].Op {
			batches = append(batches, writes[start:i])
			start = i
		}
	}
	return batches
}

func dryRunID(w records.PendingWrite) string {
	if w.Op == records.OpUpdate && w.TargetID != "" {
		return w.TargetID
	}
	return constants.DryRunIDPrefix + string(w.Key)
}
