// Package reconciler drives a reconciliation run: for every candidate of a
// feed it consults the identity index, resolves referenced entities,
// projects fields onto the live schema and queues the write for batched
// submission. Per-record problems end in a terminal state on the Report;
// only systemic failures stop the run.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/projector"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources"
	"github.com/churchmedia/pewsync/pkg/upsert"
)

// Driver reconciles feeds into one target collection.
// A Driver may be reused; every Run rebuilds its state from the remote side.
type Driver struct {
	target sources.Collection
	opts   *options
}

// New creates a Driver writing to target.
func New(target sources.Collection, opts ...Option) (*Driver, error) {
	if target == nil {
		return nil, &errors.ValidationError{Field: "target", Message: "cannot be nil"}
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Driver{target: target, opts: o}, nil
}

// run holds the state of a single Run.
type run struct {
	driver    *Driver
	report    *Report
	logger    *zerolog.Logger
	schema    records.SchemaFieldSet
	index     *identity.Index
	resolvers map[string]*entity.Resolver
	upserter  *upsert.Upserter
	seen      map[records.NaturalKey]struct{}
	creates   []records.PendingWrite
	updates   []records.PendingWrite
}

// Run reconciles every candidate of feed. On a systemic failure it returns
// the partial report together with the error; batches already submitted
// stay committed and buffered writes are counted as unsubmitted.
func (d *Driver) Run(ctx context.Context, feed sources.Feed) (*Report, error) {
	start := time.Now()
	ctx = logging.WithCollection(ctx, d.target.Name())
	r := &run{
		driver: d,
		report: newReport(d.target.Name(), d.opts.dryRun),
		logger: logging.FromContext(ctx),
		seen:   make(map[records.NaturalKey]struct{}),
	}
	defer r.report.finish(start)

	if feed == nil {
		return r.report, &errors.ValidationError{Field: "feed", Message: "cannot be nil"}
	}
	if err := r.prepare(ctx); err != nil {
		return r.abort(err)
	}

	r.logger.Info().
		Str("feed", feed.Name()).
		Str("policy", d.opts.policy.String()).
		Str("index", r.index.Mode().String()).
		Bool("dry_run", d.opts.dryRun).
		Msg("Starting reconciliation")

	for cand, err := range feed.Candidates(ctx) {
		if err != nil {
			return r.abort(fmt.Errorf("read feed %s: %w", feed.Name(), err))
		}
		if err := ctx.Err(); err != nil {
			return r.abort(fmt.Errorf("%w: %w", errors.ErrCanceled, err))
		}
		if err := r.process(ctx, cand); err != nil {
			return r.abort(err)
		}
	}

	if err := ctx.Err(); err != nil {
		return r.abort(fmt.Errorf("%w: %w", errors.ErrCanceled, err))
	}
	if err := r.flush(ctx, &r.creates); err != nil {
		return r.abort(err)
	}
	if err := r.flush(ctx, &r.updates); err != nil {
		return r.abort(err)
	}
	r.collectEntities()

	r.logger.Info().
		Int("created", r.report.Created).
		Int("updated", r.report.Updated).
		Int("skipped", r.report.Skipped).
		Int("failed", r.report.Failed).
		Strs("dropped_fields", r.report.DroppedFields).
		Msg("Reconciliation finished")
	return r.report, nil
}

// prepare reads the live schema, builds the identity index and seeds the
// entity resolvers. Any failure here is systemic.
func (r *run) prepare(ctx context.Context) error {
	d := r.driver
	schema, err := d.target.Schema(ctx)
	if err != nil {
		return errors.WrapResource("fetch", "schema", d.target.Name(), err)
	}
	r.schema = schema

	if d.opts.keyFn != nil {
		r.index, err = identity.Build(ctx, d.target.Scan(ctx), d.opts.keyFn)
		if err != nil {
			return errors.WrapResource("scan", "collection", d.target.Name(), err)
		}
		r.logger.Debug().Int("keys", r.index.Len()).Msg("Built identity index")
	} else {
		r.index, err = identity.NewPoint(d.target)
		if err != nil {
			return err
		}
	}

	r.resolvers = make(map[string]*entity.Resolver, len(d.opts.stores))
	for _, sc := range d.opts.stores {
		opts := append(append([]entity.Option(nil), sc.opts...), entity.WithDryRun(d.opts.dryRun))
		res, err := entity.New(sc.store, opts...)
		if err != nil {
			return err
		}
		if err := res.Load(ctx); err != nil {
			return err
		}
		r.resolvers[sc.store.Name()] = res
	}

	r.upserter, err = upsert.New(d.target,
		upsert.WithMaxBatchSize(d.opts.maxBatchSize),
		upsert.WithDryRun(d.opts.dryRun),
		upsert.WithCollection(d.target.Name()),
	)
	return err
}

// process moves one candidate to a terminal state or into a write buffer.
// It returns an error only for systemic failures.
func (r *run) process(ctx context.Context, cand records.Candidate) error {
	policy := r.driver.opts.policy
	key := cand.Key
	if key.IsZero() {
		r.report.fail("", StageIdentity, &errors.ValidationError{Field: "key", Message: "candidate has no natural key"})
		return nil
	}
	if _, dup := r.seen[key]; dup {
		r.skip(key, "duplicate in feed")
		return nil
	}

	entry, exists, err := r.index.Resolve(ctx, key)
	if err != nil {
		return fmt.Errorf("existence check for %s: %w", key, err)
	}
	if exists && entry.Pending {
		r.skip(key, "already queued")
		return nil
	}
	if !exists && cand.TargetID != "" {
		entry, exists = identity.Entry{ID: cand.TargetID}, true
	}

	switch {
	case exists && !policy.updates():
		r.skip(key, "already exists")
		return nil
	case !exists && !policy.creates():
		r.report.fail(string(key), StageIdentity, errors.NewNotFoundError(r.driver.target.Name(), string(key)))
		return nil
	}

	fields := cand.Fields.Clone()
	for _, ref := range cand.Refs {
		if exists && policy == PolicyFillEmpty {
			if current, ok := entry.Fields.Get(ref.Field); ok && !isEmpty(current) {
				continue
			}
		}
		id, err := r.resolve(ctx, ref)
		if err != nil {
			if errors.IsCanceled(err) || ctx.Err() != nil {
				return err
			}
			r.logger.Warn().Err(err).Str("key", string(key)).Msg("Reference unresolved")
			r.report.fail(string(key), StageReference, err)
			return nil
		}
		fields = fields.Set(ref.Field, id)
	}

	accepted, dropped := projector.Project(fields, r.schema)
	if len(dropped) > 0 {
		r.report.drop(dropped)
		r.logger.Debug().Str("key", string(key)).Strs("dropped", dropped).Msg("Dropped fields missing from schema")
	}

	if exists {
		changed := policy.changes(entry.Fields, accepted, r.driver.opts.comparers)
		if len(changed) == 0 {
			r.skip(key, "no changes")
			return nil
		}
		return r.enqueue(ctx, &r.updates, records.PendingWrite{Key: key, Op: records.OpUpdate, TargetID: entry.ID, Fields: changed})
	}

	if len(accepted) == 0 {
		r.report.fail(string(key), StageProject, &errors.ValidationError{Field: "fields", Message: "no field accepted by the schema"})
		return nil
	}
	r.index.MarkPending(key)
	return r.enqueue(ctx, &r.creates, records.PendingWrite{Key: key, Op: records.OpCreate, Fields: accepted})
}

func (r *run) resolve(ctx context.Context, ref records.Reference) (string, error) {
	res, ok := r.resolvers[ref.Store]
	if !ok {
		return "", &errors.EntityError{
			Store: ref.Store,
			Name:  ref.Name,
			Err:   errors.NewNotFoundError("entity store", ref.Store),
		}
	}
	resolution, err := res.ResolveOrCreate(ctx, ref.Name, ref.Attributes)
	if err != nil {
		return "", err
	}
	return resolution.ID, nil
}

func (r *run) skip(key records.NaturalKey, reason string) {
	r.report.Skipped++
	r.logger.Debug().Str("key", string(key)).Str("reason", reason).Msg("Skipped")
}

func (r *run) enqueue(ctx context.Context, buf *[]records.PendingWrite, w records.PendingWrite) error {
	r.seen[w.Key] = struct{}{}
	*buf = append(*buf, w)
	if len(*buf) >= r.driver.opts.maxBatchSize {
		return r.flush(ctx, buf)
	}
	return nil
}

// flush submits a buffer and folds the outcomes into the report. It returns
// an error when the remote became unreachable or ctx ended; writes that
// were never sent are then counted as unsubmitted.
func (r *run) flush(ctx context.Context, buf *[]records.PendingWrite) error {
	if len(*buf) == 0 {
		return nil
	}
	writes := *buf
	*buf = nil
	var systemic error
	for _, o := range r.upserter.Submit(ctx, writes) {
		if o.Unsent {
			r.report.Unsubmitted++
			if systemic == nil {
				systemic = o.Err
			}
			continue
		}
		if !o.Succeeded() {
			if systemic == nil && errors.IsRemoteUnavailable(o.Err) {
				var batchErr *errors.BatchError
				if errors.As(o.Err, &batchErr) {
					systemic = o.Err
				}
			}
			r.report.fail(string(o.Write.Key), StageWrite, o.Err)
			continue
		}
		switch o.Write.Op {
		case records.OpCreate:
			r.report.Created++
			r.index.Index(o.Write.Key, records.RemoteRecord{ID: o.ID, Fields: o.Write.Fields})
		case records.OpUpdate:
			r.report.Updated++
		}
	}
	if systemic != nil {
		return fmt.Errorf("write to %s: %w", r.driver.target.Name(), systemic)
	}
	return nil
}

// abort ends the run after a systemic failure.
func (r *run) abort(err error) (*Report, error) {
	r.report.Aborted = true
	r.report.Unsubmitted += len(r.creates) + len(r.updates)
	r.creates, r.updates = nil, nil
	r.collectEntities()
	r.logger.Error().Err(err).
		Int("created", r.report.Created).
		Int("unsubmitted", r.report.Unsubmitted).
		Msg("Reconciliation aborted")
	return r.report, err
}

func (r *run) collectEntities() {
	r.report.EntitiesCreated = 0
	r.report.Ambiguities = nil
	for _, sc := range r.driver.opts.stores {
		res, ok := r.resolvers[sc.store.Name()]
		if !ok {
			continue
		}
		r.report.EntitiesCreated += res.Created()
		r.report.Ambiguities = append(r.report.Ambiguities, res.Ambiguities()...)
	}
}
