package reconciler

import (
	"fmt"

	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/sources"
)

// options configures a Driver.
type options struct {
	keyFn        identity.KeyFunc // nil selects point lookups
	policy       Policy
	maxBatchSize int
	dryRun       bool
	stores       []storeConfig
	comparers    map[string]Comparer
}

type storeConfig struct {
	store sources.EntityStore
	opts  []entity.Option
}

func defaultOptions() *options {
	return &options{
		policy:       PolicyCreateOnly,
		maxBatchSize: constants.DefaultBatchSize,
	}
}

// Option is a function that configures a Driver.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithBulkIndex pre-scans the target and keys its records with keyFn.
func WithBulkIndex(keyFn identity.KeyFunc) Option {
	return func(o *options) error {
		if keyFn == nil {
			return &errors.ValidationError{Field: "key_func", Message: "cannot be nil"}
		}
		o.keyFn = keyFn
		return nil
	}
}

// WithPointIndex asks the target about each key instead of pre-scanning it.
// This is the default.
func WithPointIndex() Option {
	return func(o *options) error {
		o.keyFn = nil
		return nil
	}
}

// WithPolicy sets the update policy for existing keys.
func WithPolicy(p Policy) Option {
	return func(o *options) error {
		if _, err := ParsePolicy(string(p)); err != nil {
			return &errors.ValidationError{Field: "policy", Value: p, Message: err.Error()}
		}
		o.policy = p
		return nil
	}
}

// WithEntityStore registers a store that references can resolve against.
// A fresh Resolver is built for each run.
func WithEntityStore(store sources.EntityStore, opts ...entity.Option) Option {
	return func(o *options) error {
		if store == nil {
			return &errors.ValidationError{Field: "entity_store", Message: "cannot be nil"}
		}
		for _, existing := range o.stores {
			if existing.store.Name() == store.Name() {
				return &errors.ValidationError{Field: "entity_store", Value: store.Name(), Message: "registered twice"}
			}
		}
		o.stores = append(o.stores, storeConfig{store: store, opts: opts})
		return nil
	}
}

// WithMaxBatchSize sets the write batch size, between 1 and 100.
func WithMaxBatchSize(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxBatchSize {
			return &errors.ValidationError{
				Field:   "max_batch_size",
				Value:   n,
				Message: fmt.Sprintf("must be between 1 and %d", constants.MaxBatchSize),
			}
		}
		o.maxBatchSize = n
		return nil
	}
}

// WithDryRun computes the plan without remote writes or entity creates.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithComparer sets how a change to field is detected when an existing
// record is updated. Fill-empty runs ignore it.
func WithComparer(field string, eq Comparer) Option {
	return func(o *options) error {
		if field == "" || eq == nil {
			return &errors.ValidationError{Field: "comparer", Value: field, Message: "needs a field and a function"}
		}
		if o.comparers == nil {
			o.comparers = make(map[string]Comparer)
		}
		o.comparers[field] = eq
		return nil
	}
}
