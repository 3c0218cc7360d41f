// Package entity resolves referenced entities by display name, creating
// them in their store when absent. A Resolver is run-scoped: its cache is
// seeded from a full scan and never outlives the run.
package entity

import (
	"context"

	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources"
)

// Resolution is the outcome of ResolveOrCreate.
type Resolution struct {
	ID      string
	Created bool
}

// Ambiguity records two display names that normalize to the same key but
// differ textually. The cached entity is used; an operator should confirm
// they are the same entity.
type Ambiguity struct {
	Store    string `json:"store" yaml:"store"`
	Key      string `json:"key" yaml:"key"`
	Existing string `json:"existing" yaml:"existing"`
	Incoming string `json:"incoming" yaml:"incoming"`
}

type cached struct {
	id   string
	name string
}

type options struct {
	placeholder string
	dryRun      bool
}

// Option configures a Resolver.
type Option func(*options) error

// WithPlaceholder sets the slug used when a name slugifies to nothing.
func WithPlaceholder(slug string) Option {
	return func(o *options) error {
		if Slugify(slug, "") != slug {
			return errors.NewValidationError("placeholder", slug, "must already be a valid slug")
		}
		o.placeholder = slug
		return nil
	}
}

// WithDryRun makes misses produce deterministic placeholder ids instead of
// create calls.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// Resolver maps display names to entity ids for one store.
// It is not safe for concurrent use.
type Resolver struct {
	store       sources.EntityStore
	opts        options
	cache       map[records.NaturalKey]cached
	loaded      bool
	created     int
	ambiguities []Ambiguity
	flagged     map[string]struct{}
}

// New creates a Resolver over store.
func New(store sources.EntityStore, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.NewValidationError("store", nil, "cannot be nil")
	}
	o := options{placeholder: constants.DefaultEntitySlug}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Resolver{
		store:   store,
		opts:    o,
		cache:   make(map[records.NaturalKey]cached),
		flagged: make(map[string]struct{}),
	}, nil
}

// Store returns the name of the underlying store.
func (r *Resolver) Store() string { return r.store.Name() }

// Created returns how many entities were created (or would be, in dry run).
func (r *Resolver) Created() int { return r.created }

// Ambiguities returns the name collisions seen so far.
func (r *Resolver) Ambiguities() []Ambiguity {
	return append([]Ambiguity(nil), r.ambiguities...)
}

// Load seeds the cache from a full scan of the store. When two remote
// entities share a key the first one wins and the collision is flagged.
func (r *Resolver) Load(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	n := 0
	for rec, err := range r.store.Scan(ctx) {
		if err != nil {
			return errors.WrapResource("load", "entities", r.store.Name(), err)
		}
		name := records.NormalizeName(r.store.DisplayName(rec))
		if name == "" || rec.ID == "" {
			continue
		}
		key := records.NameKey(name)
		if existing, ok := r.cache[key]; ok {
			r.flag(ctx, key, existing.name, name)
			continue
		}
		r.cache[key] = cached{id: rec.ID, name: name}
		n++
	}
	r.loaded = true
	logger.Debug().Str("store", r.store.Name()).Int("entities", n).Msg("Loaded entity cache")
	return nil
}

// ResolveOrCreate returns the id of the entity named displayName, creating
// it with attrs on a miss. At most one create is issued per normalized name.
func (r *Resolver) ResolveOrCreate(ctx context.Context, displayName string, attrs records.Fields) (Resolution, error) {
	if !r.loaded {
		if err := r.Load(ctx); err != nil {
			return Resolution{}, err
		}
	}

	name := records.NormalizeName(displayName)
	if name == "" {
		return Resolution{}, &errors.EntityError{
			Store: r.store.Name(),
			Name:  displayName,
			Err:   errors.NewValidationError("name", displayName, "display name is empty"),
		}
	}

	key := records.NameKey(name)
	if hit, ok := r.cache[key]; ok {
		if hit.name != name {
			r.flag(ctx, key, hit.name, name)
		}
		return Resolution{ID: hit.id}, nil
	}

	slug := Slugify(name, r.opts.placeholder)
	if r.opts.dryRun {
		id := constants.DryRunIDPrefix + slug
		r.cache[key] = cached{id: id, name: name}
		r.created++
		return Resolution{ID: id, Created: true}, nil
	}

	id, err := r.store.Create(ctx, records.EntityDraft{Name: name, Slug: slug, Fields: attrs})
	if err != nil {
		return Resolution{}, &errors.EntityError{Store: r.store.Name(), Name: name, Err: err}
	}
	if id == "" {
		return Resolution{}, &errors.EntityError{
			Store: r.store.Name(),
			Name:  name,
			Err:   errors.New("create returned no id"),
		}
	}

	r.cache[key] = cached{id: id, name: name}
	r.created++
	logging.FromContext(ctx).Info().
		Str("store", r.store.Name()).
		Str("name", name).
		Str("id", id).
		Msg("Created entity")
	return Resolution{ID: id, Created: true}, nil
}

func (r *Resolver) flag(ctx context.Context, key records.NaturalKey, existing, incoming string) {
	id := string(key) + "\x00" + incoming
	if _, seen := r.flagged[id]; seen {
		return
	}
	r.flagged[id] = struct{}{}
	a := Ambiguity{Store: r.store.Name(), Key: string(key), Existing: existing, Incoming: incoming}
	r.ambiguities = append(r.ambiguities, a)
	logging.FromContext(ctx).Warn().
		Str("store", a.Store).
		Str("existing", existing).
		Str("incoming", incoming).
		Msg("Display names differ but normalize to the same entity")
}
