// Package memory provides in-memory implementations of the sources
// contracts for tests and dry experiments.
package memory

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/records"
)

// KeyFunc derives a natural key from a stored record.
type KeyFunc = identity.KeyFunc

// FieldKey keys records by the string value of one field.
func FieldKey(field string) KeyFunc {
	return func(r records.RemoteRecord) records.NaturalKey {
		return records.IDKey(r.Fields.String(field))
	}
}

// Collection is an in-memory remote collection. Records are kept
// most-recent-first, like the remote listings.
type Collection struct {
	mu      sync.Mutex
	name    string
	schema  records.SchemaFieldSet
	keyFn   KeyFunc
	items   []records.RemoteRecord
	nextID  int
	batches []Batch

	// FailBatch makes the n-th Write call (1-based) fail with the given error.
	FailBatch map[int]error
	// FailItem makes individual creates fail when their key matches.
	FailItem map[records.NaturalKey]error
	// SchemaErr, ScanErr and ExistsErr inject read failures.
	SchemaErr error
	ScanErr   error
	ExistsErr error

	existsCalls int
}

// Batch is one recorded Write call.
type Batch struct {
	Op     records.Op
	Writes []records.PendingWrite
}

// NewCollection creates a collection accepting schemaFields, keyed by keyFn.
func NewCollection(name string, keyFn KeyFunc, schemaFields ...string) *Collection {
	return &Collection{
		name:      name,
		schema:    records.NewSchema(schemaFields...),
		keyFn:     keyFn,
		FailBatch: map[int]error{},
		FailItem:  map[records.NaturalKey]error{},
	}
}

// Seed appends existing records, oldest last.
func (c *Collection) Seed(recs ...records.RemoteRecord) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recs {
		if r.ID == "" {
			c.nextID++
			r.ID = fmt.Sprintf("%s-%d", c.name, c.nextID)
		}
		r.Fields = r.Fields.Clone()
		c.items = append(c.items, r)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Items returns a snapshot of the stored records.
func (c *Collection) Items() []records.RemoteRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]records.RemoteRecord, len(c.items))
	copy(out, c.items)
	return out
}

// Batches returns the recorded Write calls.
func (c *Collection) Batches() []Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Batch, len(c.batches))
	copy(out, c.batches)
	return out
}

// ExistsCalls returns the number of ExistsByKey calls.
func (c *Collection) ExistsCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.existsCalls
}

// Scan yields every stored record.
func (c *Collection) Scan(_ context.Context) iter.Seq2[records.RemoteRecord, error] {
	items := c.Items()
	return func(yield func(records.RemoteRecord, error) bool) {
		for _, r := range items {
			if !yield(r, nil) {
				return
			}
		}
		if c.ScanErr != nil {
			yield(records.RemoteRecord{}, c.ScanErr)
		}
	}
}

// Schema returns the configured field set.
func (c *Collection) Schema(_ context.Context) (records.SchemaFieldSet, error) {
	if c.SchemaErr != nil {
		return records.SchemaFieldSet{}, c.SchemaErr
	}
	return c.schema, nil
}

// ExistsByKey finds the most recent record with key.
func (c *Collection) ExistsByKey(_ context.Context, key records.NaturalKey) (*records.RemoteRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.existsCalls++
	if c.ExistsErr != nil {
		return nil, c.ExistsErr
	}
	for _, r := range c.items {
		if c.keyFn != nil && c.keyFn(r) == key {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

// Write applies a batch of creates or updates.
func (c *Collection) Write(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batches = append(c.batches, Batch{Op: op, Writes: append([]records.PendingWrite(nil), batch...)})
	if err, ok := c.FailBatch[len(c.batches)]; ok {
		return nil, err
	}

	results := make([]records.ItemResult, len(batch))
	for i, w := range batch {
		if err, ok := c.FailItem[w.Key]; ok {
			results[i] = records.ItemResult{Err: err}
			continue
		}
		switch op {
		case records.OpCreate:
			c.nextID++
			id := fmt.Sprintf("%s-%d", c.name, c.nextID)
			c.items = append([]records.RemoteRecord{{ID: id, Fields: w.Fields.Clone()}}, c.items...)
			results[i] = records.ItemResult{ID: id}
		case records.OpUpdate:
			results[i] = c.update(w)
		}
	}
	return results, nil
}

func (c *Collection) update(w records.PendingWrite) records.ItemResult {
	for i := range c.items {
		if c.items[i].ID != w.TargetID {
			continue
		}
		fields := c.items[i].Fields.Clone()
		for _, f := range w.Fields {
			fields = fields.Set(f.Name, f.Value)
		}
		c.items[i].Fields = fields
		return records.ItemResult{ID: w.TargetID}
	}
	return records.ItemResult{Err: errors.NewNotFoundError(c.name, w.TargetID)}
}

// EntityStore is an in-memory referenced-entity store.
type EntityStore struct {
	mu        sync.Mutex
	name      string
	nameField string
	items     []records.RemoteRecord
	creates   []records.EntityDraft
	nextID    int

	// CreateErr makes every Create call fail.
	CreateErr error
	// ScanErr makes Scan fail after yielding the stored records.
	ScanErr error
}

// NewEntityStore creates a store whose display name lives in nameField.
func NewEntityStore(name, nameField string) *EntityStore {
	return &EntityStore{name: name, nameField: nameField}
}

// Seed adds existing entities by display name and returns their ids in order.
func (s *EntityStore) Seed(names ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(names))
	for i, n := range names {
		s.nextID++
		ids[i] = fmt.Sprintf("%s-%d", s.name, s.nextID)
		s.items = append(s.items, records.RemoteRecord{ID: ids[i], Fields: records.NewFields(s.nameField, n)})
	}
	return ids
}

// Name returns the store name.
func (s *EntityStore) Name() string { return s.name }

// Creates returns every draft passed to Create.
func (s *EntityStore) Creates() []records.EntityDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]records.EntityDraft(nil), s.creates...)
}

// Scan yields the stored entities.
func (s *EntityStore) Scan(_ context.Context) iter.Seq2[records.RemoteRecord, error] {
	s.mu.Lock()
	items := append([]records.RemoteRecord(nil), s.items...)
	s.mu.Unlock()
	return func(yield func(records.RemoteRecord, error) bool) {
		for _, r := range items {
			if !yield(r, nil) {
				return
			}
		}
		if s.ScanErr != nil {
			yield(records.RemoteRecord{}, s.ScanErr)
		}
	}
}

// DisplayName reads the configured name field.
func (s *EntityStore) DisplayName(rec records.RemoteRecord) string {
	return rec.Fields.String(s.nameField)
}

// Create stores a new entity and returns its id.
func (s *EntityStore) Create(ctx context.Context, draft records.EntityDraft) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, draft)
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	s.nextID++
	id := fmt.Sprintf("%s-%d", s.name, s.nextID)
	fields := records.NewFields(s.nameField, draft.Name, "slug", draft.Slug)
	for _, f := range draft.Fields {
		fields = fields.Set(f.Name, f.Value)
	}
	s.items = append(s.items, records.RemoteRecord{ID: id, Fields: fields})
	return id, nil
}

// Feed is a fixed list of candidates, optionally followed by an error.
type Feed struct {
	name       string
	candidates []records.Candidate
	// Err is yielded after the candidates when set.
	Err error
}

// NewFeed creates a feed over candidates.
func NewFeed(name string, candidates ...records.Candidate) *Feed {
	return &Feed{name: name, candidates: candidates}
}

// Name returns the feed name.
func (f *Feed) Name() string { return f.name }

// Candidates yields the candidates in order.
func (f *Feed) Candidates(_ context.Context) iter.Seq2[records.Candidate, error] {
	return func(yield func(records.Candidate, error) bool) {
		for _, c := range f.candidates {
			if !yield(c, nil) {
				return
			}
		}
		if f.Err != nil {
			yield(records.Candidate{}, f.Err)
		}
	}
}
