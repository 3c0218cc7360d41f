// Package identity maps natural keys to remote record identifiers for the
// duration of one run. It is never persisted: every run re-derives "exists"
// from the remote collection.
package identity

import (
	"context"
	"iter"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/records"
)

// Mode selects how an Index learns about existing records.
type Mode int

const (
	// ModeBulk answers from a full pre-scan of the collection.
	ModeBulk Mode = iota
	// ModePoint asks the remote once per unseen key.
	ModePoint
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModePoint {
		return "point"
	}
	return "bulk"
}

// Entry is what the index knows about a key.
// Pending marks keys with a write queued in this run but not yet submitted.
type Entry struct {
	ID      string
	Fields  records.Fields
	Pending bool
}

// Checker performs targeted existence queries for point mode.
type Checker interface {
	ExistsByKey(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error)

// ExistsByKey calls f.
func (f CheckerFunc) ExistsByKey(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error) {
	return f(ctx, key)
}

// KeyFunc derives the natural key of a remote record. An empty key means the
// record has no identity and is not indexed.
type KeyFunc func(records.RemoteRecord) records.NaturalKey

// Index is a run-scoped NaturalKey to remote record mapping.
// It is owned by a single run and is not safe for concurrent use.
type Index struct {
	mode    Mode
	entries map[records.NaturalKey]Entry
	checker Checker
	lookups int
}

// Build pre-scans seq and returns a bulk index. Collections are listed
// most-recent-first, so the first record seen for a key wins.
// On a scan error the partially built index is discarded.
func Build(ctx context.Context, seq iter.Seq2[records.RemoteRecord, error], keyFn KeyFunc) (*Index, error) {
	if keyFn == nil {
		return nil, errors.NewValidationError("key_func", nil, "cannot be nil")
	}
	idx := &Index{mode: ModeBulk, entries: make(map[records.NaturalKey]Entry)}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := keyFn(rec)
		if key.IsZero() {
			continue
		}
		if _, exists := idx.entries[key]; exists {
			continue
		}
		idx.entries[key] = Entry{ID: rec.ID, Fields: rec.Fields}
	}
	return idx, nil
}

// NewBulk returns an empty bulk index, for targets known to be empty.
func NewBulk() *Index {
	return &Index{mode: ModeBulk, entries: make(map[records.NaturalKey]Entry)}
}

// NewPoint returns an index that consults checker for keys it has not seen.
func NewPoint(checker Checker) (*Index, error) {
	if checker == nil {
		return nil, errors.NewValidationError("checker", nil, "cannot be nil")
	}
	return &Index{mode: ModePoint, entries: make(map[records.NaturalKey]Entry), checker: checker}, nil
}

// Mode reports the lookup mode.
func (i *Index) Mode() Mode { return i.mode }

// Len returns the number of known keys.
func (i *Index) Len() int { return len(i.entries) }

// Lookups returns how many remote existence queries point mode has issued.
func (i *Index) Lookups() int { return i.lookups }

// Resolve reports whether key is known, either remotely or as a pending
// write of this run. In point mode an unseen key costs one remote query;
// positive answers are memoized, negative ones are not.
func (i *Index) Resolve(ctx context.Context, key records.NaturalKey) (Entry, bool, error) {
	if e, ok := i.entries[key]; ok {
		return e, true, nil
	}
	if i.mode != ModePoint {
		return Entry{}, false, nil
	}
	i.lookups++
	rec, err := i.checker.ExistsByKey(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	if rec == nil {
		return Entry{}, false, nil
	}
	e := Entry{ID: rec.ID, Fields: rec.Fields}
	i.entries[key] = e
	return e, true, nil
}

// Index registers a freshly observed record under key, replacing any pending mark.
func (i *Index) Index(key records.NaturalKey, rec records.RemoteRecord) {
	i.entries[key] = Entry{ID: rec.ID, Fields: rec.Fields}
}

// MarkPending records that a write for key has been queued. Later lookups
// of key report it as present so no second create is attempted.
func (i *Index) MarkPending(key records.NaturalKey) {
	e := i.entries[key]
	e.Pending = true
	i.entries[key] = e
}
