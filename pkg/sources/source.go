// Package sources defines the collaborator contracts of a reconciliation run:
// the feed that supplies candidate records, the target collection that
// receives writes, and the entity stores that referenced entities live in.
package sources

import (
	"context"
	"iter"

	"github.com/churchmedia/pewsync/pkg/records"
)

// Feed is an ordered, finite sequence of candidate records.
type Feed interface {
	Name() string
	Candidates(ctx context.Context) iter.Seq2[records.Candidate, error]
}

// Collection is a remote collection the engine reads and writes.
// Write accepts at most constants.MaxBatchSize items of a single op and
// returns one result per item, in order.
type Collection interface {
	Name() string
	Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error]
	Schema(ctx context.Context) (records.SchemaFieldSet, error)
	Write(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error)
	ExistsByKey(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error)
}

// EntityStore holds referenced entities such as speakers or people.
type EntityStore interface {
	Name() string
	Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error]
	DisplayName(rec records.RemoteRecord) string
	Create(ctx context.Context, draft records.EntityDraft) (string, error)
}

// FeedFunc adapts a sequence constructor to Feed.
type FeedFunc struct {
	FeedName string
	Fn       func(ctx context.Context) iter.Seq2[records.Candidate, error]
}

// Name returns the feed name.
func (f FeedFunc) Name() string { return f.FeedName }

// Candidates calls Fn.
func (f FeedFunc) Candidates(ctx context.Context) iter.Seq2[records.Candidate, error] {
	return f.Fn(ctx)
}
