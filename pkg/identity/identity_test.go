package identity_test

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/records"
)

func seqOf(recs []records.RemoteRecord, tail error) iter.Seq2[records.RemoteRecord, error] {
	return func(yield func(records.RemoteRecord, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
		if tail != nil {
			yield(records.RemoteRecord{}, tail)
		}
	}
}

func bySlug(r records.RemoteRecord) records.NaturalKey {
	return records.IDKey(r.Fields.String("slug"))
}

func TestBulkFirstRecordWins(t *testing.T) {
	recs := []records.RemoteRecord{
		{ID: "new", Fields: records.NewFields("slug", "easter")},
		{ID: "old", Fields: records.NewFields("slug", "easter")},
		{ID: "x", Fields: records.NewFields("name", "no slug")},
	}
	idx, err := identity.Build(context.Background(), seqOf(recs, nil), bySlug)
	require.NoError(t, err)

	assert.Equal(t, identity.ModeBulk, idx.Mode())
	assert.Equal(t, 1, idx.Len())

	e, ok, err := idx.Resolve(context.Background(), "easter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", e.ID)

	_, ok, err = idx.Resolve(context.Background(), "christmas")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBulkScanFailure(t *testing.T) {
	_, err := identity.Build(context.Background(), seqOf(nil, errors.ErrRemoteUnavailable), bySlug)
	assert.ErrorIs(t, err, errors.ErrRemoteUnavailable)
}

func TestMarkPendingPreventsSecondCreate(t *testing.T) {
	idx := identity.NewBulk()
	ctx := context.Background()

	_, ok, _ := idx.Resolve(ctx, "SUB-42")
	assert.False(t, ok)

	idx.MarkPending("SUB-42")
	e, ok, _ := idx.Resolve(ctx, "SUB-42")
	assert.True(t, ok)
	assert.True(t, e.Pending)

	idx.Index("SUB-42", records.RemoteRecord{ID: "row-1"})
	e, ok, _ = idx.Resolve(ctx, "SUB-42")
	assert.True(t, ok)
	assert.False(t, e.Pending)
	assert.Equal(t, "row-1", e.ID)
}

func TestPointModeMemoizesPositives(t *testing.T) {
	queries := map[records.NaturalKey]int{}
	checker := identity.CheckerFunc(func(_ context.Context, key records.NaturalKey) (*records.RemoteRecord, error) {
		queries[key]++
		if key == "SUB-1" {
			return &records.RemoteRecord{ID: "row-1"}, nil
		}
		return nil, nil
	})
	idx, err := identity.NewPoint(checker)
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		e, ok, err := idx.Resolve(ctx, "SUB-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "row-1", e.ID)
	}
	for range 2 {
		_, ok, err := idx.Resolve(ctx, "SUB-2")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Equal(t, 1, queries["SUB-1"])
	assert.Equal(t, 2, queries["SUB-2"])
	assert.Equal(t, 3, idx.Lookups())

	idx.MarkPending("SUB-2")
	_, ok, _ := idx.Resolve(ctx, "SUB-2")
	assert.True(t, ok)
	assert.Equal(t, 2, queries["SUB-2"])
}

func TestPointModeError(t *testing.T) {
	idx, err := identity.NewPoint(identity.CheckerFunc(func(context.Context, records.NaturalKey) (*records.RemoteRecord, error) {
		return nil, errors.NewAPIError("submissions", 500, "down")
	}))
	require.NoError(t, err)
	_, _, err = idx.Resolve(context.Background(), "k")
	assert.True(t, errors.IsRemoteUnavailable(err))
}

func TestConstructorsValidate(t *testing.T) {
	_, err := identity.NewPoint(nil)
	assert.True(t, errors.IsValidationError(err))
	_, err = identity.Build(context.Background(), seqOf(nil, nil), nil)
	assert.True(t, errors.IsValidationError(err))
}
