package entity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources/memory"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, fallback, want string
	}{
		{"Andy Snider", "", "andy-snider"},
		{"  Dr. Andy   Snider!! ", "", "dr-andy-snider"},
		{"Élise Côté", "", "elise-cote"},
		{"---", "speaker", "speaker"},
		{"", "", "entity"},
		{"Romans 8:1-11", "", "romans-8-1-11"},
		{"中文", "speaker", "speaker"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, entity.Slugify(tt.in, tt.fallback))
		})
	}
}

func TestCreateOnce(t *testing.T) {
	store := memory.NewEntityStore("speakers", "name")
	r, err := entity.New(store, entity.WithPlaceholder("speaker"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, r.Load(ctx))

	var ids []string
	for _, name := range []string{"Andy Snider", "andy snider", "  Andy  Snider ", "ANDY SNIDER", "andy snider"} {
		res, err := r.ResolveOrCreate(ctx, name, nil)
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	require.Len(t, store.Creates(), 1)
	assert.Equal(t, "Andy Snider", store.Creates()[0].Name)
	assert.Equal(t, "andy-snider", store.Creates()[0].Slug)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, r.Created())
	assert.Len(t, r.Ambiguities(), 2, "two textually different variants were merged")
}

func TestResolvesSeededEntities(t *testing.T) {
	store := memory.NewEntityStore("speakers", "name")
	ids := store.Seed("Josh de Koning", "Shamus Drake")
	r, err := entity.New(store)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := r.ResolveOrCreate(ctx, "Shamus Drake", nil)
	require.NoError(t, err)
	assert.Equal(t, ids[1], res.ID)
	assert.False(t, res.Created)
	assert.Empty(t, store.Creates())
	assert.Empty(t, r.Ambiguities())
}

func TestSeedCollisionsAreFlagged(t *testing.T) {
	store := memory.NewEntityStore("speakers", "name")
	ids := store.Seed("Andy Snider", "ANDY SNIDER")
	r, err := entity.New(store)
	require.NoError(t, err)
	require.NoError(t, r.Load(context.Background()))

	res, err := r.ResolveOrCreate(context.Background(), "Andy Snider", nil)
	require.NoError(t, err)
	assert.Equal(t, ids[0], res.ID)
	require.Len(t, r.Ambiguities(), 1)
	assert.Equal(t, entity.Ambiguity{Store: "speakers", Key: "andy snider", Existing: "Andy Snider", Incoming: "ANDY SNIDER"}, r.Ambiguities()[0])
}

func TestDryRunIssuesNoCreate(t *testing.T) {
	store := memory.NewEntityStore("speakers", "name")
	r, err := entity.New(store, entity.WithDryRun(true))
	require.NoError(t, err)

	res, err := r.ResolveOrCreate(context.Background(), "New Speaker", nil)
	require.NoError(t, err)
	assert.Equal(t, "dry-run:new-speaker", res.ID)
	assert.True(t, res.Created)

	again, err := r.ResolveOrCreate(context.Background(), "new speaker", nil)
	require.NoError(t, err)
	assert.Equal(t, res.ID, again.ID)
	assert.False(t, again.Created)

	assert.Empty(t, store.Creates())
	assert.Equal(t, 1, r.Created())
}

func TestCreateFailure(t *testing.T) {
	store := memory.NewEntityStore("people", "name")
	store.CreateErr = errors.NewAPIError("people", 400, "bad row")
	r, err := entity.New(store)
	require.NoError(t, err)

	_, err = r.ResolveOrCreate(context.Background(), "Jane Doe", nil)
	var entErr *errors.EntityError
	require.ErrorAs(t, err, &entErr)
	assert.Equal(t, "people", entErr.Store)
	assert.Equal(t, "Jane Doe", entErr.Name)
	assert.Equal(t, 0, r.Created())
}

func TestEmptyName(t *testing.T) {
	r, err := entity.New(memory.NewEntityStore("speakers", "name"))
	require.NoError(t, err)
	_, err = r.ResolveOrCreate(context.Background(), "   ", nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestLoadFailure(t *testing.T) {
	store := memory.NewEntityStore("speakers", "name")
	store.ScanErr = errors.ErrRemoteUnavailable
	r, err := entity.New(store)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Load(context.Background()), errors.ErrRemoteUnavailable)
}

func TestOptionsValidate(t *testing.T) {
	_, err := entity.New(nil)
	assert.True(t, errors.IsValidationError(err))
	_, err = entity.New(memory.NewEntityStore("s", "n"), entity.WithPlaceholder("Not A Slug"))
	assert.True(t, errors.IsValidationError(err))
}

func TestCreatePassesAttributes(t *testing.T) {
	store := memory.NewEntityStore("people", "name")
	r, err := entity.New(store)
	require.NoError(t, err)
	_, err = r.ResolveOrCreate(context.Background(), "Jane Doe", records.NewFields("email", "jane@example.org"))
	require.NoError(t, err)
	require.Len(t, store.Creates(), 1)
	assert.Equal(t, "jane@example.org", store.Creates()[0].Fields.String("email"))
}
