package webflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources/memory"
)

// fakeWebflow serves one collection with offset pagination.
type fakeWebflow struct {
	mu      sync.Mutex
	t       *testing.T
	fields  []string
	items   []webflow.Item
	nextID  int
	posts   int
	patches []json.RawMessage
	// echo limits how many created items a POST returns; negative echoes all.
	echo int
}

func newFake(t *testing.T, fields ...string) *fakeWebflow {
	return &fakeWebflow{t: t, fields: fields, echo: -1}
}

func (f *fakeWebflow) seed(slugs ...string) {
	for _, s := range slugs {
		f.nextID++
		f.items = append(f.items, webflow.Item{
			ID:        "item-" + strconv.Itoa(f.nextID),
			FieldData: records.NewFields("name", s, "slug", s),
		})
	}
}

func (f *fakeWebflow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, "Bearer tok", r.Header.Get("Authorization"))
	assert.Equal(f.t, "2.0.0", r.Header.Get("accept-version"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/c1":
		fields := make([]map[string]string, len(f.fields))
		for i, slug := range f.fields {
			fields[i] = map[string]string{"id": "f" + strconv.Itoa(i), "slug": slug, "type": "PlainText"}
		}
		writeJSON(w, map[string]any{"id": "c1", "displayName": "Sermons", "fields": fields})
	case r.Method == http.MethodGet && r.URL.Path == "/collections/c1/items/live":
		f.list(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/collections/c1/items/live":
		f.create(w, r)
	case r.Method == http.MethodPatch && r.URL.Path == "/collections/c1/items/live":
		var body struct {
			Items []json.RawMessage `json:"items"`
		}
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.patches = append(f.patches, body.Items...)
		writeJSON(w, map[string]any{"items": []any{}})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeWebflow) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if slug := q.Get("slug"); slug != "" {
		var found []webflow.Item
		for _, item := range f.items {
			if item.FieldData.String("slug") == slug {
				found = append(found, item)
			}
		}
		writeJSON(w, map[string]any{"items": found})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	end := min(offset+limit, len(f.items))
	page := []webflow.Item{}
	if offset < len(f.items) {
		page = f.items[offset:end]
	}
	writeJSON(w, map[string]any{
		"items":      page,
		"pagination": map[string]int{"limit": limit, "offset": offset, "total": len(f.items)},
	})
}

func (f *fakeWebflow) create(w http.ResponseWriter, r *http.Request) {
	f.posts++
	var body struct {
		Items []struct {
			FieldData records.Fields `json:"fieldData"`
			IsDraft   bool           `json:"isDraft"`
		} `json:"items"`
	}
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	var created []webflow.Item
	for _, in := range body.Items {
		assert.False(f.t, in.IsDraft)
		f.nextID++
		item := webflow.Item{ID: "item-" + strconv.Itoa(f.nextID), FieldData: in.FieldData}
		f.items = append(f.items, item)
		created = append(created, item)
	}
	if f.echo >= 0 && f.echo < len(created) {
		created = created[:f.echo]
	}
	if len(created) == 1 {
		writeJSON(w, created[0])
		return
	}
	writeJSON(w, map[string]any{"items": created})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T, fake *fakeWebflow) *webflow.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return webflow.New("tok",
		webflow.WithBaseURL(srv.URL),
		webflow.WithPageSize(2),
		webflow.WithPaginateOptions(paginate.WithDelay(0)),
	)
}

func TestScanFollowsOffsetPagination(t *testing.T) {
	fake := newFake(t, "name", "slug")
	fake.seed("a", "b", "c", "d", "e")
	coll := webflow.NewCollection(setup(t, fake), "sermons", "c1")

	recs, err := paginate.Collect(coll.Scan(context.Background()))
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, "item-1", recs[0].ID)
	assert.Equal(t, "e", recs[4].Fields.String("slug"))
}

func TestSchema(t *testing.T) {
	fake := newFake(t, "name", "slug", "speaker")
	coll := webflow.NewCollection(setup(t, fake), "sermons", "c1")

	schema, err := coll.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "slug", "speaker"}, schema.Names())
}

func TestSchemaNotFound(t *testing.T) {
	fake := newFake(t)
	coll := webflow.NewCollection(setup(t, fake), "missing", "nope")

	_, err := coll.Schema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection nope")
}

func TestExistsByKey(t *testing.T) {
	fake := newFake(t, "name", "slug")
	fake.seed("easter-2024", "advent-2024")
	client := setup(t, fake)
	ctx := context.Background()

	t.Run("slug filter", func(t *testing.T) {
		coll := webflow.NewCollection(client, "sermons", "c1")
		rec, err := coll.ExistsByKey(ctx, "advent-2024")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "item-2", rec.ID)

		rec, err = coll.ExistsByKey(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("name key scans", func(t *testing.T) {
		coll := webflow.NewCollection(client, "speakers", "c1", webflow.WithKeyFunc(func(r records.RemoteRecord) records.NaturalKey {
			return records.NameKey(r.Fields.String("name"))
		}))
		rec, err := coll.ExistsByKey(ctx, records.NameKey("EASTER-2024"))
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "item-1", rec.ID)
	})
}

func TestWriteCreateMapsIDs(t *testing.T) {
	batch := []records.PendingWrite{
		{Key: "a", Op: records.OpCreate, Fields: records.NewFields("name", "A", "slug", "a")},
		{Key: "b", Op: records.OpCreate, Fields: records.NewFields("name", "B", "slug", "b")},
	}

	t.Run("full echo by position", func(t *testing.T) {
		fake := newFake(t, "name", "slug")
		coll := webflow.NewCollection(setup(t, fake), "sermons", "c1")
		results, err := coll.Write(context.Background(), records.OpCreate, batch)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "item-1", results[0].ID)
		assert.Equal(t, "item-2", results[1].ID)
		assert.Equal(t, 1, fake.posts)
	})

	t.Run("partial echo by slug", func(t *testing.T) {
		fake := newFake(t, "name", "slug")
		fake.echo = 1
		coll := webflow.NewCollection(setup(t, fake), "sermons", "c1")
		results, err := coll.Write(context.Background(), records.OpCreate, batch)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "item-1", results[0].ID)
		assert.NoError(t, results[0].Err)
		assert.Error(t, results[1].Err)
	})
}

func TestWriteUpdatePatchesByID(t *testing.T) {
	fake := newFake(t, "name", "slug", "speaker")
	fake.seed("a")
	coll := webflow.NewCollection(setup(t, fake), "sermons", "c1")

	results, err := coll.Write(context.Background(), records.OpUpdate, []records.PendingWrite{
		{Key: "a", Op: records.OpUpdate, TargetID: "item-1", Fields: records.NewFields("speaker", "spk-1")},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "item-1", results[0].ID)
	require.Len(t, fake.patches, 1)
	assert.JSONEq(t, `{"id":"item-1","fieldData":{"speaker":"spk-1"}}`, string(fake.patches[0]))
}

func TestWriteServerErrorFailsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Validation Error"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	coll := webflow.NewCollection(webflow.New("tok", webflow.WithBaseURL(srv.URL)), "sermons", "c1")

	_, err := coll.Write(context.Background(), records.OpCreate, []records.PendingWrite{
		{Key: "a", Op: records.OpCreate, Fields: records.NewFields("slug", "a")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestEntityStore(t *testing.T) {
	fake := newFake(t, "name", "slug")
	fake.seed("andy-snider")
	store := webflow.NewEntityStore(webflow.NewCollection(setup(t, fake), "speakers", "c1"), "")

	assert.Equal(t, "speakers", store.Name())
	recs, err := paginate.Collect(store.Scan(context.Background()))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "andy-snider", store.DisplayName(recs[0]))

	id, err := store.Create(context.Background(), records.EntityDraft{Name: "Josh de Koning", Slug: "josh-de-koning"})
	require.NoError(t, err)
	assert.Equal(t, "item-2", id)
	assert.Equal(t, "Josh de Koning", fake.items[1].FieldData.String("name"))
}

func TestReconcileAgainstWebflow(t *testing.T) {
	fake := newFake(t, "name", "slug")
	fake.seed("s-1", "s-2", "s-3")
	coll := webflow.NewCollection(setup(t, fake), "sermons", "c1")

	var cands []records.Candidate
	for i := 1; i <= 5; i++ {
		slug := fmt.Sprintf("s-%d", i)
		cands = append(cands, records.Candidate{
			Key:    records.IDKey(slug),
			Fields: records.NewFields("name", slug, "slug", slug, "unknown-field", "x"),
		})
	}

	driver, err := reconciler.New(coll, reconciler.WithBulkIndex(coll.KeyFunc()))
	require.NoError(t, err)
	report, err := driver.Run(context.Background(), memory.NewFeed("sermons", cands...))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, []string{"unknown-field"}, report.DroppedFields)
	assert.Len(t, fake.items, 5)
}
