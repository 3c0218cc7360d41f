package supabase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync/internal/sources/supabase"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/records"
)

// fakeREST is a tiny PostgREST with one table per map entry.
type fakeREST struct {
	mu      sync.Mutex
	t       *testing.T
	tables  map[string][]records.Fields
	columns map[string][]string
	upserts [][]records.Fields
	nextID  int
}

func newFakeREST(t *testing.T) *fakeREST {
	return &fakeREST{t: t, tables: map[string][]records.Fields{}, columns: map[string][]string{}}
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, "key", r.Header.Get("apikey"))
	assert.Equal(f.t, "Bearer key", r.Header.Get("Authorization"))

	path := strings.TrimPrefix(r.URL.Path, supabase.RESTPath)
	if path == "/" {
		defs := map[string]any{}
		for table, cols := range f.columns {
			props := map[string]any{}
			for _, c := range cols {
				props[c] = map[string]string{"type": "string"}
			}
			defs[table] = map[string]any{"properties": props}
		}
		writeJSON(w, map[string]any{"swagger": "2.0", "definitions": defs})
		return
	}
	table := strings.TrimPrefix(path, "/")
	q := r.URL.Query()

	switch r.Method {
	case http.MethodGet:
		rows := f.filter(table, q)
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil {
			limit = len(rows)
		}
		end := min(offset+limit, len(rows))
		page := []records.Fields{}
		if offset < len(rows) {
			page = rows[offset:end]
		}
		if r.Header.Get("Prefer") == "count=exact" {
			w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", offset, end-1, len(rows)))
		}
		writeJSON(w, page)
	case http.MethodPost:
		var rows []records.Fields
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&rows))
		if conflict := q.Get("on_conflict"); conflict != "" {
			assert.Contains(f.t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
			f.upserts = append(f.upserts, rows)
			for _, row := range rows {
				for i, existing := range f.tables[table] {
					if existing.String(conflict) == row.String(conflict) {
						for _, field := range row {
							f.tables[table][i] = f.tables[table][i].Set(field.Name, field.Value)
						}
					}
				}
			}
			writeJSON(w, rows)
			return
		}
		assert.Equal(f.t, "return=representation", r.Header.Get("Prefer"))
		for i, row := range rows {
			if !row.Has("id") {
				f.nextID++
				rows[i] = row.Set("id", "row-"+strconv.Itoa(f.nextID))
			}
		}
		f.tables[table] = append(f.tables[table], rows...)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, rows)
	default:
		http.Error(w, "method", http.StatusMethodNotAllowed)
	}
}

func (f *fakeREST) filter(table string, q map[string][]string) []records.Fields {
	var out []records.Fields
rows:
	for _, row := range f.tables[table] {
		for col, vals := range q {
			if v, ok := strings.CutPrefix(vals[0], "eq."); ok && row.String(col) != v {
				continue rows
			}
		}
		out = append(out, row)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T, fake *fakeREST) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return supabase.New(srv.URL+"/", "key",
		supabase.WithPageSize(2),
		supabase.WithPaginateOptions(paginate.WithDelay(0)),
	)
}

func seedSubmissions(fake *fakeREST, n int) {
	fake.columns["submissions"] = []string{"id", "submission_id", "person_id", "service_time"}
	for i := 1; i <= n; i++ {
		fake.tables["submissions"] = append(fake.tables["submissions"],
			records.NewFields("id", fmt.Sprintf("row-%d", i), "submission_id", fmt.Sprintf("s%d", i)))
	}
	fake.nextID = n
}

func TestScanPagesWithContentRange(t *testing.T) {
	fake := newFakeREST(t)
	seedSubmissions(fake, 5)
	table := supabase.NewTable(setup(t, fake), "submissions", "submission_id")

	recs, err := paginate.Collect(table.Scan(context.Background()))
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, "row-1", recs[0].ID)
	assert.Equal(t, records.NaturalKey("s5"), table.KeyFunc()(recs[4]))
}

func TestSchemaFromOpenAPI(t *testing.T) {
	fake := newFakeREST(t)
	seedSubmissions(fake, 0)
	client := setup(t, fake)

	schema, err := supabase.NewTable(client, "submissions", "submission_id").Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "person_id", "service_time", "submission_id"}, schema.Names())

	_, err = supabase.NewTable(client, "missing", "id").Schema(context.Background())
	require.Error(t, err)
}

func TestExistsByKey(t *testing.T) {
	fake := newFakeREST(t)
	seedSubmissions(fake, 3)
	table := supabase.NewTable(setup(t, fake), "submissions", "submission_id")

	rec, err := table.ExistsByKey(context.Background(), "s2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "row-2", rec.ID)

	rec, err = table.ExistsByKey(context.Background(), "s9")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestWriteInsertAndUpdate(t *testing.T) {
	fake := newFakeREST(t)
	seedSubmissions(fake, 2)
	table := supabase.NewTable(setup(t, fake), "submissions", "submission_id")
	ctx := context.Background()

	results, err := table.Write(ctx, records.OpCreate, []records.PendingWrite{
		{Key: "s3", Op: records.OpCreate, Fields: records.NewFields("submission_id", "s3")},
		{Key: "s4", Op: records.OpCreate, Fields: records.NewFields("submission_id", "s4")},
	})
	require.NoError(t, err)
	assert.Equal(t, "row-3", results[0].ID)
	assert.Equal(t, "row-4", results[1].ID)

	results, err = table.Write(ctx, records.OpUpdate, []records.PendingWrite{
		{Key: "s1", Op: records.OpUpdate, TargetID: "row-1", Fields: records.NewFields("service_time", "9:30")},
		{Key: "s2", Op: records.OpUpdate, TargetID: "row-2", Fields: records.NewFields("person_id", "p")},
		{Key: "s3", Op: records.OpUpdate, TargetID: "row-3", Fields: records.NewFields("service_time", "11:00")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, id := range []string{"row-1", "row-2", "row-3"} {
		assert.Equal(t, id, results[i].ID)
		assert.NoError(t, results[i].Err)
	}
	require.Len(t, fake.upserts, 2, "rows grouped by column set")
	assert.Len(t, fake.upserts[0], 2)
	assert.Equal(t, "9:30", fake.tables["submissions"][0].String("service_time"))
	assert.False(t, fake.tables["submissions"][0].Has("person_id"))
}

func TestEntityStoreCreatesUUIDRows(t *testing.T) {
	fake := newFakeREST(t)
	fake.tables["people"] = []records.Fields{records.NewFields("id", "u-1", "planning_center_id", "p1")}
	store := supabase.NewEntityStore(supabase.NewTable(setup(t, fake), "people", "planning_center_id"), "planning_center_id")

	recs, err := paginate.Collect(store.Scan(context.Background()))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", store.DisplayName(recs[0]))

	id, err := store.Create(context.Background(), records.EntityDraft{
		Name:   "p2",
		Slug:   "p2",
		Fields: records.NewFields("full_name", "Ada Lovelace", "id", "ignored"),
	})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	row := fake.tables["people"][1]
	assert.Equal(t, id, row.String("id"))
	assert.Equal(t, "p2", row.String("planning_center_id"))
	assert.Equal(t, "Ada Lovelace", row.String("full_name"))
	assert.False(t, row.Has("slug"))
}
