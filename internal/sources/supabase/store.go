package supabase

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/churchmedia/pewsync/pkg/records"
)

// EntityStore exposes a table of referenced rows, such as people, as an
// entity store. Entities are named by nameColumn and new rows get a random
// UUID primary key.
type EntityStore struct {
	table      *Table
	nameColumn string
	newID      func() string
}

// NewEntityStore wraps table, naming rows by nameColumn.
func NewEntityStore(table *Table, nameColumn string) *EntityStore {
	return &EntityStore{table: table, nameColumn: nameColumn, newID: uuid.NewString}
}

// Name returns the table name.
func (s *EntityStore) Name() string { return s.table.Name() }

// Scan walks every row.
func (s *EntityStore) Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error] {
	return s.table.Scan(ctx)
}

// DisplayName returns the name column of rec.
func (s *EntityStore) DisplayName(rec records.RemoteRecord) string {
	return rec.Fields.String(s.nameColumn)
}

// Create inserts a row for draft and returns its id. The draft slug is not
// stored.
func (s *EntityStore) Create(ctx context.Context, draft records.EntityDraft) (string, error) {
	id := s.newID()
	row := records.NewFields(s.table.idColumn, id, s.nameColumn, draft.Name)
	for _, f := range draft.Fields {
		if f.Name == s.table.idColumn || f.Name == s.nameColumn {
			continue
		}
		row = row.Set(f.Name, f.Value)
	}
	stored, err := s.table.client.Insert(ctx, s.table.name, []records.Fields{row})
	if err != nil {
		return "", err
	}
	if len(stored) > 0 {
		if got := stored[0].String(s.table.idColumn); got != "" {
			return got, nil
		}
	}
	return id, nil
}
