package webflow

import (
	"context"
	"iter"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/records"
)

// EntityStore exposes a collection of named items, such as speakers,
// as a store that references resolve against.
type EntityStore struct {
	collection *Collection
	nameField  string
}

// NewEntityStore wraps collection. nameField holds the display name,
// usually "name".
func NewEntityStore(collection *Collection, nameField string) *EntityStore {
	if nameField == "" {
		nameField = "name"
	}
	return &EntityStore{collection: collection, nameField: nameField}
}

// Name returns the store name.
func (s *EntityStore) Name() string { return s.collection.Name() }

// Scan walks every entity.
func (s *EntityStore) Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error] {
	return s.collection.Scan(ctx)
}

// DisplayName returns the name field of rec.
func (s *EntityStore) DisplayName(rec records.RemoteRecord) string {
	return rec.Fields.String(s.nameField)
}

// Create publishes a new entity item and returns its id.
func (s *EntityStore) Create(ctx context.Context, draft records.EntityDraft) (string, error) {
	fields := records.NewFields(s.nameField, draft.Name, SlugField, draft.Slug)
	for _, f := range draft.Fields {
		fields = fields.Set(f.Name, f.Value)
	}
	items, err := s.collection.client.CreateItems(ctx, s.collection.id, []records.Fields{fields})
	if err != nil {
		return "", err
	}
	if len(items) == 0 || items[0].ID == "" {
		return "", errors.NewResourceError("create", "item", draft.Slug, errors.New("response carried no id"))
	}
	return items[0].ID, nil
}
