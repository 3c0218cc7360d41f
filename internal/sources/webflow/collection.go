package webflow

import (
	"context"
	"iter"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/records"
)

// SlugField is the field Webflow keeps unique within a collection.
const SlugField = "slug"

// Collection is a Webflow CMS collection used as a reconciliation target.
type Collection struct {
	client   *Client
	name     string
	id       string
	keyField string
	keyFn    identity.KeyFunc
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithKeyField keys records by the string value of field. Default is slug.
func WithKeyField(field string) CollectionOption {
	return func(c *Collection) {
		c.keyField = field
		c.keyFn = fieldKey(field)
	}
}

// WithKeyFunc keys records with fn. Point lookups then scan the collection.
func WithKeyFunc(fn identity.KeyFunc) CollectionOption {
	return func(c *Collection) {
		c.keyField = ""
		c.keyFn = fn
	}
}

func fieldKey(field string) identity.KeyFunc {
	return func(r records.RemoteRecord) records.NaturalKey {
		return records.IDKey(r.Fields.String(field))
	}
}

// NewCollection returns the collection with the given id. name is used in
// logs and reports.
func NewCollection(client *Client, name, collectionID string, opts ...CollectionOption) *Collection {
	c := &Collection{client: client, name: name, id: collectionID, keyField: SlugField, keyFn: fieldKey(SlugField)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// ID returns the Webflow collection id.
func (c *Collection) ID() string { return c.id }

// KeyFunc returns the natural key function of the collection.
func (c *Collection) KeyFunc() identity.KeyFunc { return c.keyFn }

// Scan walks every live item.
func (c *Collection) Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error] {
	return c.client.Items(ctx, c.id)
}

// Schema returns the field slugs the collection accepts.
func (c *Collection) Schema(ctx context.Context) (records.SchemaFieldSet, error) {
	info, err := c.client.CollectionInfo(ctx, c.id)
	if err != nil {
		return records.SchemaFieldSet{}, err
	}
	names := make([]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		names = append(names, f.Slug)
	}
	return records.NewSchema(names...), nil
}

// ExistsByKey finds the item with key. Slug keys use the slug filter;
// any other key scans the collection.
func (c *Collection) ExistsByKey(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error) {
	if c.keyField == SlugField {
		item, err := c.client.FindBySlug(ctx, c.id, key.String())
		if err != nil || item == nil {
			return nil, err
		}
		rec := item.Record()
		return &rec, nil
	}
	for rec, err := range c.Scan(ctx) {
		if err != nil {
			return nil, err
		}
		if c.keyFn(rec) == key {
			return &rec, nil
		}
	}
	return nil, nil
}

// Write submits one bulk call and maps the response back to the batch.
func (c *Collection) Write(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error) {
	logging.FromContext(ctx).Debug().
		Str("collection", c.name).
		Str("op", op.String()).
		Int("items", len(batch)).
		Msg("Writing batch to Webflow")

	switch op {
	case records.OpCreate:
		fields := make([]records.Fields, len(batch))
		for i, w := range batch {
			fields[i] = w.Fields
		}
		items, err := c.client.CreateItems(ctx, c.id, fields)
		if err != nil {
			return nil, err
		}
		return matchCreated(batch, items), nil
	case records.OpUpdate:
		items := make([]Item, len(batch))
		for i, w := range batch {
			items[i] = Item{ID: w.TargetID, FieldData: w.Fields}
		}
		if _, err := c.client.UpdateItems(ctx, c.id, items); err != nil {
			return nil, err
		}
		results := make([]records.ItemResult, len(batch))
		for i, w := range batch {
			results[i] = records.ItemResult{ID: w.TargetID}
		}
		return results, nil
	default:
		return nil, errors.NewValidationError("op", op, "unsupported write op")
	}
}

// matchCreated pairs created items with writes. A full echo maps by
// position; a partial one maps by slug and fails the writes left over.
func matchCreated(batch []records.PendingWrite, items []Item) []records.ItemResult {
	results := make([]records.ItemResult, len(batch))
	if len(items) == len(batch) {
		for i, item := range items {
			results[i] = records.ItemResult{ID: item.ID}
		}
		return results
	}

	bySlug := make(map[string]string, len(items))
	for _, item := range items {
		if slug := item.FieldData.String(SlugField); slug != "" {
			bySlug[slug] = item.ID
		}
	}
	for i, w := range batch {
		slug := w.Fields.String(SlugField)
		if id, ok := bySlug[slug]; ok {
			results[i] = records.ItemResult{ID: id}
			continue
		}
		results[i] = records.ItemResult{Err: errors.NewNotFoundError("created item", slug)}
	}
	return results
}
