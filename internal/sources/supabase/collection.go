package supabase

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/records"
)

// DefaultIDColumn is the primary key column of pewsync tables.
const DefaultIDColumn = "id"

// Table is a Supabase table used as a reconciliation target. Records are
// keyed by the value of keyColumn.
type Table struct {
	client    *Client
	name      string
	keyColumn string
	idColumn  string
}

// NewTable returns the table name keyed by keyColumn.
func NewTable(client *Client, name, keyColumn string) *Table {
	return &Table{client: client, name: name, keyColumn: keyColumn, idColumn: DefaultIDColumn}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// KeyFunc keys rows by the key column.
func (t *Table) KeyFunc() identity.KeyFunc {
	return func(r records.RemoteRecord) records.NaturalKey {
		return records.IDKey(r.Fields.String(t.keyColumn))
	}
}

// Scan walks every row.
func (t *Table) Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error] {
	return t.client.Rows(ctx, t.name, t.idColumn, nil)
}

// Schema returns the columns of the table.
func (t *Table) Schema(ctx context.Context) (records.SchemaFieldSet, error) {
	cols, err := t.client.Columns(ctx, t.name)
	if err != nil {
		return records.SchemaFieldSet{}, err
	}
	return records.NewSchema(cols...), nil
}

// ExistsByKey looks the key up with an equality filter on the key column.
func (t *Table) ExistsByKey(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error) {
	row, err := t.client.FindBy(ctx, t.name, t.keyColumn, key.String())
	if err != nil || row == nil {
		return nil, err
	}
	return &records.RemoteRecord{ID: row.String(t.idColumn), Fields: row}, nil
}

// Write inserts or merges one batch. Updates are grouped by column set so
// a row never has columns it did not change overwritten.
func (t *Table) Write(ctx context.Context, op records.Op, batch []records.PendingWrite) ([]records.ItemResult, error) {
	logging.FromContext(ctx).Debug().
		Str("table", t.name).
		Str("op", op.String()).
		Int("rows", len(batch)).
		Msg("Writing batch to Supabase")

	switch op {
	case records.OpCreate:
		rows := make([]records.Fields, len(batch))
		for i, w := range batch {
			rows[i] = w.Fields
		}
		stored, err := t.client.Insert(ctx, t.name, rows)
		if err != nil {
			return nil, err
		}
		return t.match(batch, stored), nil
	case records.OpUpdate:
		return t.update(ctx, batch)
	default:
		return nil, errors.NewValidationError("op", op, "unsupported write op")
	}
}

func (t *Table) update(ctx context.Context, batch []records.PendingWrite) ([]records.ItemResult, error) {
	groups := make(map[string][]int)
	var order []string
	for i, w := range batch {
		names := w.Fields.Names()
		slices.Sort(names)
		sig := strings.Join(names, ",")
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], i)
	}

	results := make([]records.ItemResult, len(batch))
	for _, sig := range order {
		idx := groups[sig]
		rows := make([]records.Fields, len(idx))
		for j, i := range idx {
			rows[j] = batch[i].Fields.Clone().Set(t.idColumn, batch[i].TargetID)
		}
		if _, err := t.client.Upsert(ctx, t.name, t.idColumn, rows); err != nil {
			if len(order) == 1 {
				return nil, err
			}
			for _, i := range idx {
				results[i] = records.ItemResult{Err: err}
			}
			continue
		}
		for _, i := range idx {
			results[i] = records.ItemResult{ID: batch[i].TargetID}
		}
	}
	return results, nil
}

// match pairs stored rows with writes, by position when PostgREST echoes
// every row, otherwise by key column.
func (t *Table) match(batch []records.PendingWrite, stored []records.Fields) []records.ItemResult {
	results := make([]records.ItemResult, len(batch))
	if len(stored) == len(batch) {
		for i, row := range stored {
			results[i] = records.ItemResult{ID: row.String(t.idColumn)}
		}
		return results
	}
	byKey := make(map[string]string, len(stored))
	for _, row := range stored {
		byKey[row.String(t.keyColumn)] = row.String(t.idColumn)
	}
	for i, w := range batch {
		key := w.Fields.String(t.keyColumn)
		if id, ok := byKey[key]; ok {
			results[i] = records.ItemResult{ID: id}
			continue
		}
		results[i] = records.ItemResult{Err: errors.NewNotFoundError("inserted row", key)}
	}
	return results
}
