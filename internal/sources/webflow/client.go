// Package webflow is a Webflow Data API v2 client exposing CMS collections
// as reconciliation targets and entity stores.
package webflow

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/churchmedia/pewsync/internal/transport"
	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/records"
)

// Item is a CMS collection item.
type Item struct {
	ID         string         `json:"id,omitempty"`
	IsDraft    bool           `json:"isDraft"`
	IsArchived bool           `json:"isArchived"`
	FieldData  records.Fields `json:"fieldData"`
}

// Record converts the item to a remote record.
func (i Item) Record() records.RemoteRecord {
	return records.RemoteRecord{ID: i.ID, Fields: i.FieldData, Draft: i.IsDraft, Archived: i.IsArchived}
}

// ItemList is a page of items.
type ItemList struct {
	Items []Item `json:"items"`
	paginate.Envelope
}

// Field describes a collection field.
type Field struct {
	ID          string `json:"id" yaml:"id"`
	Slug        string `json:"slug" yaml:"slug"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	Type        string `json:"type" yaml:"type"`
	IsRequired  bool   `json:"isRequired" yaml:"required"`
}

// CollectionInfo is the collection metadata returned by GET /collections/{id}.
type CollectionInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Slug        string  `json:"slug"`
	Fields      []Field `json:"fields"`
}

// Client talks to the Webflow Data API.
type Client struct {
	transport *transport.Client
	pageSize  int
	pageOpts  []paginate.Option
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL  string
	http     *http.Client
	pageSize int
	pageOpts []paginate.Option
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.http = hc }
}

// WithPageSize sets the list page size.
func WithPageSize(n int) Option {
	return func(c *clientConfig) { c.pageSize = n }
}

// WithPaginateOptions passes options to every paginator.
func WithPaginateOptions(opts ...paginate.Option) Option {
	return func(c *clientConfig) { c.pageOpts = append(c.pageOpts, opts...) }
}

// New creates a Webflow client authenticating with token.
func New(token string, opts ...Option) *Client {
	cfg := &clientConfig{baseURL: constants.WebflowAPIBase, pageSize: constants.DefaultPageSize}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		transport: transport.New("webflow", cfg.baseURL, &transport.BearerAuth{Token: token},
			transport.WithHTTPClient(cfg.http),
			transport.WithHeader("accept-version", constants.WebflowAPIVersion),
		),
		pageSize: cfg.pageSize,
		pageOpts: cfg.pageOpts,
	}
}

// CollectionInfo fetches collection metadata including its field list.
func (c *Client) CollectionInfo(ctx context.Context, collectionID string) (*CollectionInfo, error) {
	if collectionID == "" {
		return nil, errors.NewValidationError("collection_id", collectionID, "cannot be empty")
	}
	var info CollectionInfo
	if _, err := c.transport.JSON(ctx, http.MethodGet, c.transport.URL("collections/"+url.PathEscape(collectionID), nil), nil, &info, nil); err != nil {
		return nil, errors.WrapResource("fetch", "collection", collectionID, err)
	}
	return &info, nil
}

// Items lists the live items of a collection, following whatever
// pagination the response signals.
func (c *Client) Items(ctx context.Context, collectionID string) iter.Seq2[records.RemoteRecord, error] {
	endpoint := "collections/" + url.PathEscape(collectionID) + "/items/live"
	fetcher := paginate.FetcherFunc(func(ctx context.Context, req paginate.Request) (paginate.Page, error) {
		var list ItemList
		if _, err := c.transport.JSON(ctx, http.MethodGet, c.pageURL(req), nil, &list, nil); err != nil {
			return paginate.Page{}, err
		}
		page := paginate.Page{Records: make([]records.RemoteRecord, len(list.Items)), Next: list.Next()}
		for i, item := range list.Items {
			page.Records[i] = item.Record()
		}
		return page, nil
	})

	p, err := paginate.New(fetcher, paginate.Request{Endpoint: endpoint, PageSize: c.pageSize}, c.pageOpts...)
	if err != nil {
		return func(yield func(records.RemoteRecord, error) bool) { yield(records.RemoteRecord{}, err) }
	}
	return p.Records(ctx)
}

func (c *Client) pageURL(req paginate.Request) string {
	q := url.Values{"limit": {strconv.Itoa(req.PageSize)}}
	switch req.Continuation.Style {
	case paginate.StyleLink:
		return req.Continuation.URL
	case paginate.StyleCursor:
		q.Set("cursor", req.Continuation.Cursor)
	case paginate.StyleOffset:
		q.Set("offset", strconv.Itoa(req.Continuation.Offset))
	}
	return c.transport.URL(req.Endpoint, q)
}

// FindBySlug returns the live item with slug, or nil.
func (c *Client) FindBySlug(ctx context.Context, collectionID, slug string) (*Item, error) {
	q := url.Values{"slug": {slug}, "limit": {"1"}}
	var list ItemList
	endpoint := "collections/" + url.PathEscape(collectionID) + "/items/live"
	if _, err := c.transport.JSON(ctx, http.MethodGet, c.transport.URL(endpoint, q), nil, &list, nil); err != nil {
		return nil, err
	}
	for _, item := range list.Items {
		if item.FieldData.String("slug") == slug {
			return &item, nil
		}
	}
	return nil, nil
}

type createItem struct {
	FieldData  records.Fields `json:"fieldData"`
	IsDraft    bool           `json:"isDraft"`
	IsArchived bool           `json:"isArchived"`
}

type updateItem struct {
	ID        string         `json:"id"`
	FieldData records.Fields `json:"fieldData"`
}

// CreateItems publishes new live items in one call. The returned items are
// in request order when the remote echoes them.
func (c *Client) CreateItems(ctx context.Context, collectionID string, fields []records.Fields) ([]Item, error) {
	payload := make([]createItem, len(fields))
	for i, f := range fields {
		payload[i] = createItem{FieldData: f}
	}
	return c.bulk(ctx, http.MethodPost, collectionID, payload, len(payload))
}

// UpdateItems patches live items in one call. Only the given fields change.
func (c *Client) UpdateItems(ctx context.Context, collectionID string, items []Item) ([]Item, error) {
	payload := make([]updateItem, len(items))
	for i, item := range items {
		payload[i] = updateItem{ID: item.ID, FieldData: item.FieldData}
	}
	return c.bulk(ctx, http.MethodPatch, collectionID, payload, len(payload))
}

func (c *Client) bulk(ctx context.Context, method, collectionID string, payload any, n int) ([]Item, error) {
	if n > constants.MaxBatchSize {
		return nil, errors.NewValidationError("items", n, "at most 100 items per call")
	}
	endpoint := c.transport.URL("collections/"+url.PathEscape(collectionID)+"/items/live", url.Values{"skipInvalidFiles": {"true"}})
	var out struct {
		Items []Item `json:"items"`
		Item
	}
	if _, err := c.transport.JSON(ctx, method, endpoint, map[string]any{"items": payload}, &out, nil); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 && out.ID != "" {
		return []Item{out.Item}, nil
	}
	return out.Items, nil
}
