// Package supabase reads and writes Supabase tables through PostgREST.
package supabase

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/churchmedia/pewsync/internal/transport"
	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/records"
)

// RESTPath is the PostgREST mount point under a project URL.
const RESTPath = "/rest/v1"

// Client talks to the PostgREST API of a Supabase project.
type Client struct {
	transport *transport.Client
	pageSize  int
	pageOpts  []paginate.Option
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	http     *http.Client
	pageSize int
	pageOpts []paginate.Option
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.http = hc }
}

// WithPageSize sets the row limit of list calls.
func WithPageSize(n int) Option {
	return func(c *clientConfig) { c.pageSize = n }
}

// WithPaginateOptions passes options to every paginator.
func WithPaginateOptions(opts ...paginate.Option) Option {
	return func(c *clientConfig) { c.pageOpts = append(c.pageOpts, opts...) }
}

// New creates a client for the project at projectURL using a service key.
func New(projectURL, serviceKey string, opts ...Option) *Client {
	cfg := &clientConfig{pageSize: constants.DefaultPageSize}
	for _, opt := range opts {
		opt(cfg)
	}
	auth := transport.MultiAuth{
		&transport.HeaderAuth{Header: "apikey", Value: serviceKey},
		&transport.BearerAuth{Token: serviceKey},
	}
	return &Client{
		transport: transport.New("supabase", strings.TrimRight(projectURL, "/")+RESTPath, auth,
			transport.WithHTTPClient(cfg.http),
		),
		pageSize: cfg.pageSize,
		pageOpts: cfg.pageOpts,
	}
}

// Rows walks the rows of table matching filter, paging by offset. idColumn
// becomes the record id.
func (c *Client) Rows(ctx context.Context, table, idColumn string, filter url.Values) iter.Seq2[records.RemoteRecord, error] {
	fetcher := paginate.FetcherFunc(func(ctx context.Context, req paginate.Request) (paginate.Page, error) {
		q := url.Values{}
		for k, v := range filter {
			q[k] = v
		}
		offset := 0
		if req.Continuation.Style == paginate.StyleOffset {
			offset = req.Continuation.Offset
		}
		q.Set("limit", strconv.Itoa(req.PageSize))
		q.Set("offset", strconv.Itoa(offset))
		if q.Get("order") == "" {
			q.Set("order", idColumn+".asc")
		}

		var rows []records.Fields
		resp, err := c.transport.JSON(ctx, http.MethodGet, c.transport.URL(req.Endpoint, q), nil, &rows,
			http.Header{"Prefer": {"count=exact"}})
		if err != nil {
			return paginate.Page{}, err
		}
		page := paginate.Page{Records: make([]records.RemoteRecord, len(rows))}
		for i, row := range rows {
			page.Records[i] = records.RemoteRecord{ID: row.String(idColumn), Fields: row}
		}
		page.Next = nextPage(resp.Header.Get("Content-Range"), offset, req.PageSize, len(rows))
		return page, nil
	})

	p, err := paginate.New(fetcher, paginate.Request{Endpoint: url.PathEscape(table), PageSize: c.pageSize}, c.pageOpts...)
	if err != nil {
		return func(yield func(records.RemoteRecord, error) bool) { yield(records.RemoteRecord{}, err) }
	}
	return p.Records(ctx)
}

// nextPage reads the total from a Content-Range header such as "0-99/250".
// Without a total, a full page means there may be more.
func nextPage(contentRange string, offset, limit, got int) paginate.Continuation {
	if _, total, ok := strings.Cut(contentRange, "/"); ok && total != "*" {
		if n, err := strconv.Atoi(total); err == nil {
			return paginate.Offset(offset, limit, n)
		}
	}
	if got < limit {
		return paginate.End()
	}
	return paginate.Offset(offset, limit, offset+got+1)
}

// FindBy returns the first row where column equals value, or nil.
func (c *Client) FindBy(ctx context.Context, table, column, value string) (records.Fields, error) {
	q := url.Values{column: {"eq." + value}, "limit": {"1"}}
	var rows []records.Fields
	if _, err := c.transport.JSON(ctx, http.MethodGet, c.transport.URL(url.PathEscape(table), q), nil, &rows, nil); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Insert adds rows and returns them as stored, in request order.
func (c *Client) Insert(ctx context.Context, table string, rows []records.Fields) ([]records.Fields, error) {
	var out []records.Fields
	_, err := c.transport.JSON(ctx, http.MethodPost, c.transport.URL(url.PathEscape(table), nil), rows, &out,
		http.Header{"Prefer": {"return=representation"}})
	return out, err
}

// Upsert merges rows into existing ones matched on conflictColumn. Every
// row in one call must carry the same columns.
func (c *Client) Upsert(ctx context.Context, table, conflictColumn string, rows []records.Fields) ([]records.Fields, error) {
	q := url.Values{"on_conflict": {conflictColumn}}
	var out []records.Fields
	_, err := c.transport.JSON(ctx, http.MethodPost, c.transport.URL(url.PathEscape(table), q), rows, &out,
		http.Header{"Prefer": {"resolution=merge-duplicates,return=representation"}})
	return out, err
}

type openAPI struct {
	Definitions map[string]struct {
		Properties map[string]any `json:"properties"`
	} `json:"definitions"`
}

// Columns returns the column names of table from the OpenAPI description
// served at the API root.
func (c *Client) Columns(ctx context.Context, table string) ([]string, error) {
	var doc openAPI
	if _, err := c.transport.JSON(ctx, http.MethodGet, c.transport.URL("/", nil), nil, &doc, nil); err != nil {
		return nil, errors.WrapResource("fetch", "schema", table, err)
	}
	def, ok := doc.Definitions[table]
	if !ok {
		return nil, errors.NewNotFoundError("table", table)
	}
	cols := make([]string, 0, len(def.Properties))
	for name := range def.Properties {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols, nil
}
