// Package planningcenter reads form submissions and calendar events from the
// Planning Center API.
package planningcenter

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/churchmedia/pewsync/internal/transport"
	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/records"
)

// Client talks to the Planning Center API with application credentials.
type Client struct {
	transport *transport.Client
	pageSize  int
	pageOpts  []paginate.Option
	formPages int
	now       func() time.Time
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL   string
	http      *http.Client
	pageSize  int
	pageOpts  []paginate.Option
	formPages int
	now       func() time.Time
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.http = hc }
}

// WithPageSize sets per_page for list calls.
func WithPageSize(n int) Option {
	return func(c *clientConfig) { c.pageSize = n }
}

// WithPaginateOptions passes options to every paginator.
func WithPaginateOptions(opts ...paginate.Option) Option {
	return func(c *clientConfig) { c.pageOpts = append(c.pageOpts, opts...) }
}

// WithFormPageLimit caps how many pages of form submissions one walk reads.
// Zero means unlimited.
func WithFormPageLimit(n int) Option {
	return func(c *clientConfig) { c.formPages = n }
}

// WithClock sets the time source used to pick future event instances.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) { c.now = now }
}

// New creates a client using HTTP basic auth with appID and secret.
func New(appID, secret string, opts ...Option) *Client {
	cfg := &clientConfig{baseURL: constants.PlanningCenterAPIBase, pageSize: constants.DefaultPageSize, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		transport: transport.New("planningcenter", cfg.baseURL,
			&transport.BasicAuth{Username: appID, Password: secret},
			transport.WithHTTPClient(cfg.http),
		),
		pageSize:  cfg.pageSize,
		pageOpts:  cfg.pageOpts,
		formPages: cfg.formPages,
		now:       cfg.now,
	}
}

// Resources walks a JSON:API list, following links.next. Included
// resources stay reachable through Resource.Include. extra is applied after
// the client's paginate options.
func (c *Client) Resources(ctx context.Context, path string, query url.Values, extra ...paginate.Option) iter.Seq2[Resource, error] {
	return func(yield func(Resource, error) bool) {
		data := make(map[string]Resource)
		included := make(map[string]Resource)

		fetcher := paginate.FetcherFunc(func(ctx context.Context, req paginate.Request) (paginate.Page, error) {
			var doc Document
			if _, err := c.transport.JSON(ctx, http.MethodGet, c.pageURL(req, query), nil, &doc, nil); err != nil {
				return paginate.Page{}, err
			}
			for _, inc := range doc.Included {
				included[includeKey(inc.Type, inc.ID)] = inc
			}
			page := paginate.Page{Records: make([]records.RemoteRecord, 0, len(doc.Data)), Next: doc.Next()}
			for _, r := range doc.Data {
				r.included = included
				data[r.ID] = r
				page.Records = append(page.Records, records.RemoteRecord{ID: r.ID, Fields: r.Attributes})
			}
			return page, nil
		})

		opts := append(append([]paginate.Option(nil), c.pageOpts...), extra...)
		p, err := paginate.New(fetcher, paginate.Request{Endpoint: path, PageSize: c.pageSize}, opts...)
		if err != nil {
			yield(Resource{}, err)
			return
		}
		for rec, err := range p.Records(ctx) {
			if err != nil {
				yield(Resource{}, err)
				return
			}
			r := data[rec.ID]
			delete(data, rec.ID)
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (c *Client) pageURL(req paginate.Request, query url.Values) string {
	if req.Continuation.Style == paginate.StyleLink {
		return req.Continuation.URL
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("per_page", strconv.Itoa(req.PageSize))
	if req.Continuation.Style == paginate.StyleOffset {
		q.Set("offset", strconv.Itoa(req.Continuation.Offset))
	}
	return c.transport.URL(req.Endpoint, q)
}

// SubmissionList walks the submissions of a form, newest first, with their
// person but without answers. The walk stops at the form page limit.
func (c *Client) SubmissionList(ctx context.Context, formID string) iter.Seq2[Submission, error] {
	path := "people/v2/forms/" + url.PathEscape(formID) + "/form_submissions"
	query := url.Values{"order": {"-created_at"}, "include": {"person"}}

	return func(yield func(Submission, error) bool) {
		for r, err := range c.Resources(ctx, path, query, paginate.WithMaxPages(c.formPages)) {
			if err != nil {
				yield(Submission{}, err)
				return
			}
			sub := Submission{ID: r.ID, CreatedAt: r.Attributes.String("created_at")}
			if person, ok := r.Include("person"); ok {
				sub.Person = personFrom(person)
			}
			if !yield(sub, nil) {
				return
			}
		}
	}
}

// Submissions is SubmissionList with answers attached. Values are fetched
// per submission that has a person.
func (c *Client) Submissions(ctx context.Context, formID string) iter.Seq2[Submission, error] {
	return func(yield func(Submission, error) bool) {
		for sub, err := range c.SubmissionList(ctx, formID) {
			if err != nil {
				yield(Submission{}, err)
				return
			}
			if sub.Person != nil {
				values, err := c.SubmissionValues(ctx, formID, sub.ID)
				if err != nil {
					yield(Submission{}, err)
					return
				}
				sub.Values = values
			}
			if !yield(sub, nil) {
				return
			}
		}
	}
}

// SubmissionValues returns display values of one submission keyed by form field id.
func (c *Client) SubmissionValues(ctx context.Context, formID, submissionID string) (map[string]string, error) {
	path := "people/v2/forms/" + url.PathEscape(formID) + "/form_submissions/" + url.PathEscape(submissionID) + "/form_submission_values"
	values := make(map[string]string)
	for r, err := range c.Resources(ctx, path, nil) {
		if err != nil {
			return nil, errors.WrapResource("fetch", "submission values", submissionID, err)
		}
		ref, ok := r.Related("form_field")
		if !ok {
			continue
		}
		values[ref.ID] = r.Attributes.String("display_value")
	}
	return values, nil
}

// Events walks future calendar events.
func (c *Client) Events(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for r, err := range c.Resources(ctx, "calendar/v2/events", url.Values{"filter": {"future"}}) {
			if err != nil {
				yield(Event{}, err)
				return
			}
			if !yield(eventFrom(r), nil) {
				return
			}
		}
	}
}

// NextInstance returns the first instance of an event starting after now,
// or nil when none is scheduled.
func (c *Client) NextInstance(ctx context.Context, eventID string) (*EventInstance, error) {
	path := "calendar/v2/events/" + url.PathEscape(eventID) + "/event_instances"
	now := c.now()
	for r, err := range c.Resources(ctx, path, nil) {
		if err != nil {
			return nil, errors.WrapResource("fetch", "event instances", eventID, err)
		}
		inst, err := instanceFrom(r)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("event_id", eventID).Msg("Skipping event instance")
			continue
		}
		if inst.StartsAt.After(now) {
			return inst, nil
		}
	}
	return nil, nil
}

func instanceFrom(r Resource) (*EventInstance, error) {
	startsRaw := r.Attributes.String("starts_at")
	starts, err := time.Parse(time.RFC3339, strings.TrimSpace(startsRaw))
	if err != nil {
		return nil, errors.WrapParse("time", "starts_at", err)
	}
	inst := &EventInstance{
		ID:              r.ID,
		StartsAt:        starts,
		StartsAtRaw:     startsRaw,
		EndsAtRaw:       r.Attributes.String("ends_at"),
		Location:        r.Attributes.String("location"),
		ChurchCenterURL: r.Attributes.String("church_center_url"),
	}
	if ends, err := time.Parse(time.RFC3339, strings.TrimSpace(inst.EndsAtRaw)); err == nil {
		inst.EndsAt = ends
	}
	return inst, nil
}
