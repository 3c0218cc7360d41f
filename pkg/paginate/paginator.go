package paginate

import (
	"context"
	"fmt"
	"iter"
	"time"

	"golang.org/x/time/rate"

	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/records"
)

// Request describes one page fetch.
type Request struct {
	Endpoint     string
	PageSize     int
	Continuation Continuation
}

// Page is one fetched page and the signal for the next one.
type Page struct {
	Records []records.RemoteRecord
	Next    Continuation
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (Page, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (Page, error) {
	return f(ctx, req)
}

type options struct {
	delay    time.Duration
	maxPages int
}

func defaultOptions() *options {
	return &options{delay: constants.DefaultPageDelay}
}

// Option configures a Paginator.
type Option func(*options) error

// WithDelay sets the minimum spacing between page fetches. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.NewValidationError("page_delay", d, "must be non-negative")
		}
		o.delay = d
		return nil
	}
}

// WithMaxPages caps the number of pages fetched. Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.NewValidationError("max_pages", n, "must be non-negative")
		}
		o.maxPages = n
		return nil
	}
}

// Paginator walks a remote collection once.
type Paginator struct {
	fetcher  Fetcher
	start    Request
	limiter  *rate.Limiter
	maxPages int
	consumed bool
	pages    int
}

// New creates a Paginator starting at start.
func New(fetcher Fetcher, start Request, opts ...Option) (*Paginator, error) {
	if fetcher == nil {
		return nil, errors.NewValidationError("fetcher", nil, "cannot be nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if start.PageSize <= 0 {
		start.PageSize = constants.DefaultPageSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(o.delay), 1)
	}
	return &Paginator{
		fetcher:  fetcher,
		start:    start,
		limiter:  limiter,
		maxPages: o.maxPages,
	}, nil
}

// Pages returns how many pages have been fetched so far.
func (p *Paginator) Pages() int { return p.pages }

// Records returns the lazy record sequence. It can be ranged over once;
// a second call yields ErrPaginatorConsumed. A fetch failure ends the
// sequence with a *errors.PaginationError after the records already yielded.
func (p *Paginator) Records(ctx context.Context) iter.Seq2[records.RemoteRecord, error] {
	return func(yield func(records.RemoteRecord, error) bool) {
		var zero records.RemoteRecord
		if p.consumed {
			yield(zero, errors.ErrPaginatorConsumed)
			return
		}
		p.consumed = true

		logger := logging.FromContext(ctx)
		req := p.start
		seen := make(map[string]struct{})

		for page := 1; ; page++ {
			if err := p.limiter.Wait(ctx); err != nil {
				yield(zero, &errors.PaginationError{
					Endpoint: req.Endpoint,
					Page:     page,
					Err:      fmt.Errorf("%w: %w", errors.ErrCanceled, err),
				})
				return
			}

			result, err := p.fetcher.Fetch(ctx, req)
			if err != nil {
				yield(zero, &errors.PaginationError{
					Endpoint:   req.Endpoint,
					StatusCode: errors.StatusCode(err),
					Page:       page,
					Err:        err,
				})
				return
			}
			p.pages++

			logger.Debug().
				Str("endpoint", req.Endpoint).
				Int("page", page).
				Int("records", len(result.Records)).
				Msg("Fetched page")

			for _, rec := range result.Records {
				if !yield(rec, nil) {
					return
				}
			}

			next := result.Next
			if next.Done() || next.IsFirst() {
				return
			}
			if p.maxPages > 0 && page >= p.maxPages {
				logger.Warn().Str("endpoint", req.Endpoint).Int("max_pages", p.maxPages).Msg("Stopped at page limit")
				return
			}
			k := next.key()
			if _, dup := seen[k]; dup {
				yield(zero, &errors.PaginationError{
					Endpoint: req.Endpoint,
					Page:     page + 1,
					Err:      fmt.Errorf("%w: %s", errors.ErrPaginationLoop, k),
				})
				return
			}
			seen[k] = struct{}{}
			req.Continuation = next
		}
	}
}

// Collect drains seq into a slice. On error it returns the items gathered
// before the failure together with the error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
