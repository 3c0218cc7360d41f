package paginate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/records"
)

func makeRecords(page, n int) []records.RemoteRecord {
	out := make([]records.RemoteRecord, n)
	for i := range out {
		out[i] = records.RemoteRecord{ID: fmt.Sprintf("p%d-%d", page, i)}
	}
	return out
}

func cursorFetcher(pages int, perPage int, calls *int) paginate.Fetcher {
	return paginate.FetcherFunc(func(_ context.Context, req paginate.Request) (paginate.Page, error) {
		*calls++
		page := 1
		if req.Continuation.Style == paginate.StyleCursor {
			_, _ = fmt.Sscanf(req.Continuation.Cursor, "c%d", &page)
		}
		next := paginate.End()
		if page < pages {
			next = paginate.Cursor(fmt.Sprintf("c%d", page+1))
		}
		return paginate.Page{Records: makeRecords(page, perPage), Next: next}, nil
	})
}

func TestCursorPaginationTerminates(t *testing.T) {
	calls := 0
	p, err := paginate.New(cursorFetcher(3, 50, &calls), paginate.Request{Endpoint: "/items"}, paginate.WithDelay(0))
	require.NoError(t, err)

	got, err := paginate.Collect(p.Records(context.Background()))
	require.NoError(t, err)
	assert.Len(t, got, 150)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, p.Pages())

	ids := make(map[string]bool)
	for _, r := range got {
		assert.False(t, ids[r.ID], "record %s yielded twice", r.ID)
		ids[r.ID] = true
	}
}

func TestSecondIterationIsRejected(t *testing.T) {
	calls := 0
	p, err := paginate.New(cursorFetcher(1, 2, &calls), paginate.Request{}, paginate.WithDelay(0))
	require.NoError(t, err)

	_, err = paginate.Collect(p.Records(context.Background()))
	require.NoError(t, err)

	_, err = paginate.Collect(p.Records(context.Background()))
	assert.ErrorIs(t, err, errors.ErrPaginatorConsumed)
	assert.Equal(t, 1, calls)
}

func TestOffsetAndLinkStyles(t *testing.T) {
	t.Run("offset", func(t *testing.T) {
		var offsets []int
		f := paginate.FetcherFunc(func(_ context.Context, req paginate.Request) (paginate.Page, error) {
			offsets = append(offsets, req.Continuation.Offset)
			return paginate.Page{
				Records: makeRecords(req.Continuation.Offset, 10),
				Next:    paginate.Offset(req.Continuation.Offset, req.PageSize, 25),
			}, nil
		})
		p, err := paginate.New(f, paginate.Request{PageSize: 10}, paginate.WithDelay(0))
		require.NoError(t, err)
		got, err := paginate.Collect(p.Records(context.Background()))
		require.NoError(t, err)
		assert.Len(t, got, 30)
		assert.Equal(t, []int{0, 10, 20}, offsets)
	})

	t.Run("link", func(t *testing.T) {
		f := paginate.FetcherFunc(func(_ context.Context, req paginate.Request) (paginate.Page, error) {
			if req.Continuation.Style == paginate.StyleLink {
				return paginate.Page{Records: makeRecords(2, 1), Next: paginate.Link("")}, nil
			}
			return paginate.Page{Records: makeRecords(1, 1), Next: paginate.Link("https://api.example/next")}, nil
		})
		p, err := paginate.New(f, paginate.Request{}, paginate.WithDelay(0))
		require.NoError(t, err)
		got, err := paginate.Collect(p.Records(context.Background()))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestFailureKeepsPartialResults(t *testing.T) {
	f := paginate.FetcherFunc(func(_ context.Context, req paginate.Request) (paginate.Page, error) {
		if req.Continuation.IsFirst() {
			return paginate.Page{Records: makeRecords(1, 5), Next: paginate.Cursor("two")}, nil
		}
		return paginate.Page{}, errors.NewAPIError("sermons", 503, "maintenance")
	})
	p, err := paginate.New(f, paginate.Request{Endpoint: "/collections/x/items"}, paginate.WithDelay(0))
	require.NoError(t, err)

	got, err := paginate.Collect(p.Records(context.Background()))
	assert.Len(t, got, 5)

	var pageErr *errors.PaginationError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, "/collections/x/items", pageErr.Endpoint)
	assert.Equal(t, 503, pageErr.StatusCode)
	assert.Equal(t, 2, pageErr.Page)
	assert.True(t, errors.IsRemoteUnavailable(err))
}

func TestRepeatedContinuationStops(t *testing.T) {
	calls := 0
	f := paginate.FetcherFunc(func(context.Context, paginate.Request) (paginate.Page, error) {
		calls++
		return paginate.Page{Records: makeRecords(calls, 1), Next: paginate.Cursor("same")}, nil
	})
	p, err := paginate.New(f, paginate.Request{}, paginate.WithDelay(0))
	require.NoError(t, err)

	got, err := paginate.Collect(p.Records(context.Background()))
	assert.ErrorIs(t, err, errors.ErrPaginationLoop)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, calls)
}

func TestMaxPages(t *testing.T) {
	calls := 0
	p, err := paginate.New(cursorFetcher(10, 1, &calls), paginate.Request{}, paginate.WithDelay(0), paginate.WithMaxPages(4))
	require.NoError(t, err)
	got, err := paginate.Collect(p.Records(context.Background()))
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestEarlyBreakStopsFetching(t *testing.T) {
	calls := 0
	p, err := paginate.New(cursorFetcher(3, 50, &calls), paginate.Request{}, paginate.WithDelay(0))
	require.NoError(t, err)
	n := 0
	for _, err := range p.Records(context.Background()) {
		require.NoError(t, err)
		n++
		if n == 60 {
			break
		}
	}
	assert.Equal(t, 2, calls)
}

func TestCanceledContext(t *testing.T) {
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := paginate.New(cursorFetcher(3, 1, &calls), paginate.Request{})
	require.NoError(t, err)
	_, err = paginate.Collect(p.Records(ctx))
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.Zero(t, calls)
}

func TestOptionsValidation(t *testing.T) {
	_, err := paginate.New(nil, paginate.Request{})
	assert.True(t, errors.IsValidationError(err))

	calls := 0
	_, err = paginate.New(cursorFetcher(1, 1, &calls), paginate.Request{}, paginate.WithDelay(-1))
	assert.True(t, errors.IsValidationError(err))
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want paginate.Continuation
	}{
		{"camel cursor", `{"nextCursor":"abc"}`, paginate.Cursor("abc")},
		{"snake cursor", `{"next_cursor":"abc"}`, paginate.Cursor("abc")},
		{"next page link", `{"next_page":"https://x/2"}`, paginate.Link("https://x/2")},
		{"jsonapi links", `{"links":{"self":"https://x/1","next":"https://x/2"}}`, paginate.Link("https://x/2")},
		{"pagination block", `{"pagination":{"offset":0,"limit":100,"total":150}}`, paginate.Continuation{Style: paginate.StyleOffset, Offset: 100}},
		{"last offset page", `{"pagination":{"offset":100,"limit":100,"total":150}}`, paginate.End()},
		{"top level offset", `{"offset":0,"limit":50,"total":51}`, paginate.Continuation{Style: paginate.StyleOffset, Offset: 50}},
		{"zero limit ends", `{"offset":0,"limit":0,"total":51}`, paginate.End()},
		{"nested cursor", `{"pagination":{"nextCursor":"n1","limit":100}}`, paginate.Cursor("n1")},
		{"nested next page", `{"pagination":{"nextPage":"https://x/3"}}`, paginate.Link("https://x/3")},
		{"offset without limit", `{"pagination":{"offset":0,"total":150}}`, paginate.Continuation{Style: paginate.StyleOffset, Offset: 100}},
		{"cursor wins over link", `{"nextCursor":"c","links":{"next":"https://x"}}`, paginate.Cursor("c")},
		{"nothing", `{"items":[]}`, paginate.End()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := paginate.DecodeEnvelope([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Next())
		})
	}
}
