// Package paginate walks a remote collection across pages and exposes the
// result as one lazy sequence of records, whatever pagination style the
// remote uses.
package paginate

import (
	"encoding/json"
	"strconv"

	"github.com/churchmedia/pewsync/pkg/constants"
)

// Style identifies how a remote signals the next page.
type Style int

const (
	// StyleFirst requests the first page.
	StyleFirst Style = iota
	// StyleEnd means there is no further page.
	StyleEnd
	// StyleCursor follows an opaque cursor token.
	StyleCursor
	// StyleLink follows an explicit next URL.
	StyleLink
	// StyleOffset follows an offset into a list of known total length.
	StyleOffset
)

// Continuation is the single signal that drives the walk. The zero value
// requests the first page; End() stops it.
type Continuation struct {
	Style  Style
	Cursor string
	URL    string
	Offset int
}

// End returns a continuation that stops the walk.
func End() Continuation { return Continuation{Style: StyleEnd} }

// Cursor continues with an opaque cursor token; an empty token ends the walk.
func Cursor(token string) Continuation {
	if token == "" {
		return End()
	}
	return Continuation{Style: StyleCursor, Cursor: token}
}

// Link continues with an explicit next URL; an empty URL ends the walk.
func Link(url string) Continuation {
	if url == "" {
		return End()
	}
	return Continuation{Style: StyleLink, URL: url}
}

// Offset computes the continuation after a page that started at offset and
// requested limit items out of total. It ends the walk once offset+limit
// reaches total, or when limit is not positive.
func Offset(offset, limit, total int) Continuation {
	if limit <= 0 {
		return End()
	}
	next := offset + limit
	if next >= total {
		return End()
	}
	return Continuation{Style: StyleOffset, Offset: next}
}

// Done reports whether the walk should stop.
func (c Continuation) Done() bool { return c.Style == StyleEnd }

// IsFirst reports whether c requests the first page.
func (c Continuation) IsFirst() bool { return c.Style == StyleFirst }

func (c Continuation) key() string {
	switch c.Style {
	case StyleCursor:
		return "cursor:" + c.Cursor
	case StyleLink:
		return "link:" + c.URL
	case StyleOffset:
		return "offset:" + strconv.Itoa(c.Offset)
	default:
		return ""
	}
}

// Block is the pagination object some remotes nest under "pagination".
// It may carry a cursor, a next link or an offset/limit/total triple.
type Block struct {
	NextCursor      string `json:"nextCursor,omitempty"`
	NextCursorSnake string `json:"next_cursor,omitempty"`
	NextPage        string `json:"nextPage,omitempty"`
	NextPageSnake   string `json:"next_page,omitempty"`
	Offset          *int   `json:"offset,omitempty"`
	Limit           *int   `json:"limit,omitempty"`
	Total           *int   `json:"total,omitempty"`
}

// Envelope decodes the pagination signals found in list responses:
// cursor tokens (nextCursor, next_cursor), next links (nextPage, next_page,
// links.next), and offset/limit/total, either at the top level or in a
// "pagination" block.
type Envelope struct {
	Block
	Links      *Links `json:"links,omitempty"`
	Pagination *Block `json:"pagination,omitempty"`
}

// Links is the JSON:API links object.
type Links struct {
	Next string `json:"next,omitempty"`
}

// DecodeEnvelope reads the pagination signals from a raw list response.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(body, &env)
	return env, err
}

// Next returns the continuation the envelope signals. A cursor wins over a
// link, which wins over offset/total. A missing limit counts as the
// default page size.
func (e Envelope) Next() Continuation {
	nested := Block{}
	if e.Pagination != nil {
		nested = *e.Pagination
	}
	if c := firstNonEmpty(e.NextCursor, e.NextCursorSnake, nested.NextCursor, nested.NextCursorSnake); c != "" {
		return Cursor(c)
	}
	next := firstNonEmpty(e.NextPage, e.NextPageSnake, nested.NextPage, nested.NextPageSnake)
	if next == "" && e.Links != nil {
		next = e.Links.Next
	}
	if next != "" {
		return Link(next)
	}
	for _, b := range []Block{nested, e.Block} {
		if b.Offset != nil && b.Total != nil {
			limit := constants.DefaultPageSize
			if b.Limit != nil {
				limit = *b.Limit
			}
			return Offset(*b.Offset, limit, *b.Total)
		}
	}
	return End()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
