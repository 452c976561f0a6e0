package feed

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
)

// DefaultMaxPageSize caps page sizes when the paginator is built with zero
const DefaultMaxPageSize = 50

// Cursor is a position in feed order; its token form is opaque to clients
type Cursor = store.Cursor

// EncodeCursor renders c as a URL-safe token
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// CursorOf returns the position just after item
func CursorOf(item *models.Item) Cursor {
	return Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
}

// Page is one offset page
type Page struct {
	Items   []*models.Item
	Page    int
	Size    int
	Total   int64
	HasMore bool
}

// SeekPage is one keyset page
type SeekPage struct {
	Items      []*models.Item
	NextCursor string
	HasMore    bool
}

// Paginator serves offset and seek pages over a Source
type Paginator struct {
	src     Source
	maxSize int
}

// NewPaginator creates a paginator that clamps sizes to maxSize
func NewPaginator(src Source, maxSize int) *Paginator {
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	return &Paginator{src: src, maxSize: maxSize}
}

// Size normalizes a requested page size: non-positive takes def, anything
// above the server maximum is clamped.
func (p *Paginator) Size(requested, def int) int {
	if requested <= 0 {
		requested = def
	}
	if requested <= 0 {
		requested = 1
	}
	return min(requested, p.maxSize)
}

// Page returns items [page*size, page*size+size). A page past the end is empty
// with HasMore false.
func (p *Paginator) Page(ctx context.Context, q store.Query, page, size, def int) (*Page, error) {
	if page < 0 {
		return nil, ErrInvalidPage
	}
	defer observePage(q.Kind, "offset", time.Now())

	size = p.Size(size, def)
	total, err := p.src.CountItems(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &Page{Items: []*models.Item{}, Page: page, Size: size, Total: total}
	offset := int64(page) * int64(size)
	if offset >= total {
		return out, nil
	}

	items, err := p.src.ListItems(ctx, q, int(offset), size)
	if err != nil {
		return nil, err
	}
	out.Items = items
	out.HasMore = offset+int64(size) < total
	return out, nil
}

// After returns up to size items strictly after the token's position. An
// empty token starts at the head of the feed.
func (p *Paginator) After(ctx context.Context, q store.Query, token string, size, def int) (*SeekPage, error) {
	var after *Cursor
	if token != "" {
		c, err := DecodeCursor(token)
		if err != nil {
			return nil, err
		}
		after = c
	}
	defer observePage(q.Kind, "seek", time.Now())

	size = p.Size(size, def)
	items, err := p.src.ListItemsAfter(ctx, q, after, size+1)
	if err != nil {
		return nil, err
	}

	out := &SeekPage{Items: items}
	if len(items) > size {
		out.Items = items[:size]
		out.HasMore = true
		out.NextCursor = EncodeCursor(CursorOf(out.Items[size-1]))
	}
	if out.Items == nil {
		out.Items = []*models.Item{}
	}
	return out, nil
}

func observePage(kind models.ItemKind, mode string, start time.Time) {
	metrics.Get().FeedPageDuration.WithLabelValues(string(kind), mode).Observe(time.Since(start).Seconds())
}
