package feed

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.uber.org/zap"
)

// resolveAttempts bounds the re-ranking loop when the feed moves between the
// rank query and the window read.
const resolveAttempts = 3

// Context is an item plus its neighbours in feed order
type Context struct {
	Reel         *models.Item `json:"reel"`
	CurrentIndex int64        `json:"currentIndex"`
	NextReelID   *string      `json:"nextReelId"`
	PrevReelID   *string      `json:"prevReelId"`
	HasNext      bool         `json:"hasNext"`
	HasPrev      bool         `json:"hasPrev"`
	TotalReels   int64        `json:"totalReels"`
}

// Resolver answers "where am I in the feed" questions
type Resolver struct {
	src      Source
	strategy Strategy
}

// NewResolver creates a resolver; an empty strategy means indexed
func NewResolver(src Source, strategy Strategy) *Resolver {
	if strategy == "" {
		strategy = StrategyIndexed
	}
	return &Resolver{src: src, strategy: strategy}
}

// Strategy reports the rank strategy in use
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// ResolveByIndex returns the item at position i and its neighbours. Any i
// outside [0, total) is ErrOutOfRange; there is no clamping.
func (r *Resolver) ResolveByIndex(ctx context.Context, q store.Query, i int64) (*Context, error) {
	defer r.observe("index", time.Now())

	total, err := r.src.CountItems(ctx, q)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= total {
		return nil, ErrOutOfRange
	}

	w, err := r.window(ctx, q, i)
	if err != nil {
		return nil, err
	}
	if w.current == "" {
		// the feed shrank after the count
		return nil, ErrOutOfRange
	}
	return r.build(ctx, q, i, total, w)
}

// ResolveByID locates id in the feed and returns the same shape as
// ResolveByIndex. A missing id is store.ErrNotFound.
func (r *Resolver) ResolveByID(ctx context.Context, q store.Query, id string) (*Context, error) {
	defer r.observe("id", time.Now())

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		rank, err := r.Rank(ctx, q, id)
		if err != nil {
			return nil, err
		}
		total, err := r.src.CountItems(ctx, q)
		if err != nil {
			return nil, err
		}

		w, err := r.window(ctx, q, rank)
		if err != nil {
			return nil, err
		}
		if w.current == id {
			return r.build(ctx, q, rank, total, w)
		}

		logger.Log.Debug("Feed moved during resolve, re-ranking",
			logger.WithItemID(id),
			zap.Int64("rank", rank),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, store.ErrNotFound
}

// Rank returns the 0-based position of id using the configured strategy
func (r *Resolver) Rank(ctx context.Context, q store.Query, id string) (int64, error) {
	if r.strategy == StrategyScan {
		ids, err := r.src.ItemIDs(ctx, q, 0, -1)
		if err != nil {
			return 0, err
		}
		idx := slices.Index(ids, id)
		if idx < 0 {
			return 0, store.ErrNotFound
		}
		return int64(idx), nil
	}
	return r.src.ItemRank(ctx, q, id)
}

type window struct {
	prev, current, next string
}

// window reads ids [i-1, i+1] in one query
func (r *Resolver) window(ctx context.Context, q store.Query, i int64) (window, error) {
	lo := max(i-1, 0)
	ids, err := r.src.ItemIDs(ctx, q, int(lo), int(i-lo)+2)
	if err != nil {
		return window{}, err
	}

	var w window
	at := int(i - lo)
	if at > 0 && len(ids) > 0 {
		w.prev = ids[0]
	}
	if at < len(ids) {
		w.current = ids[at]
	}
	if at+1 < len(ids) {
		w.next = ids[at+1]
	}
	return w, nil
}

func (r *Resolver) build(ctx context.Context, q store.Query, i, total int64, w window) (*Context, error) {
	item, err := r.src.GetItem(ctx, q.Kind, w.current)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// deleted between the window read and the fetch
			return nil, ErrOutOfRange
		}
		return nil, err
	}

	out := &Context{
		Reel:         item,
		CurrentIndex: i,
		TotalReels:   total,
	}
	if w.prev != "" {
		out.PrevReelID = &w.prev
		out.HasPrev = true
	}
	if w.next != "" {
		out.NextReelID = &w.next
		out.HasNext = true
	}
	return out, nil
}

func (r *Resolver) observe(mode string, start time.Time) {
	metrics.Get().FeedResolveDuration.WithLabelValues(mode, string(r.strategy)).Observe(time.Since(start).Seconds())
}
