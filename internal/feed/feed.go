// Package feed resolves reel navigation context and pages through item feeds.
// Every answer is derived from the store on each call; nothing is cached.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
)

var (
	// ErrOutOfRange is returned for an index outside [0, total)
	ErrOutOfRange = errors.New("index out of range")
	// ErrInvalidPage is returned for a negative page number
	ErrInvalidPage = errors.New("page must not be negative")
	// ErrInvalidCursor is returned when a seek token cannot be decoded
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Source is the slice of the item store the feed reads from
type Source interface {
	GetItem(ctx context.Context, kind models.ItemKind, id string) (*models.Item, error)
	CountItems(ctx context.Context, q store.Query) (int64, error)
	ListItems(ctx context.Context, q store.Query, offset, limit int) ([]*models.Item, error)
	ListItemsAfter(ctx context.Context, q store.Query, after *store.Cursor, limit int) ([]*models.Item, error)
	ItemIDs(ctx context.Context, q store.Query, offset, limit int) ([]string, error)
	ItemRank(ctx context.Context, q store.Query, id string) (int64, error)
}

// Strategy selects how the resolver finds an item's rank
type Strategy string

const (
	// StrategyIndexed counts the rows ahead of the target with one query
	StrategyIndexed Strategy = "indexed"
	// StrategyScan materializes the ordered ids and searches them
	StrategyScan Strategy = "scan"
)

// ParseStrategy accepts "indexed" (or empty) and "scan"
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyIndexed:
		return StrategyIndexed, nil
	case StrategyScan:
		return StrategyScan, nil
	default:
		return "", fmt.Errorf("unknown rank strategy %q", s)
	}
}
