// Package store defines the persistence contracts. Implementations live in
// sqlstore (gorm: postgres, sqlite) and mongostore (MongoDB).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// Query selects a feed: every item of a kind, optionally narrowed to one author.
// Results are always ordered by CreatedAt DESC, ID DESC.
type Query struct {
	Kind     models.ItemKind
	AuthorID string
}

// Cursor is a position in the feed ordering, used for seek pagination
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// LikeState is the outcome of a like toggle
type LikeState struct {
	Liked bool
	Count int
	Likes []string
}

// ItemRepository stores posts and reels
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	// GetItem returns the item with author, likes and comments hydrated
	GetItem(ctx context.Context, kind models.ItemKind, id string) (*models.Item, error)
	// DeleteItem removes the item together with its likes and comments
	DeleteItem(ctx context.Context, kind models.ItemKind, id string) error

	CountItems(ctx context.Context, q Query) (int64, error)
	ListItems(ctx context.Context, q Query, offset, limit int) ([]*models.Item, error)
	ListItemsAfter(ctx context.Context, q Query, after *Cursor, limit int) ([]*models.Item, error)
	// ItemIDs returns ids in feed order; a negative limit returns all of them
	ItemIDs(ctx context.Context, q Query, offset, limit int) ([]string, error)
	// ItemRank returns the 0-based position of id in the feed, or ErrNotFound
	ItemRank(ctx context.Context, q Query, id string) (int64, error)

	ToggleLike(ctx context.Context, kind models.ItemKind, itemID, userID string) (*LikeState, error)
	// AppendComment assigns ID, Position and CreatedAt and hydrates User
	AppendComment(ctx context.Context, comment *models.Comment) error
}

// UserRepository stores accounts and the follow graph
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	// GetUserByLogin matches email or username, case-insensitively
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error)
	SuggestedUsers(ctx context.Context, userID string, limit int) ([]models.UserSummary, error)

	// Follow and Unfollow report whether the graph changed; repeats are no-ops
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]models.UserSummary, error)
	Following(ctx context.Context, userID string) ([]models.UserSummary, error)
	FollowCounts(ctx context.Context, userID string) (followers int64, following int64, err error)
}

// ChatRepository stores chats and their messages
type ChatRepository interface {
	// FindOrCreateChat returns the chat for the unordered pair, creating it on first contact
	FindOrCreateChat(ctx context.Context, a, b string) (*models.Chat, bool, error)
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	ListChats(ctx context.Context, userID string) ([]*models.Chat, error)

	// AppendMessage stores the message and points the chat's last message at it
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	Messages(ctx context.Context, chatID string) ([]*models.Message, error)
	MarkSeen(ctx context.Context, chatID, userID string) (int64, error)
}

// RepairReport summarizes what a repair pass fixed
type RepairReport struct {
	ItemCounts   int64 `json:"itemCounts"`
	LastMessages int64 `json:"lastMessages"`
	FollowEdges  int64 `json:"followEdges"`
}

// Total is the number of records touched
func (r *RepairReport) Total() int64 {
	return r.ItemCounts + r.LastMessages + r.FollowEdges
}

// Repairer recomputes denormalized state from the source relations
type Repairer interface {
	Repair(ctx context.Context) (*RepairReport, error)
}

// Store bundles the repositories behind one connection
type Store interface {
	Repairer
	Items() ItemRepository
	Users() UserRepository
	Chats() ChatRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
