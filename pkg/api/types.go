package api

import (
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
)

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Page is one offset page of a feed. Items holds reels or posts.
type Page struct {
	Items       []models.Item
	CurrentPage int
	HasMore     bool
	Total       int64
}

// SeekPage is one keyset page of a feed
type SeekPage struct {
	Items      []models.Item
	NextCursor string
	HasMore    bool
}

// feedBody carries both kinds' keys; only one list is set per response
type feedBody struct {
	Reels       []models.Item `json:"reels"`
	Posts       []models.Item `json:"posts"`
	CurrentPage int           `json:"currentPage"`
	HasMore     bool          `json:"hasMore"`
	TotalReels  int64         `json:"totalReels"`
	TotalPosts  int64         `json:"totalPosts"`
	NextCursor  string        `json:"nextCursor"`
}

func (b *feedBody) items() []models.Item {
	if b.Reels != nil {
		return b.Reels
	}
	return b.Posts
}

// ReelContext is a reel with its neighbours in feed order
type ReelContext struct {
	Reel         *models.Item `json:"reel"`
	CurrentIndex int64        `json:"currentIndex"`
	NextReelID   *string      `json:"nextReelId"`
	PrevReelID   *string      `json:"prevReelId"`
	HasNext      bool         `json:"hasNext"`
	HasPrev      bool         `json:"hasPrev"`
	TotalReels   int64        `json:"totalReels"`
}

// LikeResult is the common part of both like responses. Post is only set for posts.
type LikeResult struct {
	Message    string       `json:"message"`
	IsLiked    bool         `json:"isLiked"`
	LikesCount int          `json:"likesCount"`
	Post       *models.Item `json:"post,omitempty"`
}

// CommentResult answers a comment; Post is only set for posts
type CommentResult struct {
	Comment *models.Comment `json:"comment"`
	Post    *models.Item    `json:"post,omitempty"`
}

// FollowResult answers follow and unfollow
type FollowResult struct {
	Message string `json:"message"`
	Changed bool   `json:"changed"`
}
