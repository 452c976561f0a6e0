package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ItemKind discriminates posts from reels. Both share one table and one ordering.
type ItemKind string

const (
	KindPost ItemKind = "post"
	KindReel ItemKind = "reel"
)

// Valid reports whether k is a known kind
func (k ItemKind) Valid() bool {
	return k == KindPost || k == KindReel
}

// Topic is the realtime topic lifecycle events for this kind are published on
func (k ItemKind) Topic() string {
	return string(k) + "s"
}

// Event builds the realtime event name, e.g. KindReel.Event("Liked") == "reelLiked"
func (k ItemKind) Event(action string) string {
	return string(k) + action
}

// IDField is the payload key that carries an item id in realtime events ("postId"/"reelId")
func (k ItemKind) IDField() string {
	return string(k) + "Id"
}

// Item is a post or a reel.
//
// LikeCount and CommentCount are denormalized and updated in the same
// transaction as the like/comment rows they summarize.
type Item struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Kind         ItemKind  `gorm:"size:8;not null;index:idx_items_feed,priority:1;index:idx_items_author,priority:1"`
	Caption      string    `gorm:"size:300"`
	MediaURL     string    `gorm:"type:text"`
	PostedBy     string    `gorm:"size:36;not null;index:idx_items_author,priority:2"`
	LikeCount    int       `gorm:"not null;default:0"`
	CommentCount int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null;index:idx_items_feed,priority:2;index:idx_items_author,priority:3"`
	UpdatedAt    time.Time

	// Hydrated on read
	Author   *UserSummary `gorm:"-"`
	Likes    []string     `gorm:"-"`
	Comments []*Comment   `gorm:"-"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}

// HasLike reports whether userID is in the hydrated like set
func (i *Item) HasLike(userID string) bool {
	for _, id := range i.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

type itemJSON struct {
	ID            string       `json:"id"`
	Kind          ItemKind     `json:"kind"`
	Caption       string       `json:"caption"`
	ImageURL      *string      `json:"imageUrl,omitempty"`
	VideoURL      *string      `json:"videoUrl,omitempty"`
	PostedBy      *UserSummary `json:"postedBy"`
	Likes         []string     `json:"likes"`
	LikesCount    int          `json:"likesCount"`
	Comments      []*Comment   `json:"comments"`
	CommentsCount int          `json:"commentsCount"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// MarshalJSON renders the media field under imageUrl for posts and videoUrl for reels
func (i Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		ID:            i.ID,
		Kind:          i.Kind,
		Caption:       i.Caption,
		PostedBy:      i.Author,
		Likes:         i.Likes,
		LikesCount:    i.LikeCount,
		Comments:      i.Comments,
		CommentsCount: i.CommentCount,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
	if out.PostedBy == nil {
		out.PostedBy = &UserSummary{ID: i.PostedBy}
	}
	if out.Likes == nil {
		out.Likes = []string{}
	}
	if out.Comments == nil {
		out.Comments = []*Comment{}
	}
	media := i.MediaURL
	if i.Kind == KindReel {
		out.VideoURL = &media
	} else {
		out.ImageURL = &media
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON; clients decode server payloads with it
func (i *Item) UnmarshalJSON(data []byte) error {
	var in itemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*i = Item{
		ID:           in.ID,
		Kind:         in.Kind,
		Caption:      in.Caption,
		Author:       in.PostedBy,
		Likes:        in.Likes,
		LikeCount:    in.LikesCount,
		Comments:     in.Comments,
		CommentCount: in.CommentsCount,
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.UpdatedAt,
	}
	if in.PostedBy != nil {
		i.PostedBy = in.PostedBy.ID
	}
	switch {
	case in.VideoURL != nil:
		i.MediaURL = *in.VideoURL
		if i.Kind == "" {
			i.Kind = KindReel
		}
	case in.ImageURL != nil:
		i.MediaURL = *in.ImageURL
		if i.Kind == "" {
			i.Kind = KindPost
		}
	}
	return nil
}

// Like is one user's like on one item. The composite key makes a second like
// by the same user impossible at the storage level.
type Like struct {
	ItemKind  ItemKind  `gorm:"primaryKey;size:8"`
	ItemID    string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"not null"`
}

// Comment is append-only. Position is 1-based insertion order within the item.
type Comment struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	ItemKind  ItemKind     `gorm:"size:8;not null;uniqueIndex:idx_comments_position,priority:1" json:"-"`
	ItemID    string       `gorm:"size:36;not null;uniqueIndex:idx_comments_position,priority:2" json:"itemId"`
	Position  int          `gorm:"not null;uniqueIndex:idx_comments_position,priority:3" json:"position"`
	UserID    string       `gorm:"size:36;not null" json:"userId"`
	Text      string       `gorm:"size:150;not null" json:"text"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	User      *UserSummary `gorm:"-" json:"user"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// ReelPreview is the compact projection used to warm the next reel on the client
type ReelPreview struct {
	ID            string       `json:"id"`
	VideoURL      string       `json:"videoUrl"`
	Caption       string       `json:"caption"`
	PostedBy      *UserSummary `json:"postedBy"`
	LikesCount    int          `json:"likesCount"`
	CommentsCount int          `json:"commentsCount"`
}

// Preview projects a reel for preloading
func (i *Item) Preview() *ReelPreview {
	author := i.Author
	if author == nil {
		author = &UserSummary{ID: i.PostedBy}
	}
	return &ReelPreview{
		ID:            i.ID,
		VideoURL:      i.MediaURL,
		Caption:       i.Caption,
		PostedBy:      author,
		LikesCount:    i.LikeCount,
		CommentsCount: i.CommentCount,
	}
}
