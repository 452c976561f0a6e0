package mongostore

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sadwiik06/SocialFlow/internal/models"
)

type likeDoc struct {
	UserID    string    `bson:"userId"`
	CreatedAt time.Time `bson:"createdAt"`
}

type commentDoc struct {
	ID        string    `bson:"id"`
	Position  int       `bson:"position"`
	UserID    string    `bson:"userId"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

type itemDoc struct {
	ID           string          `bson:"_id"`
	Kind         models.ItemKind `bson:"kind"`
	Caption      string          `bson:"caption"`
	MediaURL     string          `bson:"mediaUrl"`
	PostedBy     string          `bson:"postedBy"`
	Likes        []likeDoc       `bson:"likes"`
	LikeCount    int             `bson:"likeCount"`
	Comments     []commentDoc    `bson:"comments"`
	CommentCount int             `bson:"commentCount"`
	CreatedAt    time.Time       `bson:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

func (d *itemDoc) model() *models.Item {
	item := &models.Item{
		ID:           d.ID,
		Kind:         d.Kind,
		Caption:      d.Caption,
		MediaURL:     d.MediaURL,
		PostedBy:     d.PostedBy,
		LikeCount:    d.LikeCount,
		CommentCount: d.CommentCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	item.Likes = lo.Map(d.Likes, func(l likeDoc, _ int) string { return l.UserID })
	item.Comments = lo.Map(d.Comments, func(c commentDoc, _ int) *models.Comment {
		return c.model(d.Kind, d.ID)
	})
	return item
}

func (c commentDoc) model(kind models.ItemKind, itemID string) *models.Comment {
	return &models.Comment{
		ID:        c.ID,
		ItemKind:  kind,
		ItemID:    itemID,
		Position:  c.Position,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

type userDoc struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	UsernameLower  string    `bson:"usernameLower"`
	Email          string    `bson:"email"`
	EmailLower     string    `bson:"emailLower"`
	PasswordHash   string    `bson:"passwordHash"`
	Gender         string    `bson:"gender,omitempty"`
	Bio            string    `bson:"bio"`
	ProfilePicture string    `bson:"profilePicture"`
	Following      []string  `bson:"following"`
	Followers      []string  `bson:"followers"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func newUserDoc(u *models.User) *userDoc {
	return &userDoc{
		ID:             u.ID,
		Username:       u.Username,
		UsernameLower:  strings.ToLower(u.Username),
		Email:          u.Email,
		EmailLower:     strings.ToLower(u.Email),
		PasswordHash:   u.PasswordHash,
		Gender:         u.Gender,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Following:      []string{},
		Followers:      []string{},
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d *userDoc) model() *models.User {
	return &models.User{
		ID:             d.ID,
		Username:       d.Username,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Gender:         d.Gender,
		Bio:            d.Bio,
		ProfilePicture: d.ProfilePicture,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (d *userDoc) summary() models.UserSummary {
	return models.UserSummary{ID: d.ID, Username: d.Username, ProfilePicture: d.ProfilePicture}
}

type chatDoc struct {
	ID            string    `bson:"_id"`
	Pair          string    `bson:"pair"`
	Members       []string  `bson:"members"`
	LastMessageID *string   `bson:"lastMessageId"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func pairKey(low, high string) string {
	return low + ":" + high
}

func (d *chatDoc) model() *models.Chat {
	chat := &models.Chat{
		ID:            d.ID,
		LastMessageID: d.LastMessageID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if len(d.Members) == 2 {
		chat.MemberLow, chat.MemberHigh = models.MemberPair(d.Members[0], d.Members[1])
	}
	return chat
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	ChatID    string    `bson:"chatId"`
	SenderID  string    `bson:"senderId"`
	Text      string    `bson:"text"`
	SeenBy    []string  `bson:"seenBy"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d *messageDoc) model() *models.Message {
	seen := d.SeenBy
	if seen == nil {
		seen = []string{}
	}
	return &models.Message{
		ID:        d.ID,
		ChatID:    d.ChatID,
		SenderID:  d.SenderID,
		Text:      d.Text,
		SeenBy:    seen,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
