package models

import (
	"time"

	"gorm.io/gorm"
)

// Chat is a two-member conversation. MemberLow/MemberHigh hold the member ids
// in sorted order so the unique index covers the unordered pair.
type Chat struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	MemberLow     string    `gorm:"size:36;not null;uniqueIndex:idx_chats_pair,priority:1" json:"-"`
	MemberHigh    string    `gorm:"size:36;not null;uniqueIndex:idx_chats_pair,priority:2;index" json:"-"`
	LastMessageID *string   `gorm:"size:36" json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Members     []UserSummary `gorm:"-" json:"members"`
	LastMessage *Message      `gorm:"-" json:"lastMessage,omitempty"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// HasMember reports whether userID is one of the two members
func (c *Chat) HasMember(userID string) bool {
	return c.MemberLow == userID || c.MemberHigh == userID
}

// Other returns the member that is not userID
func (c *Chat) Other(userID string) string {
	if c.MemberLow == userID {
		return c.MemberHigh
	}
	return c.MemberLow
}

// MemberPair normalizes two user ids into the (low, high) storage key
func MemberPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Message is append-only apart from SeenBy additions
type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string    `gorm:"size:36;not null;index:idx_messages_chat,priority:1" json:"chatId"`
	SenderID  string    `gorm:"size:36;not null" json:"senderId"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_chat,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sender *UserSummary `gorm:"-" json:"sender"`
	SeenBy []string     `gorm:"-" json:"seenBy"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// MessageSeen records that a user has seen a message
type MessageSeen struct {
	MessageID string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"not null"`
}

func (MessageSeen) TableName() string { return "message_seen" }
