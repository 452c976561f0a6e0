package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultProfilePicture = "default_profile.jpg"

// Gender values accepted at registration
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Username       string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"type:text;not null" json:"-"`
	Gender         string    `gorm:"size:8" json:"gender,omitempty"`
	Bio            string    `gorm:"size:150" json:"bio"`
	ProfilePicture string    `gorm:"type:text" json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.ProfilePicture == "" {
		u.ProfilePicture = DefaultProfilePicture
	}
	return nil
}

// Summary is the hydrated form embedded into items, comments and messages
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// UserSummary is the public projection of a User
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Follow is a directed edge. Followers and following are both read from this
// one relation, so the two views cannot disagree.
type Follow struct {
	FollowerID string    `gorm:"primaryKey;size:36"`
	FolloweeID string    `gorm:"primaryKey;size:36;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

// Profile is a user plus social counters
type Profile struct {
	User           *User `json:"user"`
	FollowersCount int64 `json:"followersCount"`
	FollowingCount int64 `json:"followingCount"`
	PostsCount     int64 `json:"postsCount"`
	ReelsCount     int64 `json:"reelsCount"`
}
