// Package seed fills a store with fake users, content and conversations.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sadwiik06/SocialFlow/internal/interaction"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/validation"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Options sizes a seeding run
type Options struct {
	Users           int
	PostsPerUser    int
	ReelsPerUser    int
	FollowsPerUser  int
	Likes           int
	Comments        int
	Chats           int
	MessagesPerChat int
	// Seed makes runs reproducible; zero picks a random seed
	Seed uint64
}

// DevOptions is a realistic development dataset
func DevOptions() Options {
	return Options{
		Users:           50,
		PostsPerUser:    3,
		ReelsPerUser:    2,
		FollowsPerUser:  8,
		Likes:           600,
		Comments:        300,
		Chats:           25,
		MessagesPerChat: 6,
	}
}

// Summary counts what a run created
type Summary struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Reels    int `json:"reels"`
	Follows  int `json:"follows"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Chats    int `json:"chats"`
	Messages int `json:"messages"`
}

// Seeder handles database seeding operations
type Seeder struct {
	store store.Store
	fake  *gofakeit.Faker
	hash  string
	now   func() time.Time
}

// NewSeeder creates a seeder over s
func NewSeeder(s store.Store, seed uint64) (*Seeder, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &Seeder{
		store: s,
		fake:  gofakeit.New(seed),
		hash:  string(hash),
		now:   time.Now,
	}, nil
}

// Run seeds users first, then content and the social graph on top of them
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{}
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return sum, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)

	log("Creating follows...")
	if sum.Follows, err = s.seedFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return sum, fmt.Errorf("failed to seed follows: %w", err)
	}

	log("Creating posts and reels...")
	posts, err := s.seedItems(ctx, users, models.KindPost, opts.PostsPerUser)
	if err != nil {
		return sum, fmt.Errorf("failed to seed posts: %w", err)
	}
	reels, err := s.seedItems(ctx, users, models.KindReel, opts.ReelsPerUser)
	if err != nil {
		return sum, fmt.Errorf("failed to seed reels: %w", err)
	}
	sum.Posts, sum.Reels = len(posts), len(reels)
	items := append(posts, reels...)

	log("Creating likes...")
	if sum.Likes, err = s.seedLikes(ctx, users, items, opts.Likes); err != nil {
		return sum, fmt.Errorf("failed to seed likes: %w", err)
	}

	log("Creating comments...")
	if sum.Comments, err = s.seedComments(ctx, users, items, opts.Comments); err != nil {
		return sum, fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating conversations...")
	if sum.Chats, sum.Messages, err = s.seedChats(ctx, users, opts.Chats, opts.MessagesPerChat); err != nil {
		return sum, fmt.Errorf("failed to seed chats: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", sum.Users),
		zap.Int("posts", sum.Posts),
		zap.Int("reels", sum.Reels),
		zap.Int("follows", sum.Follows),
		zap.Int("likes", sum.Likes),
		zap.Int("comments", sum.Comments),
		zap.Int("chats", sum.Chats),
	)
	return sum, nil
}

// TestUsers creates the fixed accounts used in manual testing, skipping any that exist
func (s *Seeder) TestUsers(ctx context.Context) ([]*models.User, error) {
	names := []string{"alice", "bob", "charlie", "diana", "eve"}
	var out []*models.User
	for _, name := range names {
		u, err := s.store.Users().GetUserByLogin(ctx, name)
		if err == nil {
			out = append(out, u)
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		u = &models.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: s.hash,
			Bio:          s.bio(),
		}
		if err := s.store.Users().CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create test user %s: %w", name, err)
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Seeder) bio() string {
	return truncate(s.fake.HipsterSentence(), 150)
}

// username draws fake usernames until one passes the username rules
func (s *Seeder) username() string {
	for {
		name := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
				return r
			}
			return -1
		}, s.fake.Username())
		name = fmt.Sprintf("%s%d", name, s.fake.Number(1, 9999))
		if validation.ValidUsername(name) {
			return name
		}
	}
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	genders := []string{models.GenderMale, models.GenderFemale, models.GenderOther}

	for len(users) < count {
		u := &models.User{
			Username:       s.username(),
			Email:          strings.ToLower(s.fake.Email()),
			PasswordHash:   s.hash,
			Gender:         s.fake.RandomString(genders),
			Bio:            s.bio(),
			ProfilePicture: "https://api.dicebear.com/7.x/avataaars/png?seed=" + s.fake.Word(),
		}
		err := s.store.Users().CreateUser(ctx, u)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	n := 0
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			target := users[s.fake.Number(0, len(users)-1)]
			if target.ID == u.ID {
				continue
			}
			changed, err := s.store.Users().Follow(ctx, u.ID, target.ID)
			if err != nil {
				return n, err
			}
			if changed {
				n++
			}
		}
	}
	return n, nil
}

func (s *Seeder) seedItems(ctx context.Context, users []*models.User, kind models.ItemKind, perUser int) ([]*models.Item, error) {
	var items []*models.Item
	now := s.now()
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			item := &models.Item{
				Kind:      kind,
				Caption:   truncate(s.fake.Sentence(), 300),
				MediaURL:  s.mediaURL(kind),
				PostedBy:  u.ID,
				CreatedAt: s.fake.DateRange(now.AddDate(0, 0, -30), now),
			}
			if err := s.store.Items().CreateItem(ctx, item); err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *Seeder) mediaURL(kind models.ItemKind) string {
	if kind == models.KindReel {
		return fmt.Sprintf("https://media.example.com/reels/%s.mp4", s.fake.UUID())
	}
	return fmt.Sprintf("https://picsum.photos/seed/%s/1080/1080", s.fake.Word())
}

type likeKey struct {
	item string
	user string
}

// seedLikes likes random (item, user) pairs; a pair is used at most once
// since a second toggle would remove the like.
func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, items []*models.Item, count int) (int, error) {
	if len(users) == 0 || len(items) == 0 {
		return 0, nil
	}
	count = min(count, len(users)*len(items))
	done := make(map[likeKey]bool, count)
	for len(done) < count {
		item := items[s.fake.Number(0, len(items)-1)]
		user := users[s.fake.Number(0, len(users)-1)]
		key := likeKey{item.ID, user.ID}
		if done[key] {
			continue
		}
		if _, err := s.store.Items().ToggleLike(ctx, item.Kind, item.ID, user.ID); err != nil {
			return len(done), err
		}
		done[key] = true
	}
	return len(done), nil
}

func (s *Seeder) seedComments(ctx context.Context, users []*models.User, items []*models.Item, count int) (int, error) {
	if len(users) == 0 || len(items) == 0 {
		return 0, nil
	}
	for i := 0; i < count; i++ {
		item := items[s.fake.Number(0, len(items)-1)]
		c := &models.Comment{
			ItemKind: item.Kind,
			ItemID:   item.ID,
			UserID:   users[s.fake.Number(0, len(users)-1)].ID,
			Text:     truncate(s.fake.HipsterSentence(), interaction.MaxCommentLength),
		}
		if err := s.store.Items().AppendComment(ctx, c); err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *Seeder) seedChats(ctx context.Context, users []*models.User, count, perChat int) (int, int, error) {
	if len(users) < 2 {
		return 0, 0, nil
	}
	chats := map[string]*models.Chat{}
	messages := 0
	for attempts := 0; len(chats) < count && attempts < count*4; attempts++ {
		pair := lo.Samples(users, 2)
		chat, _, err := s.store.Chats().FindOrCreateChat(ctx, pair[0].ID, pair[1].ID)
		if err != nil {
			return len(chats), messages, err
		}
		if chats[chat.ID] != nil {
			continue
		}
		chats[chat.ID] = chat

		for i := 0; i < perChat; i++ {
			msg := &models.Message{
				ChatID:   chat.ID,
				SenderID: pair[i%2].ID,
				Text:     s.fake.Sentence(),
			}
			if err := s.store.Chats().AppendMessage(ctx, msg); err != nil {
				return len(chats), messages, err
			}
			messages++
		}
	}
	return len(chats), messages, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
