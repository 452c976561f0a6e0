// Package storetest builds throwaway sqlite-backed stores and fixtures for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store/sqlstore"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// New returns a migrated in-memory store that is closed when the test ends
func New(t testing.TB) *sqlstore.Store {
	t.Helper()

	s, err := sqlstore.Open(sqlite.Open(":memory:"), sqlstore.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(func() { _ = s.Close() })
	return s
}

// User inserts a user with a deterministic username
func User(t testing.TB, s *sqlstore.Store, username string) *models.User {
	t.Helper()

	u := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "x",
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

// Base is the timestamp fixtures count from
var Base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Item inserts an item whose CreatedAt is Base plus offset seconds, so
// fixtures control their own feed order.
func Item(t testing.TB, s *sqlstore.Store, kind models.ItemKind, owner *models.User, id string, offset int) *models.Item {
	t.Helper()

	item := &models.Item{
		ID:        id,
		Kind:      kind,
		Caption:   "caption " + id,
		MediaURL:  "uploads/" + id,
		PostedBy:  owner.ID,
		CreatedAt: Base.Add(time.Duration(offset) * time.Second),
	}
	require.NoError(t, s.Items().CreateItem(context.Background(), item))
	return item
}

// Reels inserts reels named ids[0..n) with increasing timestamps, so the feed
// order is the reverse of ids.
func Reels(t testing.TB, s *sqlstore.Store, owner *models.User, ids ...string) {
	t.Helper()
	for i, id := range ids {
		Item(t, s, models.KindReel, owner, id, i)
	}
}
