package feed_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/feed"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/store/sqlstore"
	"github.com/sadwiik06/SocialFlow/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var reels = store.Query{Kind: models.KindReel}

type FeedTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *sqlstore.Store
	owner *models.User
}

func (suite *FeedTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = storetest.New(suite.T())
	suite.owner = storetest.User(suite.T(), suite.store, "owner")
	storetest.Reels(suite.T(), suite.store, suite.owner, "R1", "R2", "R3", "R4", "R5")
}

func (suite *FeedTestSuite) resolvers() map[feed.Strategy]*feed.Resolver {
	return map[feed.Strategy]*feed.Resolver{
		feed.StrategyIndexed: feed.NewResolver(suite.store.Items(), feed.StrategyIndexed),
		feed.StrategyScan:    feed.NewResolver(suite.store.Items(), feed.StrategyScan),
	}
}

func (suite *FeedTestSuite) TestResolveByIndexMiddle() {
	for name, r := range suite.resolvers() {
		suite.Run(string(name), func() {
			t := suite.T()
			got, err := r.ResolveByIndex(suite.ctx, reels, 2)
			require.NoError(t, err)

			assert.Equal(t, "R3", got.Reel.ID)
			assert.EqualValues(t, 2, got.CurrentIndex)
			require.NotNil(t, got.PrevReelID)
			require.NotNil(t, got.NextReelID)
			assert.Equal(t, "R4", *got.PrevReelID)
			assert.Equal(t, "R2", *got.NextReelID)
			assert.True(t, got.HasPrev)
			assert.True(t, got.HasNext)
			assert.EqualValues(t, 5, got.TotalReels)
		})
	}
}

func (suite *FeedTestSuite) TestResolveByIDLast() {
	for name, r := range suite.resolvers() {
		suite.Run(string(name), func() {
			t := suite.T()
			got, err := r.ResolveByID(suite.ctx, reels, "R1")
			require.NoError(t, err)

			assert.EqualValues(t, 4, got.CurrentIndex)
			assert.Nil(t, got.NextReelID)
			assert.False(t, got.HasNext)
			require.NotNil(t, got.PrevReelID)
			assert.Equal(t, "R2", *got.PrevReelID)
		})
	}
}

func (suite *FeedTestSuite) TestResolveFirst() {
	got, err := feed.NewResolver(suite.store.Items(), "").ResolveByIndex(suite.ctx, reels, 0)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "R5", got.Reel.ID)
	assert.Nil(suite.T(), got.PrevReelID)
	assert.False(suite.T(), got.HasPrev)
	assert.True(suite.T(), got.HasNext)
}

func (suite *FeedTestSuite) TestResolveOutOfRange() {
	r := feed.NewResolver(suite.store.Items(), feed.StrategyIndexed)
	for _, i := range []int64{-1, 5, 100} {
		_, err := r.ResolveByIndex(suite.ctx, reels, i)
		assert.ErrorIs(suite.T(), err, feed.ErrOutOfRange, "index %d", i)
	}
}

func (suite *FeedTestSuite) TestResolveMissingID() {
	for name, r := range suite.resolvers() {
		_, err := r.ResolveByID(suite.ctx, reels, "nope")
		assert.ErrorIs(suite.T(), err, store.ErrNotFound, string(name))
	}
}

func (suite *FeedTestSuite) TestCursorConsistency() {
	t := suite.T()
	r := feed.NewResolver(suite.store.Items(), feed.StrategyIndexed)

	for i := int64(1); i < 4; i++ {
		cur, err := r.ResolveByIndex(suite.ctx, reels, i)
		require.NoError(t, err)
		prev, err := r.ResolveByIndex(suite.ctx, reels, i-1)
		require.NoError(t, err)
		next, err := r.ResolveByIndex(suite.ctx, reels, i+1)
		require.NoError(t, err)

		assert.Equal(t, prev.Reel.ID, *cur.PrevReelID)
		assert.Equal(t, next.Reel.ID, *cur.NextReelID)

		byID, err := r.ResolveByID(suite.ctx, reels, cur.Reel.ID)
		require.NoError(t, err)
		assert.Equal(t, i, byID.CurrentIndex)
	}
}

func (suite *FeedTestSuite) TestStrategiesAgreeWithTies() {
	t := suite.T()
	// same timestamp as R3, so order falls back to id DESC
	storetest.Item(t, suite.store, models.KindReel, suite.owner, "R3a", 2)
	storetest.Item(t, suite.store, models.KindReel, suite.owner, "R2z", 2)

	ids, err := suite.store.Items().ItemIDs(suite.ctx, reels, 0, -1)
	require.NoError(t, err)

	rs := suite.resolvers()
	for want, id := range ids {
		a, err := rs[feed.StrategyIndexed].Rank(suite.ctx, reels, id)
		require.NoError(t, err)
		b, err := rs[feed.StrategyScan].Rank(suite.ctx, reels, id)
		require.NoError(t, err)
		assert.EqualValues(t, want, a, id)
		assert.Equal(t, a, b, id)
	}
}

func (suite *FeedTestSuite) TestInsertDoesNotMoveByIDResolution() {
	t := suite.T()
	r := feed.NewResolver(suite.store.Items(), feed.StrategyIndexed)

	before, err := r.ResolveByID(suite.ctx, reels, "R2")
	require.NoError(t, err)
	storetest.Item(t, suite.store, models.KindReel, suite.owner, "R6", 10)
	after, err := r.ResolveByID(suite.ctx, reels, "R2")
	require.NoError(t, err)

	assert.Equal(t, before.CurrentIndex+1, after.CurrentIndex)
	assert.Equal(t, *before.PrevReelID, *after.PrevReelID)
	assert.Equal(t, *before.NextReelID, *after.NextReelID)
	assert.EqualValues(t, 6, after.TotalReels)
}

func (suite *FeedTestSuite) TestPageCoverage() {
	p := feed.NewPaginator(suite.store.Items(), 50)
	for size := 1; size <= 6; size++ {
		suite.Run(fmt.Sprintf("size=%d", size), func() {
			t := suite.T()
			seen := map[string]bool{}
			for page := 0; ; page++ {
				got, err := p.Page(suite.ctx, reels, page, size, 10)
				require.NoError(t, err)
				assert.EqualValues(t, 5, got.Total)
				for _, it := range got.Items {
					assert.False(t, seen[it.ID], "duplicate %s", it.ID)
					seen[it.ID] = true
				}
				if !got.HasMore {
					break
				}
			}
			assert.Len(t, seen, 5)
		})
	}
}

func (suite *FeedTestSuite) TestPagePastEnd() {
	p := feed.NewPaginator(suite.store.Items(), 50)
	got, err := p.Page(suite.ctx, reels, 3, 2, 10)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got.Items)
	assert.NotNil(suite.T(), got.Items)
	assert.False(suite.T(), got.HasMore)
}

func (suite *FeedTestSuite) TestPageValidation() {
	p := feed.NewPaginator(suite.store.Items(), 3)

	_, err := p.Page(suite.ctx, reels, -1, 2, 10)
	assert.ErrorIs(suite.T(), err, feed.ErrInvalidPage)

	got, err := p.Page(suite.ctx, reels, 0, 1000, 10)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, got.Size)
	assert.Len(suite.T(), got.Items, 3)

	assert.Equal(suite.T(), 2, p.Size(0, 2))
	assert.Equal(suite.T(), 3, p.Size(-5, 10))
}

func (suite *FeedTestSuite) TestSeekCoverageUnderInsert() {
	t := suite.T()
	p := feed.NewPaginator(suite.store.Items(), 50)

	first, err := p.After(suite.ctx, reels, "", 2, 10)
	require.NoError(t, err)
	require.True(t, first.HasMore)
	assert.Equal(t, "R5", first.Items[0].ID)

	// a new head item must not shift the next page
	storetest.Item(t, suite.store, models.KindReel, suite.owner, "R6", 10)

	var ids []string
	token := first.NextCursor
	for token != "" {
		page, err := p.After(suite.ctx, reels, token, 2, 10)
		require.NoError(t, err)
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		token = page.NextCursor
	}
	assert.Equal(t, []string{"R3", "R2", "R1"}, ids)
}

func (suite *FeedTestSuite) TestSeekRejectsGarbage() {
	p := feed.NewPaginator(suite.store.Items(), 50)
	_, err := p.After(suite.ctx, reels, "!!not-base64", 2, 10)
	assert.ErrorIs(suite.T(), err, feed.ErrInvalidCursor)
}

func TestFeedTestSuite(t *testing.T) {
	suite.Run(t, new(FeedTestSuite))
}

func TestCursorRoundTrip(t *testing.T) {
	c := feed.Cursor{CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), ID: "a|b"}
	got, err := feed.DecodeCursor(feed.EncodeCursor(c))
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.ID, got.ID)
}

func TestParseStrategy(t *testing.T) {
	s, err := feed.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, feed.StrategyIndexed, s)

	_, err = feed.ParseStrategy("magic")
	assert.Error(t, err)
}
