package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offsetPage struct {
	Reels       []models.Item `json:"reels"`
	Posts       []models.Item `json:"posts"`
	CurrentPage int           `json:"currentPage"`
	HasMore     bool          `json:"hasMore"`
	TotalReels  int64         `json:"totalReels"`
	TotalPosts  int64         `json:"totalPosts"`
}

type seekPage struct {
	Reels      []models.Item `json:"reels"`
	NextCursor string        `json:"nextCursor"`
	HasMore    bool          `json:"hasMore"`
}

type reelContext struct {
	Reel         models.Item `json:"reel"`
	CurrentIndex int64       `json:"currentIndex"`
	NextReelID   *string     `json:"nextReelId"`
	PrevReelID   *string     `json:"prevReelId"`
	HasNext      bool        `json:"hasNext"`
	HasPrev      bool        `json:"hasPrev"`
	TotalReels   int64       `json:"totalReels"`
}

func ids(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func (suite *HandlersTestSuite) seedReels() {
	storetest.Reels(suite.T(), suite.store, suite.alice, "R1", "R2", "R3", "R4", "R5")
}

func (suite *HandlersTestSuite) TestRequiresAuth() {
	assert.Equal(suite.T(), http.StatusUnauthorized, suite.get("/api/reels/feed", "").Code)
	assert.Equal(suite.T(), http.StatusUnauthorized, suite.get("/api/posts/", "").Code)
}

func (suite *HandlersTestSuite) TestReelsFeedOffset() {
	t := suite.T()
	suite.seedReels()

	w := suite.get("/api/reels/feed", suite.bob.ID)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[offsetPage](t, w)
	assert.Equal(t, []string{"R5"}, ids(page.Reels))
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(5), page.TotalReels)

	seen := map[string]bool{}
	for p := 0; p < 3; p++ {
		page := decode[offsetPage](t, suite.get("/api/reels/feed?limit=2&page="+strconv.Itoa(p), suite.bob.ID))
		assert.Equal(t, p, page.CurrentPage)
		for _, id := range ids(page.Reels) {
			assert.False(t, seen[id], "duplicate %s", id)
			seen[id] = true
		}
		assert.Equal(t, p < 2, page.HasMore)
	}
	assert.Len(t, seen, 5)

	past := decode[offsetPage](t, suite.get("/api/reels/feed?limit=2&page=9", suite.bob.ID))
	assert.Empty(t, past.Reels)
	assert.False(t, past.HasMore)

	w = suite.get("/api/reels/feed?page=-1", suite.bob.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestReelsFeedCursor() {
	t := suite.T()
	suite.seedReels()

	first := decode[seekPage](t, suite.get("/api/reels/feed?cursor=&limit=3", suite.bob.ID))
	assert.Equal(t, []string{"R5", "R4", "R3"}, ids(first.Reels))
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	second := decode[seekPage](t, suite.get("/api/reels/feed?limit=3&cursor="+first.NextCursor, suite.bob.ID))
	assert.Equal(t, []string{"R2", "R1"}, ids(second.Reels))
	assert.False(t, second.HasMore)

	w := suite.get("/api/reels/feed?cursor=garbage!", suite.bob.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cursor", decode[errorBody](t, w).Field)
}

func (suite *HandlersTestSuite) TestReelContext() {
	t := suite.T()
	suite.seedReels()

	ctx := decode[reelContext](t, suite.get("/api/reels/context?index=2", suite.bob.ID))
	assert.Equal(t, "R3", ctx.Reel.ID)
	require.NotNil(t, ctx.PrevReelID)
	require.NotNil(t, ctx.NextReelID)
	assert.Equal(t, "R4", *ctx.PrevReelID)
	assert.Equal(t, "R2", *ctx.NextReelID)
	assert.True(t, ctx.HasNext)
	assert.True(t, ctx.HasPrev)
	assert.Equal(t, int64(5), ctx.TotalReels)

	last := decode[reelContext](t, suite.get("/api/reels/contextById/R1", suite.bob.ID))
	assert.Equal(t, int64(4), last.CurrentIndex)
	assert.Nil(t, last.NextReelID)
	assert.False(t, last.HasNext)

	assert.Equal(t, http.StatusNotFound, suite.get("/api/reels/context?index=5", suite.bob.ID).Code)
	assert.Equal(t, http.StatusNotFound, suite.get("/api/reels/context?index=-1", suite.bob.ID).Code)
	assert.Equal(t, http.StatusNotFound, suite.get("/api/reels/contextById/missing", suite.bob.ID).Code)
	assert.Equal(t, http.StatusBadRequest, suite.get("/api/reels/context?index=two", suite.bob.ID).Code)
}

func (suite *HandlersTestSuite) TestLikeReelToggles() {
	t := suite.T()
	suite.seedReels()

	type likeBody struct {
		Message    string `json:"message"`
		IsLiked    bool   `json:"isLiked"`
		LikesCount int    `json:"likesCount"`
	}

	first := decode[likeBody](t, suite.send(http.MethodPut, "/api/reels/like/R1", suite.bob.ID, nil))
	assert.True(t, first.IsLiked)
	assert.Equal(t, 1, first.LikesCount)
	assert.Equal(t, "Reel liked", first.Message)

	second := decode[likeBody](t, suite.send(http.MethodPut, "/api/reels/like/R1", suite.bob.ID, nil))
	assert.False(t, second.IsLiked)
	assert.Equal(t, 0, second.LikesCount)

	assert.Len(t, suite.events.OfType("reelLiked"), 2)
	assert.Equal(t, http.StatusNotFound, suite.send(http.MethodPut, "/api/reels/like/nope", suite.bob.ID, nil).Code)
}

func (suite *HandlersTestSuite) TestCommentOnReel() {
	t := suite.T()
	suite.seedReels()

	w := suite.send(http.MethodPost, "/api/reels/comment/R1", suite.alice.ID, map[string]string{"text": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	suite.send(http.MethodPost, "/api/reels/comment/R1", suite.bob.ID, map[string]string{"text": "yo"})

	reel := decode[models.Item](t, suite.get("/api/reels/R1", ""))
	require.Len(t, reel.Comments, 2)
	assert.Equal(t, "hi", reel.Comments[0].Text)
	assert.Equal(t, suite.alice.ID, reel.Comments[0].UserID)
	assert.Equal(t, "yo", reel.Comments[1].Text)
	assert.Equal(t, suite.bob.ID, reel.Comments[1].UserID)

	w = suite.send(http.MethodPost, "/api/reels/comment/R1", suite.bob.ID, map[string]string{"text": strings.Repeat("x", 151)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text", decode[errorBody](t, w).Field)
	assert.Len(t, suite.events.OfType("reelCommented"), 2)
}

func (suite *HandlersTestSuite) TestCreateAndDeleteReel() {
	t := suite.T()

	w := suite.form(http.MethodPost, "/api/reels/", suite.alice.ID, map[string]string{"caption": "clip"}, "videoUrl", "clip.mp4")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reel := decode[models.Item](t, w)
	assert.Equal(t, "clip", reel.Caption)
	assert.Equal(t, models.KindReel, reel.Kind)

	w = suite.form(http.MethodPost, "/api/reels/", suite.alice.ID, map[string]string{"caption": "no video"}, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusForbidden, suite.do(http.MethodDelete, "/api/reels/"+reel.ID, suite.bob.ID, nil, "").Code)
	assert.Equal(t, http.StatusOK, suite.do(http.MethodDelete, "/api/reels/"+reel.ID, suite.alice.ID, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, suite.get("/api/reels/"+reel.ID, "").Code)
	assert.Len(t, suite.events.OfType("reelDeleted"), 1)
}

func (suite *HandlersTestSuite) TestPreloadAndListings() {
	t := suite.T()
	suite.seedReels()

	preview := decode[models.ReelPreview](t, suite.get("/api/reels/preload/R2", suite.bob.ID))
	assert.Equal(t, "R2", preview.ID)
	assert.Equal(t, "uploads/R2", preview.VideoURL)

	all := decode[[]models.Item](t, suite.get("/api/reels/all", suite.bob.ID))
	assert.Equal(t, []string{"R5", "R4", "R3", "R2", "R1"}, ids(all))

	storetest.Item(t, suite.store, models.KindReel, suite.bob, "B1", 10)
	mine := decode[offsetPage](t, suite.get("/api/reels/user/"+suite.bob.ID, suite.bob.ID))
	assert.Equal(t, []string{"B1"}, ids(mine.Reels))
	assert.Equal(t, int64(1), mine.TotalReels)
}
