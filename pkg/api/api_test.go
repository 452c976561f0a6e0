package api

import (
	"context"
	"testing"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store/storetest"
	"github.com/sadwiik06/SocialFlow/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// APITestSuite runs the client against the real router over an in-memory store
type APITestSuite struct {
	suite.Suite
	ctx    context.Context
	server *testserver.Server

	alice *Client
	bob   *Client
	bobID string
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (suite *APITestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.server = testserver.New(suite.T())

	suite.alice = suite.register("alice")
	suite.bob = suite.register("bob")
	me, err := suite.bob.Me(suite.ctx)
	require.NoError(suite.T(), err)
	suite.bobID = me.ID
}

func (suite *APITestSuite) newClient() *Client {
	return New(suite.server.APIURL(), 5*time.Second)
}

func (suite *APITestSuite) register(name string) *Client {
	c := suite.newClient()
	resp, err := c.Register(suite.ctx, RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), resp.Token)
	require.True(suite.T(), c.HasToken())
	return c
}

func (suite *APITestSuite) seedReels() {
	owner, err := suite.server.Store.Users().GetUserByLogin(suite.ctx, "bob")
	require.NoError(suite.T(), err)
	storetest.Reels(suite.T(), suite.server.Store, owner, "R1", "R2", "R3", "R4", "R5")
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func (suite *APITestSuite) TestLoginAndMe() {
	t := suite.T()
	c := suite.newClient()

	_, err := c.Me(suite.ctx)
	assert.True(t, IsUnauthorized(err))

	_, err = c.Login(suite.ctx, "alice", "wrong-password")
	assert.True(t, IsUnauthorized(err))

	resp, err := c.Login(suite.ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)

	me, err := c.Me(suite.ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, me.ID)

	c.SetToken("")
	assert.False(t, c.HasToken())
}

func (suite *APITestSuite) TestRegisterDuplicate() {
	_, err := suite.newClient().Register(suite.ctx, RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "password123",
	})
	var apiErr *APIError
	require.ErrorAs(suite.T(), err, &apiErr)
	assert.Equal(suite.T(), 400, apiErr.Status)
}

func (suite *APITestSuite) TestFeedPages() {
	t := suite.T()
	suite.seedReels()

	page, err := suite.alice.Feed(suite.ctx, models.KindReel, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"R5", "R4"}, ids(page.Items))
	assert.True(t, page.HasMore)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, models.KindReel, page.Items[0].Kind)
	assert.Equal(t, "uploads/R5", page.Items[0].MediaURL)

	first, err := suite.alice.FeedAfter(suite.ctx, models.KindReel, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"R5", "R4"}, ids(first.Items))
	next, err := suite.alice.FeedAfter(suite.ctx, models.KindReel, first.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"R3", "R2"}, ids(next.Items))

	posts, err := suite.alice.Feed(suite.ctx, models.KindPost, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts.Items)
	assert.False(t, posts.HasMore)
}

func (suite *APITestSuite) TestReelContext() {
	t := suite.T()
	suite.seedReels()

	res, err := suite.alice.ReelContext(suite.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "R3", res.Reel.ID)
	require.NotNil(t, res.PrevReelID)
	require.NotNil(t, res.NextReelID)
	assert.Equal(t, "R4", *res.PrevReelID)
	assert.Equal(t, "R2", *res.NextReelID)
	assert.EqualValues(t, 5, res.TotalReels)

	res, err = suite.alice.ReelContextByID(suite.ctx, "R1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, res.CurrentIndex)
	assert.Nil(t, res.NextReelID)
	assert.False(t, res.HasNext)

	_, err = suite.alice.ReelContext(suite.ctx, 9)
	assert.True(t, IsNotFound(err))
}

func (suite *APITestSuite) TestLikeAndComment() {
	t := suite.T()
	suite.seedReels()

	like, err := suite.alice.ToggleLike(suite.ctx, models.KindReel, "R5")
	require.NoError(t, err)
	assert.True(t, like.IsLiked)
	assert.Equal(t, 1, like.LikesCount)

	like, err = suite.alice.ToggleLike(suite.ctx, models.KindReel, "R5")
	require.NoError(t, err)
	assert.False(t, like.IsLiked)
	assert.Zero(t, like.LikesCount)

	res, err := suite.alice.Comment(suite.ctx, models.KindReel, "R5", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Comment.Text)
	assert.Equal(t, 1, res.Comment.Position)

	_, err = suite.alice.Comment(suite.ctx, models.KindReel, "R5", "   ")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)

	owner, err := suite.server.Store.Users().GetUserByLogin(suite.ctx, "bob")
	require.NoError(t, err)
	storetest.Item(t, suite.server.Store, models.KindPost, owner, "P1", 0)

	like, err = suite.alice.ToggleLike(suite.ctx, models.KindPost, "P1")
	require.NoError(t, err)
	require.NotNil(t, like.Post)
	assert.Equal(t, 1, like.Post.LikeCount)

	res, err = suite.bob.Comment(suite.ctx, models.KindPost, "P1", "yo")
	require.NoError(t, err)
	require.NotNil(t, res.Post)
	assert.Equal(t, 1, res.Post.CommentCount)
}

func (suite *APITestSuite) TestFollow() {
	t := suite.T()

	res, err := suite.alice.Follow(suite.ctx, suite.bobID)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = suite.alice.Follow(suite.ctx, suite.bobID)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = suite.alice.Unfollow(suite.ctx, suite.bobID)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	_, err = suite.alice.Follow(suite.ctx, "ghost")
	assert.True(t, IsNotFound(err))
}

func (suite *APITestSuite) TestChat() {
	t := suite.T()

	chat, err := suite.alice.OpenChat(suite.ctx, suite.bobID)
	require.NoError(t, err)
	again, err := suite.alice.OpenChat(suite.ctx, suite.bobID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)

	for _, text := range []string{"hey", "there"} {
		_, err := suite.alice.SendMessage(suite.ctx, chat.ID, text)
		require.NoError(t, err)
	}

	msgs, err := suite.bob.Messages(suite.ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hey", msgs[0].Text)
	assert.Equal(t, "there", msgs[1].Text)

	n, err := suite.bob.MarkSeen(suite.ctx, chat.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	chats, err := suite.bob.Chats(suite.ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chat.ID, chats[0].ID)

	_, err = suite.alice.Messages(suite.ctx, "missing")
	assert.True(t, IsNotFound(err))
}
