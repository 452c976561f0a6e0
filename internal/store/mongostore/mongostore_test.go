package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
)

// MongoStoreTestSuite runs against a replica set named by MONGO_URI
type MongoStoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
	alice *models.User
	bob   *models.User
}

func (suite *MongoStoreTestSuite) SetupTest() {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		suite.T().Skip("MONGO_URI not set")
	}

	suite.ctx = context.Background()
	s, err := Open(suite.ctx, uri, "socialflow_test_"+models.NewID()[:8])
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), s.Migrate(suite.ctx))
	suite.store = s

	suite.alice = suite.user("alice")
	suite.bob = suite.user("bob")
}

func (suite *MongoStoreTestSuite) TearDownTest() {
	if suite.store == nil {
		return
	}
	_ = suite.store.Database().Drop(suite.ctx)
	_ = suite.store.Close()
	suite.store = nil
}

func (suite *MongoStoreTestSuite) user(name string) *models.User {
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(suite.T(), suite.store.Users().CreateUser(suite.ctx, u))
	return u
}

func (suite *MongoStoreTestSuite) item(kind models.ItemKind, id string, offset int) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(suite.T(), suite.store.Items().CreateItem(suite.ctx, &models.Item{
		ID:        id,
		Kind:      kind,
		PostedBy:  suite.alice.ID,
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}))
}

func (suite *MongoStoreTestSuite) TestRankAndSeek() {
	t := suite.T()
	for i, id := range []string{"r1", "r2", "r3"} {
		suite.item(models.KindReel, id, i)
	}
	q := store.Query{Kind: models.KindReel}

	ids, err := suite.store.Items().ItemIDs(suite.ctx, q, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2", "r1"}, ids)

	rank, err := suite.store.Items().ItemRank(suite.ctx, q, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rank)

	first, err := suite.store.Items().ListItems(suite.ctx, q, 0, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	page, err := suite.store.Items().ListItemsAfter(suite.ctx, q, &store.Cursor{CreatedAt: first[0].CreatedAt, ID: first[0].ID}, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r2", page[0].ID)
}

func (suite *MongoStoreTestSuite) TestToggleLikeAndComments() {
	t := suite.T()
	suite.item(models.KindPost, "p", 0)
	items := suite.store.Items()

	state, err := items.ToggleLike(suite.ctx, models.KindPost, "p", suite.bob.ID)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 1, state.Count)

	state, err = items.ToggleLike(suite.ctx, models.KindPost, "p", suite.bob.ID)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, 0, state.Count)

	_, err = items.ToggleLike(suite.ctx, models.KindPost, "missing", suite.bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	c1 := &models.Comment{ItemKind: models.KindPost, ItemID: "p", UserID: suite.alice.ID, Text: "hi"}
	c2 := &models.Comment{ItemKind: models.KindPost, ItemID: "p", UserID: suite.bob.ID, Text: "yo"}
	require.NoError(t, items.AppendComment(suite.ctx, c1))
	require.NoError(t, items.AppendComment(suite.ctx, c2))
	assert.Equal(t, 2, c2.Position)

	item, err := items.GetItem(suite.ctx, models.KindPost, "p")
	require.NoError(t, err)
	require.Len(t, item.Comments, 2)
	assert.Equal(t, "hi", item.Comments[0].Text)
	assert.Equal(t, "bob", item.Comments[1].User.Username)
}

func (suite *MongoStoreTestSuite) TestFollowWritesBothSides() {
	t := suite.T()
	users := suite.store.Users()

	changed, err := users.Follow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = users.Follow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	followers, following, err := users.FollowCounts(suite.ctx, suite.bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, followers)
	assert.EqualValues(t, 0, following)

	_, err = users.Follow(suite.ctx, suite.alice.ID, suite.alice.ID)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func (suite *MongoStoreTestSuite) TestRepairRebuildsFollowers() {
	t := suite.T()
	_, err := suite.store.Users().Follow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)

	_, err = suite.store.Database().Collection(usersCollection).UpdateOne(suite.ctx,
		bson.M{"_id": suite.bob.ID}, bson.M{"$set": bson.M{"followers": []string{}}})
	require.NoError(t, err)

	report, err := suite.store.Repair(suite.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.FollowEdges)

	followers, err := suite.store.Users().Followers(suite.ctx, suite.bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, suite.alice.ID, followers[0].ID)
}

func (suite *MongoStoreTestSuite) TestChatPair() {
	t := suite.T()
	chats := suite.store.Chats()

	a, created, err := chats.FindOrCreateChat(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	b, created, err := chats.FindOrCreateChat(suite.ctx, suite.bob.ID, suite.alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)

	msg := &models.Message{ChatID: a.ID, SenderID: suite.alice.ID, Text: "hello"}
	require.NoError(t, chats.AppendMessage(suite.ctx, msg))
	got, err := chats.GetChat(suite.ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, msg.ID, got.LastMessage.ID)
}

func TestMongoStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MongoStoreTestSuite))
}
