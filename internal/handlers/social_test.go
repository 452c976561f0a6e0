package handlers

import (
	"net/http"

	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestRegisterAndLogin() {
	t := suite.T()

	w := suite.send(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "dave_01",
		"email":    "Dave@Example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[auth.AuthResponse](t, w)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "dave@example.com", reg.User.Email)

	w = suite.send(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "dave_01",
		"email":    "other@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.send(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "x",
		"email":    "not-an-email",
		"password": "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, w).Code)

	w = suite.send(http.MethodPost, "/api/auth/login", "", map[string]string{"emailOrUsername": "dave_01", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[auth.AuthResponse](t, w)
	claims, err := suite.auth.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	w = suite.send(http.MethodPost, "/api/auth/login", "", map[string]string{"emailOrUsername": "dave_01", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	me := decode[models.User](t, suite.get("/api/auth/me", reg.User.ID))
	assert.Equal(t, "dave_01", me.Username)
}

func (suite *HandlersTestSuite) TestPostsFlow() {
	t := suite.T()

	w := suite.form(http.MethodPost, "/api/posts/", suite.alice.ID, map[string]string{"caption": "text only"}, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.Item](t, w)
	assert.Equal(t, models.KindPost, post.Kind)

	w = suite.form(http.MethodPost, "/api/posts/", suite.alice.ID, nil, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	feed := decode[offsetPage](t, suite.get("/api/posts/", suite.bob.ID))
	assert.Equal(t, []string{post.ID}, ids(feed.Posts))
	assert.Equal(t, int64(1), feed.TotalPosts)
	assert.False(t, feed.HasMore)

	type likeBody struct {
		IsLiked    bool        `json:"isLiked"`
		LikesCount int         `json:"likesCount"`
		Post       models.Item `json:"post"`
	}
	like := decode[likeBody](t, suite.send(http.MethodPut, "/api/posts/like/"+post.ID, suite.bob.ID, nil))
	assert.True(t, like.IsLiked)
	assert.Equal(t, 1, like.LikesCount)
	assert.Equal(t, []string{suite.bob.ID}, like.Post.Likes)

	type commentBody struct {
		Post    models.Item    `json:"post"`
		Comment models.Comment `json:"comment"`
	}
	w = suite.send(http.MethodPost, "/api/posts/comment/"+post.ID, suite.carol.ID, map[string]string{"text": "nice"})
	require.Equal(t, http.StatusOK, w.Code)
	comment := decode[commentBody](t, w)
	assert.Equal(t, "nice", comment.Comment.Text)
	assert.Equal(t, 1, comment.Post.CommentCount)

	assert.Equal(t, http.StatusBadRequest, suite.send(http.MethodPost, "/api/posts/comment/"+post.ID, suite.carol.ID, map[string]string{"text": "  "}).Code)

	mine := decode[offsetPage](t, suite.get("/api/posts/user/"+suite.alice.ID, suite.bob.ID))
	assert.Len(t, mine.Posts, 1)

	assert.Equal(t, http.StatusForbidden, suite.do(http.MethodDelete, "/api/posts/"+post.ID, suite.bob.ID, nil, "").Code)
	assert.Equal(t, http.StatusOK, suite.do(http.MethodDelete, "/api/posts/"+post.ID, suite.alice.ID, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, suite.get("/api/posts/"+post.ID, suite.bob.ID).Code)
}

func (suite *HandlersTestSuite) TestFollowGraph() {
	t := suite.T()
	alice, bob := suite.alice.ID, suite.bob.ID

	assert.Equal(t, http.StatusBadRequest, suite.send(http.MethodPost, "/api/users/follow/"+alice, alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, suite.send(http.MethodPost, "/api/users/follow/ghost", alice, nil).Code)

	type followBody struct {
		Changed bool `json:"changed"`
	}
	first := decode[followBody](t, suite.send(http.MethodPost, "/api/users/follow/"+bob, alice, nil))
	assert.True(t, first.Changed)
	again := decode[followBody](t, suite.send(http.MethodPost, "/api/users/follow/"+bob, alice, nil))
	assert.False(t, again.Changed)

	type countBody struct {
		Count int64 `json:"count"`
	}
	assert.Equal(t, int64(1), decode[countBody](t, suite.get("/api/users/followers-count/"+bob, "")).Count)
	assert.Equal(t, int64(1), decode[countBody](t, suite.get("/api/users/following-count/"+alice, "")).Count)

	followers := decode[struct {
		Followers []models.UserSummary `json:"followers"`
	}](t, suite.get("/api/users/followers/"+bob, ""))
	require.Len(t, followers.Followers, 1)
	assert.Equal(t, alice, followers.Followers[0].ID)

	following := decode[struct {
		Following []models.UserSummary `json:"following"`
	}](t, suite.get("/api/users/following/"+alice, ""))
	require.Len(t, following.Following, 1)
	assert.Equal(t, bob, following.Following[0].ID)

	suggested := decode[[]models.UserSummary](t, suite.get("/api/users/suggested", alice))
	for _, u := range suggested {
		assert.NotEqual(t, bob, u.ID)
		assert.NotEqual(t, alice, u.ID)
	}
	assert.Len(t, suggested, 1)

	decode[followBody](t, suite.send(http.MethodPost, "/api/users/unfollow/"+bob, alice, nil))
	assert.Equal(t, int64(0), decode[countBody](t, suite.get("/api/users/followers-count/"+bob, "")).Count)
}

func (suite *HandlersTestSuite) TestUserProfile() {
	t := suite.T()
	storetest.Reels(t, suite.store, suite.alice, "R1", "R2")
	storetest.Item(t, suite.store, models.KindPost, suite.alice, "P1", 5)
	suite.send(http.MethodPost, "/api/users/follow/"+suite.alice.ID, suite.bob.ID, nil)

	profile := decode[models.Profile](t, suite.get("/api/users/"+suite.alice.ID, suite.bob.ID))
	require.NotNil(t, profile.User)
	assert.Equal(t, "alice", profile.User.Username)
	assert.Equal(t, int64(2), profile.ReelsCount)
	assert.Equal(t, int64(1), profile.PostsCount)
	assert.Equal(t, int64(1), profile.FollowersCount)
	assert.Equal(t, int64(0), profile.FollowingCount)

	assert.Equal(t, http.StatusNotFound, suite.get("/api/users/ghost", suite.bob.ID).Code)

	found := decode[[]models.UserSummary](t, suite.get("/api/users/search?q=ALI", suite.bob.ID))
	require.Len(t, found, 1)
	assert.Equal(t, suite.alice.ID, found[0].ID)
	assert.Empty(t, decode[[]models.UserSummary](t, suite.get("/api/users/search?q=", suite.bob.ID)))
}

func (suite *HandlersTestSuite) TestUpdateProfile() {
	t := suite.T()

	w := suite.form(http.MethodPut, "/api/users/update", suite.alice.ID,
		map[string]string{"username": "alice_2", "bio": "hello"}, "profilePicture", "me.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	me := decode[models.User](t, suite.get("/api/users/profile", suite.alice.ID))
	assert.Equal(t, "alice_2", me.Username)
	assert.Equal(t, "hello", me.Bio)
	assert.NotEqual(t, models.DefaultProfilePicture, me.ProfilePicture)

	w = suite.form(http.MethodPut, "/api/users/update", suite.bob.ID, map[string]string{"username": "alice_2"}, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "username", decode[errorBody](t, w).Field)

	w = suite.form(http.MethodPut, "/api/users/update", suite.bob.ID, map[string]string{"username": "no spaces"}, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestChatFlow() {
	t := suite.T()
	alice, bob, carol := suite.alice.ID, suite.bob.ID, suite.carol.ID

	w := suite.send(http.MethodPost, "/api/chat/", alice, map[string]string{"userId": bob})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	chat := decode[models.Chat](t, w)

	w = suite.send(http.MethodPost, "/api/chat/", bob, map[string]string{"userId": alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chat.ID, decode[models.Chat](t, w).ID)

	assert.Equal(t, http.StatusBadRequest, suite.send(http.MethodPost, "/api/chat/", alice, map[string]string{"userId": alice}).Code)
	assert.Equal(t, http.StatusNotFound, suite.send(http.MethodPost, "/api/chat/", alice, map[string]string{"userId": "ghost"}).Code)

	w = suite.send(http.MethodPost, "/api/message", carol, map[string]string{"chatId": chat.ID, "text": "intruder"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	for _, text := range []string{"one", "two"} {
		w = suite.send(http.MethodPost, "/api/message", alice, map[string]string{"chatId": chat.ID, "text": text})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w = suite.send(http.MethodPost, "/api/message", bob, map[string]string{"chatId": chat.ID, "text": "three"})
	require.Equal(t, http.StatusCreated, w.Code)

	msgs := decode[[]models.Message](t, suite.get("/api/message/"+chat.ID, bob))
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
	assert.Equal(t, "three", msgs[2].Text)
	assert.Equal(t, http.StatusForbidden, suite.get("/api/message/"+chat.ID, carol).Code)
	assert.Equal(t, http.StatusNotFound, suite.get("/api/message/missing", bob).Code)

	seen := decode[struct {
		Updated int64 `json:"updated"`
	}](t, suite.send(http.MethodPut, "/api/message/"+chat.ID+"/seen", bob, nil))
	assert.Equal(t, int64(2), seen.Updated)

	chats := decode[[]models.Chat](t, suite.get("/api/chat/", alice))
	require.Len(t, chats, 1)
	assert.Equal(t, chat.ID, chats[0].ID)
}

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.get("/api/health", "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"status":"ok"`)
}
