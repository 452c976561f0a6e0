package reconcile

import (
	"fmt"
	"testing"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reel(id string, likes ...string) models.Item {
	return models.Item{ID: id, Kind: models.KindReel, Likes: likes, LikeCount: len(likes)}
}

func reels(ids ...string) []models.Item {
	out := make([]models.Item, len(ids))
	for i, id := range ids {
		out[i] = reel(id)
	}
	return out
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestListDedupsEveryMergePath(t *testing.T) {
	l := NewList(func(it models.Item) string { return it.ID })

	l.Reset(reels("R5", "R4", "R4", "R3"))
	assert.Equal(t, []string{"R5", "R4", "R3"}, l.IDs())

	assert.Equal(t, 2, l.Append(reels("R3", "R2", "R1")))
	assert.Equal(t, []string{"R5", "R4", "R3", "R2", "R1"}, l.IDs())

	assert.False(t, l.Prepend(reel("R4")))
	assert.True(t, l.Prepend(reel("R6")))

	assert.Equal(t, 1, l.MergeHead(reels("R7", "R6", "R5")))
	assert.Equal(t, []string{"R7", "R6", "R5", "R4", "R3", "R2", "R1"}, l.IDs())

	assert.True(t, l.Remove("R3"))
	assert.False(t, l.Remove("R3"))
	assert.Equal(t, 6, l.Len())
}

func TestMergeHeadDropsIDsGoneFromCoveredSpan(t *testing.T) {
	l := NewList(func(it models.Item) string { return it.ID })
	l.Reset(reels("R3", "R2", "R1"))

	assert.Equal(t, 1, l.MergeHead(reels("R4", "R3", "R1")))
	assert.Equal(t, []string{"R4", "R3", "R1"}, l.IDs())

	// entries past the page's last listed id are outside what it covers
	l.Reset(reels("R5", "R4", "R3", "R2", "R1"))
	l.MergeHead(reels("R5", "R3"))
	assert.Equal(t, []string{"R5", "R3", "R2", "R1"}, l.IDs())
}

func TestMergeHeadKeepsPendingIDsInSpan(t *testing.T) {
	l := NewList(func(it models.Item) string { return it.ID })
	l.Reset(reels("R3", "R2", "R1"))
	require.True(t, l.ApplyLocal("R2", func(it *models.Item) { it.Caption = "local" }))

	l.MergeHead(reels("R4", "R3", "R1"))
	assert.Equal(t, []string{"R4", "R3", "R2", "R1"}, l.IDs())
	got, _ := l.Get("R2")
	assert.Equal(t, "local", got.Caption)
}

func TestPendingEditsSurviveServerCopies(t *testing.T) {
	l := NewList(func(it models.Item) string { return it.ID })
	l.Reset(reels("A", "B"))

	require.True(t, l.ApplyLocal("A", func(it *models.Item) { it.Caption = "local" }))
	assert.True(t, l.Pending("A"))

	stale := reel("A")
	stale.Caption = "server"
	assert.False(t, l.Upsert(stale))
	l.MergeHead([]models.Item{stale})
	l.Reset([]models.Item{stale, reel("B")})

	got, ok := l.Get("A")
	require.True(t, ok)
	assert.Equal(t, "local", got.Caption)

	l.Confirm("A")
	assert.False(t, l.Pending("A"))
	assert.True(t, l.Upsert(stale))
	got, _ = l.Get("A")
	assert.Equal(t, "server", got.Caption)
}

func TestCreatedEventForKnownIDLeavesLengthUnchanged(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset(reels("R2", "R1"))

	changed, err := f.Apply("reelCreated", mustJSON(t, reel("R2")))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 2, f.Items.Len())

	changed, err = f.Apply("reelCreated", mustJSON(t, reel("R3")))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"R3", "R2", "R1"}, f.Items.IDs())
}

func TestApplyIgnoresOtherKinds(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset(reels("R1"))

	changed, err := f.Apply("postDeleted", []byte(`{"postId":"R1"}`))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.Apply("reelDeleted", []byte(`{"reelId":"R1"}`))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Zero(t, f.Items.Len())

	_, err = f.Apply("reelDeleted", []byte(`{"postId":"R1"}`))
	assert.Error(t, err)
}

func TestOwnLikeEchoKeepsLocalLike(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset([]models.Item{reel("R1", "u1")})

	liked, ok := f.ToggleLikeLocal("R1")
	require.True(t, ok)
	assert.True(t, liked)

	// server saw a concurrent like from someone else, so its count differs
	echo := mustJSON(t, map[string]any{
		"reelId": "R1", "userId": "me", "likesCount": 3,
		"likes": []string{"u1", "u2", "me"}, "isLiked": true,
	})
	changed, err := f.Apply("reelLiked", echo)
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := f.Items.Get("R1")
	assert.Equal(t, 3, got.LikeCount)
	assert.ElementsMatch(t, []string{"u1", "u2", "me"}, got.Likes)
	assert.False(t, f.Items.Pending("R1"))
}

func TestForeignLikeWhilePendingKeepsViewerLike(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset(reels("R1"))
	f.ToggleLikeLocal("R1")

	_, err := f.Apply("reelLiked", mustJSON(t, map[string]any{
		"reelId": "R1", "userId": "u2", "likesCount": 1, "likes": []string{"u2"}, "isLiked": true,
	}))
	require.NoError(t, err)

	got, _ := f.Items.Get("R1")
	assert.True(t, got.HasLike("me"))
	assert.ElementsMatch(t, []string{"me", "u2"}, got.Likes)
	assert.Equal(t, 2, got.LikeCount)
	assert.True(t, f.Items.Pending("R1"))

	_, err = f.Apply("reelLiked", mustJSON(t, map[string]any{
		"reelId": "R1", "userId": "me", "likesCount": 2, "likes": []string{"u2", "me"}, "isLiked": true,
	}))
	require.NoError(t, err)

	got, _ = f.Items.Get("R1")
	assert.ElementsMatch(t, []string{"me", "u2"}, got.Likes)
	assert.Equal(t, 2, got.LikeCount)
	assert.False(t, f.Items.Pending("R1"))
}

func TestEchoOfFirstToggleDoesNotUndoSecond(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset([]models.Item{reel("R1", "u1")})

	f.ToggleLikeLocal("R1")
	liked, _ := f.ToggleLikeLocal("R1")
	assert.False(t, liked)

	_, err := f.Apply("reelLiked", mustJSON(t, map[string]any{
		"reelId": "R1", "userId": "me", "likesCount": 2, "likes": []string{"u1", "me"}, "isLiked": true,
	}))
	require.NoError(t, err)
	got, _ := f.Items.Get("R1")
	assert.Equal(t, []string{"u1"}, got.Likes)
	assert.Equal(t, 1, got.LikeCount)
	assert.True(t, f.Items.Pending("R1"))

	_, err = f.Apply("reelLiked", mustJSON(t, map[string]any{
		"reelId": "R1", "userId": "me", "likesCount": 1, "likes": []string{"u1"}, "isLiked": false,
	}))
	require.NoError(t, err)
	got, _ = f.Items.Get("R1")
	assert.Equal(t, []string{"u1"}, got.Likes)
	assert.Equal(t, 1, got.LikeCount)
	assert.False(t, f.Items.Pending("R1"))
}

func TestOthersLikesReplaceState(t *testing.T) {
	f := NewFeed(models.KindPost, "me")
	f.Items.Reset([]models.Item{{ID: "P1", Kind: models.KindPost}})

	_, err := f.Apply("postLiked", mustJSON(t, map[string]any{
		"postId": "P1", "userId": "u9", "likesCount": 1, "isLiked": true,
	}))
	require.NoError(t, err)
	got, _ := f.Items.Get("P1")
	assert.Equal(t, []string{"u9"}, got.Likes)

	_, err = f.Apply("postLiked", mustJSON(t, map[string]any{
		"postId": "P1", "userId": "u9", "likesCount": 0, "isLiked": false,
	}))
	require.NoError(t, err)
	got, _ = f.Items.Get("P1")
	assert.Empty(t, got.Likes)
	assert.Zero(t, got.LikeCount)
}

func TestCommentEchoReplacesPlaceholder(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset(reels("R1"))

	local, ok := f.CommentLocal("R1", "hi")
	require.True(t, ok)
	assert.Equal(t, 1, local.Position)

	server := &models.Comment{ID: "c1", ItemID: "R1", UserID: "me", Text: "hi", Position: 1}
	payload := mustJSON(t, map[string]any{"reelId": "R1", "comment": server})

	changed, err := f.Apply("reelCommented", payload)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, f.SettleComment("R1", server))

	got, _ := f.Items.Get("R1")
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "c1", got.Comments[0].ID)
	assert.Equal(t, 1, got.CommentCount)
	assert.False(t, f.Items.Pending("R1"))

	other := &models.Comment{ID: "c2", ItemID: "R1", UserID: "u2", Text: "yo", Position: 2}
	_, err = f.Apply("reelCommented", mustJSON(t, map[string]any{"reelId": "R1", "comment": other}))
	require.NoError(t, err)
	got, _ = f.Items.Get("R1")
	assert.Equal(t, []string{"hi", "yo"}, []string{got.Comments[0].Text, got.Comments[1].Text})
	assert.Equal(t, 2, got.CommentCount)
}

func TestRollbackRestoresPrevious(t *testing.T) {
	f := NewFeed(models.KindReel, "me")
	f.Items.Reset(reels("R1"))
	prev, _ := f.Items.Get("R1")

	f.ToggleLikeLocal("R1")
	f.Rollback(prev)

	got, _ := f.Items.Get("R1")
	assert.Zero(t, got.LikeCount)
	assert.False(t, f.Items.Pending("R1"))
}

func TestMessageLogDedups(t *testing.T) {
	log := NewMessageLog()
	for i := 1; i <= 3; i++ {
		log.Append([]models.Message{{ID: fmt.Sprintf("m%d", i)}})
	}
	log.Append([]models.Message{{ID: "m2"}, {ID: "m4"}})
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, log.IDs())
}

func TestSequencerDiscardsStaleResponses(t *testing.T) {
	var s Sequencer
	first := s.Next()
	second := s.Next()

	assert.True(t, s.Accept(second))
	assert.False(t, s.Accept(first))
	assert.False(t, s.Accept(second))
	assert.False(t, s.Accept(99))

	third := s.Next()
	assert.True(t, s.Accept(third))
}
