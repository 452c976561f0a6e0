package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *PreviewCache {
	t.Helper()
	c, err := New(time.Minute)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	_, ok := c.Get(ctx, "r1")
	assert.False(t, ok)

	c.Set(ctx, &models.ReelPreview{ID: "r1", VideoURL: "uploads/r1.mp4", Caption: "hi", LikesCount: 3})

	got, ok := c.Get(ctx, "r1")
	require.True(t, ok)
	assert.Equal(t, "uploads/r1.mp4", got.VideoURL)
	assert.Equal(t, 3, got.LikesCount)

	c.Invalidate(ctx, "r1")
	_, ok = c.Get(ctx, "r1")
	assert.False(t, ok)
}

func TestWatchInvalidatesOnReelEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newCache(t)
	events := realtime.NewRecorder()
	require.NoError(t, c.Watch(ctx, events))

	c.Set(ctx, &models.ReelPreview{ID: "r1"})
	c.Set(ctx, &models.ReelPreview{ID: "r2"})

	require.NoError(t, events.Publish(ctx, realtime.TopicReels,
		realtime.ItemEvent(models.KindReel, realtime.ActionLiked, map[string]any{"reelId": "r1", "likesCount": 1})))

	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "r1")
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, ok := c.Get(ctx, "r2")
	assert.True(t, ok)
}

func TestWatchIgnoresOtherEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newCache(t)
	events := realtime.NewRecorder()
	require.NoError(t, c.Watch(ctx, events))
	c.Set(ctx, &models.ReelPreview{ID: "r1"})

	require.NoError(t, events.Publish(ctx, realtime.TopicReels,
		realtime.ItemEvent(models.KindReel, realtime.ActionCreated, map[string]any{"id": "r1"})))
	require.NoError(t, events.Publish(ctx, realtime.TopicReels,
		realtime.ItemEvent(models.KindReel, realtime.ActionDeleted, map[string]any{"reelId": "other"})))

	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get(ctx, "r1")
	assert.True(t, ok)
}
