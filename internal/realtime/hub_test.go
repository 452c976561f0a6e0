package realtime

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	hub.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return hub
}

// recv reads the next frame queued for a connectionless client
func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTopicScoping(t *testing.T) {
	hub := startHub(t)
	ctx := context.Background()

	postsOnly := NewClient(hub, nil, "u1", "one")
	reelsOnly := NewClient(hub, nil, "u2", "two")
	hub.Register(postsOnly, TopicPosts)
	hub.Register(reelsOnly, TopicReels)

	require.NoError(t, hub.Publish(ctx, TopicPosts, NewMessage("postCreated", map[string]string{"postId": "p1"})))
	require.NoError(t, hub.Publish(ctx, TopicReels, NewMessage("reelLiked", map[string]string{"reelId": "r1"})))

	assert.Equal(t, "postCreated", recv(t, postsOnly).Type)
	assertNoFrame(t, postsOnly)

	assert.Equal(t, "reelLiked", recv(t, reelsOnly).Type)
	assertNoFrame(t, reelsOnly)
}

func TestPublishExceptSkipsSender(t *testing.T) {
	hub := startHub(t)
	sender := NewClient(hub, nil, "a", "a")
	other := NewClient(hub, nil, "b", "b")
	hub.Register(sender)
	hub.Register(other)

	room := ChatRoom("c1")
	hub.Join(sender, room)
	hub.Join(other, room)
	assert.True(t, hub.IsMember(sender, room))
	assert.Equal(t, 2, hub.ChannelSize(room))

	require.NoError(t, hub.PublishExcept(context.Background(), room, NewMessage(TypeNewMessage, "hi"), sender))

	got := recv(t, other)
	assert.Equal(t, TypeNewMessage, got.Type)
	assert.Equal(t, "hi", got.Payload)
	assertNoFrame(t, sender)
}

func TestLeaveAndUnregister(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil, "a", "a")
	hub.Register(c, TopicPosts, TopicReels)
	hub.Join(c, UserRoom("a"))

	assert.ElementsMatch(t, []string{TopicPosts, TopicReels, UserRoom("a")}, hub.Channels(c))
	assert.True(t, hub.IsUserOnline("a"))

	hub.Leave(c, TopicPosts)
	assert.False(t, hub.IsMember(c, TopicPosts))

	hub.Unregister(c)
	assert.Eventually(t, func() bool {
		return hub.ChannelSize(TopicReels) == 0 && !hub.IsUserOnline("a")
	}, time.Second, 10*time.Millisecond)
	assert.Error(t, c.Context().Err())
}

func TestJoinIgnoredForUnknownClient(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil, "a", "a")
	hub.Join(c, TopicPosts)
	assert.Zero(t, hub.ChannelSize(TopicPosts))
}

func TestFullBufferDropsWithoutDisconnect(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil, "a", "a")
	hub.Register(c, TopicReels)

	ctx := context.Background()
	for i := 0; i < sendBufferSize+3; i++ {
		require.NoError(t, hub.Publish(ctx, TopicReels, NewMessage("reelLiked", i)))
	}

	assert.Eventually(t, func() bool {
		return hub.GetMetrics().MessagesDropped == 3
	}, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsMember(c, TopicReels))
	assert.Len(t, c.send, sendBufferSize)
}

func TestInProcessSubscribe(t *testing.T) {
	hub := startHub(t)
	ctx := context.Background()

	events, cancel, err := hub.Subscribe(ctx, TopicReels)
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, TopicPosts, NewMessage("postCreated", nil)))
	require.NoError(t, hub.Publish(ctx, TopicReels, NewMessage("reelDeleted", nil)))

	select {
	case msg := <-events:
		assert.Equal(t, "reelDeleted", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestSubscribeEndsWithContext(t *testing.T) {
	hub := startHub(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, release, err := hub.Subscribe(ctx, TopicPosts)
	require.NoError(t, err)
	defer release()

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub()
	hub.Start()

	events, release, err := hub.Subscribe(context.Background(), TopicPosts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
	release()

	_, _, err = hub.Subscribe(context.Background(), TopicPosts)
	assert.Error(t, err)
}

func TestShutdownRightAfterStartWaitsForLoop(t *testing.T) {
	for i := 0; i < 20; i++ {
		hub := NewHub()
		hub.Start()
		events, release, err := hub.Subscribe(context.Background(), TopicReels)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, hub.Shutdown(ctx))
		cancel()

		select {
		case _, open := <-events:
			assert.False(t, open)
		default:
			t.Fatal("Shutdown returned before the loop closed subscribers")
		}
		release()
	}
}

// memRelay connects hubs in one process
type memRelay struct {
	mu       sync.Mutex
	handlers []func([]byte)
}

type memRelayEnd struct{ bus *memRelay }

func (e memRelayEnd) Name() string { return "mem" }

func (e memRelayEnd) Publish(_ context.Context, data []byte) error {
	e.bus.mu.Lock()
	handlers := append([]func([]byte){}, e.bus.handlers...)
	e.bus.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (e memRelayEnd) Subscribe(_ context.Context, handler func([]byte)) error {
	e.bus.mu.Lock()
	e.bus.handlers = append(e.bus.handlers, handler)
	e.bus.mu.Unlock()
	return nil
}

func (e memRelayEnd) Close() error { return nil }

func TestRelayFansOutAcrossHubs(t *testing.T) {
	bus := &memRelay{}
	a, b := startHub(t), startHub(t)
	ctx := context.Background()
	require.NoError(t, a.AttachRelay(ctx, memRelayEnd{bus}))
	require.NoError(t, b.AttachRelay(ctx, memRelayEnd{bus}))

	onA := NewClient(a, nil, "a", "a")
	onB := NewClient(b, nil, "b", "b")
	a.Register(onA, TopicReels)
	b.Register(onB, TopicReels)

	require.NoError(t, a.Publish(ctx, TopicReels, NewMessage("reelCreated", nil)))

	assert.Equal(t, "reelCreated", recv(t, onB).Type)
	// the origin hub must not deliver its own echo a second time
	assert.Equal(t, "reelCreated", recv(t, onA).Type)
	assertNoFrame(t, onA)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	events, cancel, err := r.Subscribe(ctx, TopicPosts)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, r.Publish(ctx, TopicPosts, NewMessage("postLiked", nil)))
	require.NoError(t, r.Publish(ctx, TopicReels, NewMessage("reelLiked", nil)))

	assert.Len(t, r.Events(), 2)
	liked := r.OfType("postLiked")
	require.Len(t, liked, 1)
	assert.Equal(t, TopicPosts, liked[0].Channel)
	assert.Equal(t, "postLiked", (<-events).Type)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow())

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestFlexibleTime(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":1714557600000}`), &m))
	assert.Equal(t, int64(1714557600000), m.Timestamp.UnixMilli())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":"2024-05-01T10:00:00Z"}`), &m))
	assert.Equal(t, 2024, m.Timestamp.Year())

	assert.Error(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":true}`), &m))
}

func TestParseTopics(t *testing.T) {
	assert.Equal(t, []string{TopicReels}, parseTopics(" reels ,bogus,reels"))
	assert.Empty(t, parseTopics(""))
}

func TestParsePayload(t *testing.T) {
	msg := NewMessage(TypeJoinChat, map[string]any{"chatId": "c1"})
	var p RoomPayload
	require.NoError(t, msg.ParsePayload(&p))
	assert.Equal(t, "c1", p.ChatID)

	reply := NewReply(&Message{ID: "x"}, TypeJoined, nil)
	assert.Equal(t, "x", reply.ReplyTo)
}
