// Package realtime is the socket fan-out: a hub that owns topic and room
// membership, per-connection pumps, and optional cross-instance relays.
// Uses github.com/coder/websocket.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"go.uber.org/zap"
)

// Hub maintains active clients and their channel memberships. The maps are
// only written by the Run loop; mu lets other goroutines read them.
type Hub struct {
	// origin tags relay envelopes so an instance ignores its own echoes
	origin string

	// clients maps each connection to the channels it belongs to
	clients map[*Client]map[string]struct{}

	// channels maps a topic or room to its members
	channels map[string]map[*Client]struct{}

	register   chan *registration
	unregister chan *Client
	membership chan *membershipChange
	publish    chan *delivery

	mu sync.RWMutex

	subs  *subscribers
	relay Relay

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handlerMu sync.RWMutex
	handlers  map[string]MessageHandler

	rateLimitConfig RateLimitConfig
}

var _ Broadcaster = (*Hub)(nil)

// Metrics tracks socket statistics
type Metrics struct {
	TotalConnections  atomic.Int64
	ActiveConnections atomic.Int64
	MessagesReceived  atomic.Int64
	MessagesSent      atomic.Int64
	MessagesDropped   atomic.Int64
	Errors            atomic.Int64
}

// RateLimitConfig defines per-client inbound rate limiting
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
	Window               time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
		Window:               time.Second,
	}
}

// MessageHandler processes inbound messages of one type
type MessageHandler func(client *Client, message *Message) error

type registration struct {
	client   *Client
	channels []string
	done     chan struct{}
}

type membershipChange struct {
	client  *Client
	channel string
	join    bool
	done    chan struct{}
}

type delivery struct {
	channel string
	message *Message
	exclude *Client
}

// NewHub creates a hub. Call Run in its own goroutine.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		origin:          uuid.NewString(),
		clients:         make(map[*Client]map[string]struct{}),
		channels:        make(map[string]map[*Client]struct{}),
		register:        make(chan *registration, 256),
		unregister:      make(chan *Client, 256),
		membership:      make(chan *membershipChange, 256),
		publish:         make(chan *delivery, 256),
		subs:            newSubscribers(),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.handlers[msgType] = handler
	logger.Log.Debug("Registered realtime handler", zap.String("type", msgType))
}

func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.handlerMu.RLock()
	defer h.handlerMu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

func (h *Hub) SetRateLimitConfig(cfg RateLimitConfig) {
	h.rateLimitConfig = cfg
}

func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	return h.rateLimitConfig
}

// Start runs the event loop in its own goroutine. Shutdown waits for it.
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()
}

func (h *Hub) run() {
	logger.Log.Info("Realtime hub starting", zap.String("origin", h.origin))

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case reg := <-h.register:
			h.registerClient(reg)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case change := <-h.membership:
			h.applyMembership(change)

		case d := <-h.publish:
			h.deliver(d)
		}
	}
}

func (h *Hub) registerClient(reg *registration) {
	defer close(reg.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[reg.client]; ok {
		return
	}
	h.clients[reg.client] = make(map[string]struct{})
	for _, ch := range reg.channels {
		h.joinLocked(reg.client, ch)
	}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().RealtimeConnections.Inc()

	logger.Log.Info("Realtime client connected",
		logger.WithUserID(reg.client.UserID),
		zap.Strings("channels", reg.channels),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clients[client]
	if !ok {
		return
	}
	for ch := range joined {
		h.leaveLocked(client, ch)
	}
	delete(h.clients, client)
	client.cancel()

	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().RealtimeConnections.Dec()

	logger.Log.Info("Realtime client disconnected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

func (h *Hub) applyMembership(change *membershipChange) {
	defer close(change.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[change.client]; !ok {
		return
	}
	if change.join {
		h.joinLocked(change.client, change.channel)
	} else {
		h.leaveLocked(change.client, change.channel)
	}
}

func (h *Hub) joinLocked(client *Client, channel string) {
	members := h.channels[channel]
	if members == nil {
		members = make(map[*Client]struct{})
		h.channels[channel] = members
	}
	members[client] = struct{}{}
	h.clients[client][channel] = struct{}{}
}

func (h *Hub) leaveLocked(client *Client, channel string) {
	if members, ok := h.channels[channel]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	if joined, ok := h.clients[client]; ok {
		delete(joined, channel)
	}
}

// deliver fans a message out to the channel's sockets and in-process
// subscribers. A full client buffer drops the message for that client only.
func (h *Hub) deliver(d *delivery) {
	data, err := json.Marshal(d.message)
	if err != nil {
		logger.ErrorWithFields("Failed to marshal realtime message", err, logger.WithEvent(d.message.Type))
		return
	}

	m := metrics.Get()
	m.RealtimeEventsTotal.WithLabelValues(d.message.Type, scopeOf(d.channel)).Inc()

	h.mu.RLock()
	for client := range h.channels[d.channel] {
		if client == d.exclude {
			continue
		}
		select {
		case client.send <- data:
			h.metrics.MessagesSent.Add(1)
		default:
			h.metrics.MessagesDropped.Add(1)
			m.RealtimeDroppedTotal.WithLabelValues(d.message.Type).Inc()
			logger.Log.Warn("Realtime send buffer full, dropping message",
				logger.WithUserID(client.UserID),
				logger.WithEvent(d.message.Type),
				logger.WithRoom(d.channel),
			)
		}
	}
	h.mu.RUnlock()

	if dropped := h.subs.deliver(d.channel, d.message); dropped > 0 {
		h.metrics.MessagesDropped.Add(int64(dropped))
		m.RealtimeDroppedTotal.WithLabelValues(d.message.Type).Add(float64(dropped))
	}
}

// scopeOf labels a channel as a topic or a room for metrics
func scopeOf(channel string) string {
	if strings.Contains(channel, ":") {
		return "room"
	}
	return "topic"
}

// Publish sends msg to every member of channel, here and on relayed instances
func (h *Hub) Publish(ctx context.Context, channel string, msg *Message) error {
	return h.PublishExcept(ctx, channel, msg, nil)
}

// PublishExcept is Publish without delivering to exclude
func (h *Hub) PublishExcept(ctx context.Context, channel string, msg *Message, exclude *Client) error {
	if err := h.enqueue(ctx, &delivery{channel: channel, message: msg, exclude: exclude}); err != nil {
		return err
	}
	if h.relay == nil {
		return nil
	}

	data, err := json.Marshal(&envelope{Origin: h.origin, Channel: channel, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode relay envelope: %w", err)
	}
	if err := h.relay.Publish(ctx, data); err != nil {
		metrics.Get().RealtimeRelayErrors.WithLabelValues(h.relay.Name(), "publish").Inc()
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

func (h *Hub) enqueue(ctx context.Context, d *delivery) error {
	select {
	case h.publish <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped")
	}
}

// Subscribe follows channel in-process. The stream is closed by cancel, by
// ctx ending, or by hub shutdown.
func (h *Hub) Subscribe(ctx context.Context, channel string) (<-chan *Message, func(), error) {
	if h.ctx.Err() != nil {
		return nil, nil, fmt.Errorf("hub stopped")
	}
	ch, cancel := h.subs.add(channel)
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}

// Register adds a client and joins it to the given channels. It returns once
// the hub loop has applied the change.
func (h *Hub) Register(client *Client, channels ...string) {
	reg := &registration{client: client, channels: channels, done: make(chan struct{})}
	select {
	case h.register <- reg:
	case <-h.ctx.Done():
		return
	}
	select {
	case <-reg.done:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub and every channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Join adds client to channel and waits for the hub loop to apply it
func (h *Hub) Join(client *Client, channel string) {
	h.changeMembership(client, channel, true)
}

// Leave removes client from channel and waits for the hub loop to apply it
func (h *Hub) Leave(client *Client, channel string) {
	h.changeMembership(client, channel, false)
}

func (h *Hub) changeMembership(client *Client, channel string, join bool) {
	change := &membershipChange{client: client, channel: channel, join: join, done: make(chan struct{})}
	select {
	case h.membership <- change:
	case <-h.ctx.Done():
		return
	}
	select {
	case <-change.done:
	case <-h.ctx.Done():
	}
}

// IsMember reports whether client currently belongs to channel
func (h *Hub) IsMember(client *Client, channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.channels[channel][client]
	return ok
}

// Channels returns the channels client belongs to
func (h *Hub) Channels(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients[client]))
	for ch := range h.clients[client] {
		out = append(out, ch)
	}
	return out
}

// ChannelSize returns the number of sockets in channel
func (h *Hub) ChannelSize(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// IsUserOnline reports whether the user has joined their user room on any socket
func (h *Hub) IsUserOnline(userID string) bool {
	return h.ChannelSize(UserRoom(userID)) > 0
}

func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:  h.metrics.TotalConnections.Load(),
		ActiveConnections: h.metrics.ActiveConnections.Load(),
		MessagesReceived:  h.metrics.MessagesReceived.Load(),
		MessagesSent:      h.metrics.MessagesSent.Load(),
		MessagesDropped:   h.metrics.MessagesDropped.Load(),
		Errors:            h.metrics.Errors.Load(),
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics
type MetricsSnapshot struct {
	TotalConnections  int64 `json:"totalConnections"`
	ActiveConnections int64 `json:"activeConnections"`
	MessagesReceived  int64 `json:"messagesReceived"`
	MessagesSent      int64 `json:"messagesSent"`
	MessagesDropped   int64 `json:"messagesDropped"`
	Errors            int64 `json:"errors"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d dropped=%d errors=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.MessagesDropped, m.Errors,
	)
}

// Shutdown stops the loop and closes every connection
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("Realtime hub shutting down")
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(TypeSystem, SystemPayload{Event: "server_shutdown"}))
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
		client.cancel()
	}
	count := len(h.clients)
	h.clients = make(map[*Client]map[string]struct{})
	h.channels = make(map[string]map[*Client]struct{})
	h.subs.closeAll()

	logger.Log.Info("Realtime hub stopped", zap.Int("closed", count))
}
