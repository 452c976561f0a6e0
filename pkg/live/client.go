// Package live is the realtime client: it holds one socket to the server,
// decodes events, and reconnects with exponential backoff when it drops.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	jsoniter "github.com/json-iterator/go"
	"github.com/sadwiik06/SocialFlow/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// State represents the state of the connection
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Event is one frame from the server. Payload is left raw for the caller.
type Event struct {
	Type      string              `json:"type"`
	Payload   jsoniter.RawMessage `json:"payload,omitempty"`
	ID        string              `json:"id,omitempty"`
	ReplyTo   string              `json:"replyTo,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

type outgoing struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Config holds live client configuration
type Config struct {
	URL    string
	Token  string
	Topics []string

	DialTimeout  time.Duration
	PingInterval time.Duration
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	// MaxAttempts bounds consecutive failed reconnects; negative is unlimited
	MaxAttempts int
}

// DefaultConfig returns the standard timings for rawURL
func DefaultConfig(rawURL, token string) Config {
	return Config{
		URL:          rawURL,
		Token:        token,
		DialTimeout:  15 * time.Second,
		PingInterval: 30 * time.Second,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  -1,
	}
}

// Backoff is the wait before reconnect attempt n (0-based): base doubled n
// times, capped at max.
func Backoff(n int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return min(d, max)
}

// Stats holds connection statistics
type Stats struct {
	MessagesReceived int64
	MessagesSent     int64
	ReconnectCount   int64
	LastError        string
	ConnectedAt      time.Time
}

// Client manages one realtime connection
type Client struct {
	cfg   Config
	state atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn

	// topics and rooms asked for over the socket, replayed after a reconnect
	membersMu sync.Mutex
	topics    []string
	rooms     []string

	listenersMu sync.RWMutex
	onEvent     []func(Event)
	onState     []func(State)
	onReconnect []func()

	received  atomic.Int64
	sent      atomic.Int64
	reconnect atomic.Int64
	statsMu   sync.Mutex
	lastErr   string
	since     time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 15 * time.Second
	}
	return &Client{cfg: cfg}
}

// OnEvent registers a callback for every decoded frame. Callbacks run on the
// read goroutine in arrival order.
func (c *Client) OnEvent(fn func(Event)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.onEvent = append(c.onEvent, fn)
}

// OnState registers a callback for state transitions
func (c *Client) OnState(fn func(State)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.onState = append(c.onState, fn)
}

// OnReconnect registers a callback run after every successful reconnect, not
// after the first connect.
func (c *Client) OnReconnect(fn func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.onReconnect = append(c.onReconnect, fn)
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *Client) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		MessagesReceived: c.received.Load(),
		MessagesSent:     c.sent.Load(),
		ReconnectCount:   c.reconnect.Load(),
		LastError:        c.lastErr,
		ConnectedAt:      c.since,
	}
}

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.listenersMu.RLock()
	callbacks := append([]func(State){}, c.onState...)
	c.listenersMu.RUnlock()
	for _, fn := range callbacks {
		fn(s)
	}
}

func (c *Client) recordError(err error) {
	c.statsMu.Lock()
	c.lastErr = err.Error()
	c.statsMu.Unlock()
}

// Run connects and keeps the connection alive until ctx is done or the
// reconnect budget is spent. The first dial failing is returned immediately.
func (c *Client) Run(ctx context.Context) error {
	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	for reconnected := false; ; reconnected = true {
		c.attach(conn)
		if reconnected {
			c.restore(ctx)
		}
		err := c.readLoop(ctx, conn)
		c.detach(conn)

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
		c.recordError(err)
		logger.Warn("Live connection lost", "error", err)

		conn, err = c.redial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			return err
		}
		c.reconnect.Add(1)
		c.fireReconnect()
	}
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.statsMu.Lock()
	c.since = time.Now()
	c.statsMu.Unlock()
	c.setState(StateConnected)
	logger.Debug("Live connection established", "url", c.cfg.URL)
}

// restore re-sends the subscribe and joinChat frames of the previous
// connection. Topics from Config are already in the dial URL.
func (c *Client) restore(ctx context.Context) {
	c.membersMu.Lock()
	topics := append([]string{}, c.topics...)
	rooms := append([]string{}, c.rooms...)
	c.membersMu.Unlock()

	for _, topic := range topics {
		if err := c.Send(ctx, "subscribe", map[string]string{"topic": topic}); err != nil {
			logger.Warn("Failed to restore subscription", "topic", topic, "error", err)
		}
	}
	for _, chatID := range rooms {
		if err := c.Send(ctx, "joinChat", map[string]string{"chatId": chatID}); err != nil {
			logger.Warn("Failed to rejoin chat", "chatId", chatID, "error", err)
		}
	}
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.CloseNow()
}

func (c *Client) fireReconnect() {
	c.listenersMu.RLock()
	callbacks := append([]func(){}, c.onReconnect...)
	c.listenersMu.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}

// redial retries with backoff until a dial succeeds
func (c *Client) redial(ctx context.Context) (*websocket.Conn, error) {
	c.setState(StateReconnecting)
	for attempt := 0; ; attempt++ {
		if c.cfg.MaxAttempts >= 0 && attempt >= c.cfg.MaxAttempts {
			return nil, fmt.Errorf("gave up after %d reconnect attempts", attempt)
		}

		wait := Backoff(attempt, c.cfg.BaseDelay, c.cfg.MaxDelay)
		logger.Debug("Reconnecting", "attempt", attempt+1, "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		conn, err := c.dial(ctx)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.recordError(err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := c.endpoint()
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

// endpoint adds the token and topic list to the configured URL
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid live url: %w", err)
	}
	q := u.Query()
	if c.cfg.Token != "" {
		q.Set("token", c.cfg.Token)
	}
	if len(c.cfg.Topics) > 0 {
		q.Set("topics", strings.Join(c.cfg.Topics, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	if c.cfg.PingInterval > 0 {
		go c.heartbeat(pingCtx)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("Dropping undecodable frame", "error", err)
			continue
		}
		c.received.Add(1)

		c.listenersMu.RLock()
		callbacks := append([]func(Event){}, c.onEvent...)
		c.listenersMu.RUnlock()
		for _, fn := range callbacks {
			fn(ev)
		}
	}
}

func (c *Client) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.Send(ctx, "ping", map[string]int64{"clientTime": time.Now().UnixMilli()})
			if err != nil {
				logger.Debug("Failed to send heartbeat", "error", err)
			}
		}
	}
}

// ErrNotConnected is returned by Send while there is no open connection
var ErrNotConnected = errors.New("not connected")

// Send writes one frame of msgType with payload
func (c *Client) Send(ctx context.Context, msgType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	msg := outgoing{Type: msgType, Payload: payload, Timestamp: time.Now().UnixMilli()}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

// Subscribe asks the server for a topic's lifecycle events. The topic is
// remembered and re-requested after every reconnect.
func (c *Client) Subscribe(ctx context.Context, topic string) error {
	c.remember(&c.topics, topic)
	return c.Send(ctx, "subscribe", map[string]string{"topic": topic})
}

func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	c.forget(&c.topics, topic)
	return c.Send(ctx, "unsubscribe", map[string]string{"topic": topic})
}

// JoinChat joins a chat room so newMessage frames for it arrive. Like
// Subscribe, the room is rejoined after a reconnect.
func (c *Client) JoinChat(ctx context.Context, chatID string) error {
	c.remember(&c.rooms, chatID)
	return c.Send(ctx, "joinChat", map[string]string{"chatId": chatID})
}

func (c *Client) LeaveChat(ctx context.Context, chatID string) error {
	c.forget(&c.rooms, chatID)
	return c.Send(ctx, "leaveChat", map[string]string{"chatId": chatID})
}

func (c *Client) remember(set *[]string, name string) {
	c.membersMu.Lock()
	defer c.membersMu.Unlock()
	if !slices.Contains(*set, name) {
		*set = append(*set, name)
	}
}

func (c *Client) forget(set *[]string, name string) {
	c.membersMu.Lock()
	defer c.membersMu.Unlock()
	*set = slices.DeleteFunc(*set, func(s string) bool { return s == name })
}

// Close drops the current connection; Run then tries to reconnect unless its
// context is done.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}
