package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sadwiik06/SocialFlow/internal/config"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the redis channel / nats subject used when none is configured
const DefaultRelayChannel = "socialflow.realtime"

// Relay carries published events between server instances
type Relay interface {
	Name() string
	Publish(ctx context.Context, data []byte) error
	// Subscribe calls handler for every relayed payload until ctx ends
	Subscribe(ctx context.Context, handler func([]byte)) error
	Close() error
}

// envelope is the relayed form of one Publish
type envelope struct {
	Origin  string   `json:"origin"`
	Channel string   `json:"channel"`
	Message *Message `json:"message"`
}

// NewRelay builds the relay selected by cfg.Relay; "none" or empty returns nil
func NewRelay(cfg config.RealtimeConfig) (Relay, error) {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultRelayChannel
	}

	switch cfg.Relay {
	case "", "none":
		return nil, nil
	case "redis":
		return NewRedisRelay(cfg.RedisAddr, cfg.RedisPassword, channel)
	case "nats":
		return NewNATSRelay(cfg.NATSURL, channel)
	default:
		return nil, fmt.Errorf("unknown realtime relay %q", cfg.Relay)
	}
}

// AttachRelay forwards this hub's publishes to relay and delivers events
// other instances publish. Events carrying this hub's origin are ignored.
func (h *Hub) AttachRelay(ctx context.Context, relay Relay) error {
	h.relay = relay
	if err := relay.Subscribe(ctx, h.onRelay); err != nil {
		h.relay = nil
		return fmt.Errorf("relay subscribe: %w", err)
	}
	logger.Log.Info("Realtime relay attached", zap.String("relay", relay.Name()))
	return nil
}

func (h *Hub) onRelay(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Message == nil {
		metrics.Get().RealtimeRelayErrors.WithLabelValues(h.relay.Name(), "decode").Inc()
		logger.WarnWithFields("Dropping malformed relay envelope", err)
		return
	}
	if env.Origin == h.origin {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, time.Second)
	defer cancel()
	if err := h.enqueue(ctx, &delivery{channel: env.Channel, message: env.Message}); err != nil {
		logger.Log.Debug("Relay delivery skipped", logger.WithTopic(env.Channel), zap.Error(err))
	}
}

// RedisRelay fans out over redis pub/sub
type RedisRelay struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
}

func NewRedisRelay(addr, password, channel string) (*RedisRelay, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Log.Info("Redis relay connected", zap.String("address", addr), logger.WithTopic(channel))
	return &RedisRelay{client: client, channel: channel}, nil
}

func (r *RedisRelay) Name() string { return "redis" }

func (r *RedisRelay) Publish(ctx context.Context, data []byte) error {
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, handler func([]byte)) error {
	r.pubsub = r.client.Subscribe(ctx, r.channel)
	// wait for the subscription to be confirmed
	if _, err := r.pubsub.Receive(ctx); err != nil {
		_ = r.pubsub.Close()
		return err
	}

	go func() {
		ch := r.pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	if r.pubsub != nil {
		_ = r.pubsub.Close()
	}
	return r.client.Close()
}

// NATSRelay fans out over a core NATS subject
type NATSRelay struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

func NewNATSRelay(url, subject string) (*NATSRelay, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("socialflow-realtime"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.WarnWithFields("NATS relay disconnected", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS relay reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Log.Info("NATS relay connected", zap.String("url", conn.ConnectedUrl()), logger.WithTopic(subject))
	return &NATSRelay{conn: conn, subject: subject}, nil
}

func (n *NATSRelay) Name() string { return "nats" }

func (n *NATSRelay) Publish(_ context.Context, data []byte) error {
	return n.conn.Publish(n.subject, data)
}

func (n *NATSRelay) Subscribe(ctx context.Context, handler func([]byte)) error {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return err
	}
	n.sub = sub
	context.AfterFunc(ctx, func() {
		_ = sub.Unsubscribe()
	})
	return nil
}

func (n *NATSRelay) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
