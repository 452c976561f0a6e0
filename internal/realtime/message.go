package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/models"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON accepts Unix milliseconds or an RFC3339 string
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always emits RFC3339
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types
const (
	// Client to server
	TypeJoinUser    = "joinUser"
	TypeJoinChat    = "joinChat"
	TypeLeaveChat   = "leaveChat"
	TypeSendMessage = "sendMessage"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"

	// Server to client
	TypeSystem     = "system"
	TypeJoined     = "joined"
	TypeLeft       = "left"
	TypeSubscribed = "subscribed"
	TypePong       = "pong"
	TypeError      = "error"
	TypeNewMessage = "newMessage"
)

// Lifecycle actions, combined with an item kind into e.g. "reelLiked"
const (
	ActionCreated   = "Created"
	ActionLiked     = "Liked"
	ActionCommented = "Commented"
	ActionDeleted   = "Deleted"
)

// ItemEvent builds a lifecycle event for kind, published on kind.Topic()
func ItemEvent(kind models.ItemKind, action string, payload any) *Message {
	return NewMessage(kind.Event(action), payload)
}

// Topics clients may subscribe to
const (
	TopicPosts = "posts"
	TopicReels = "reels"
)

// DefaultTopics are subscribed on connect unless the client asks otherwise
var DefaultTopics = []string{TopicPosts, TopicReels}

// ValidTopic reports whether t is a subscribable topic
func ValidTopic(t string) bool {
	return t == TopicPosts || t == TopicReels
}

// ChatRoom names the room for a chat
func ChatRoom(chatID string) string {
	return "chat:" + chatID
}

// UserRoom names the room for a user
func UserRoom(userID string) string {
	return "user:" + userID
}

// Message is the envelope for every frame in both directions
type Message struct {
	Type      string       `json:"type"`
	Payload   any          `json:"payload,omitempty"`
	ID        string       `json:"id,omitempty"`
	ReplyTo   string       `json:"replyTo,omitempty"`
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(msgType string, payload any) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a message answering original
func NewReply(original *Message, msgType string, payload any) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// NewErrorMessage creates an error frame
func NewErrorMessage(code, message string) *Message {
	return NewMessage(TypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload decodes the payload into target
func (m *Message) ParsePayload(target any) error {
	if m.Payload == nil {
		return nil
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// Error codes sent in ErrorPayload
const (
	CodeInvalidJSON  = "invalid_json"
	CodeInvalid      = "invalid_payload"
	CodeUnknownType  = "unknown_type"
	CodeRateLimited  = "rate_limited"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeHandlerError = "handler_error"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"clientTime"`
}

type PongPayload struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
	Latency    int64 `json:"latencyMs"`
}

// RoomPayload is used by joinUser, joinChat and leaveChat
type RoomPayload struct {
	UserID string `json:"userId,omitempty"`
	ChatID string `json:"chatId,omitempty"`
}

type TopicPayload struct {
	Topic string `json:"topic"`
}

// SendMessagePayload names a message already stored through the REST API
type SendMessagePayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

type JoinedPayload struct {
	Room string `json:"room"`
}

type SystemPayload struct {
	Event   string         `json:"event"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
