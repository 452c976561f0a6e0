package realtime

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Authenticator validates the bearer token presented at connect time
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID, username string, err error)
}

// ChatLookup is the slice of the chat store the socket handlers need
type ChatLookup interface {
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
}

// lookupTimeout bounds store calls made from socket handlers
const lookupTimeout = 5 * time.Second

// Handler upgrades HTTP requests and owns the built-in room handlers
type Handler struct {
	hub   *Hub
	auth  Authenticator
	chats ChatLookup
}

// NewHandler wires the socket endpoint and registers the client message
// handlers on hub.
func NewHandler(hub *Hub, auth Authenticator, chats ChatLookup) *Handler {
	h := &Handler{hub: hub, auth: auth, chats: chats}

	hub.RegisterHandler(TypeJoinUser, h.handleJoinUser)
	hub.RegisterHandler(TypeJoinChat, h.handleJoinChat)
	hub.RegisterHandler(TypeLeaveChat, h.handleLeaveChat)
	hub.RegisterHandler(TypeSubscribe, h.handleSubscribe)
	hub.RegisterHandler(TypeUnsubscribe, h.handleUnsubscribe)
	hub.RegisterHandler(TypeSendMessage, h.handleSendMessage)
	return h
}

// HandleWebSocket upgrades the request. The token comes from ?token= or an
// Authorization: Bearer header. ?topics=posts,reels picks the initial topics;
// an empty value subscribes to none.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, username, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Debug("Realtime auth failed", logger.WithIP(c.ClientIP()), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	topics := DefaultTopics
	if raw, ok := c.GetQuery("topics"); ok {
		topics = parseTopics(raw)
	}

	conn, err := websocket.Accept(upgradeWriter(c), c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("Realtime upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID, username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client, topics...)

	client.Send(NewMessage(TypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to SocialFlow",
		Data: map[string]any{
			"userId":     userID,
			"username":   username,
			"topics":     topics,
			"serverTime": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump()
}

// handshakeWriter writes the 101 through the server's writer and hijacks through
// gin. Accepting on c.Writer directly makes the library flush the status via
// WriteHeaderNow, after which gin refuses the hijack.
type handshakeWriter struct {
	http.ResponseWriter
	gin gin.ResponseWriter
}

func (w handshakeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.gin.Hijack()
}

func upgradeWriter(c *gin.Context) http.ResponseWriter {
	inner, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter })
	if !ok {
		return c.Writer
	}
	return handshakeWriter{ResponseWriter: inner.Unwrap(), gin: c.Writer}
}

func (h *Handler) authenticateRequest(c *gin.Context) (string, string, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		return "", "", errors.New("no authentication token provided")
	}
	return h.auth.Authenticate(c.Request.Context(), token)
}

// parseTopics keeps the valid, distinct names from a comma list
func parseTopics(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Uniq(lo.Filter(parts, func(s string, _ int) bool {
		return ValidTopic(s)
	}))
}

// handleJoinUser joins the caller's own user room
func (h *Handler) handleJoinUser(client *Client, message *Message) error {
	var p RoomPayload
	if err := message.ParsePayload(&p); err != nil {
		return handlerError(CodeInvalid, "invalid joinUser payload")
	}
	if p.UserID != "" && p.UserID != client.UserID {
		return handlerError(CodeForbidden, "cannot join another user's room")
	}

	room := UserRoom(client.UserID)
	h.hub.Join(client, room)
	return client.Send(NewReply(message, TypeJoined, JoinedPayload{Room: room}))
}

// handleJoinChat joins a chat room; only members may join
func (h *Handler) handleJoinChat(client *Client, message *Message) error {
	var p RoomPayload
	if err := message.ParsePayload(&p); err != nil || p.ChatID == "" {
		return handlerError(CodeInvalid, "chatId is required")
	}

	chat, err := h.chat(client, p.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(client.UserID) {
		return handlerError(CodeForbidden, "not a member of this chat")
	}

	room := ChatRoom(chat.ID)
	h.hub.Join(client, room)
	logger.Log.Debug("Joined chat room", logger.WithUserID(client.UserID), logger.WithChatID(chat.ID), logger.WithRoom(room))
	return client.Send(NewReply(message, TypeJoined, JoinedPayload{Room: room}))
}

func (h *Handler) handleLeaveChat(client *Client, message *Message) error {
	var p RoomPayload
	if err := message.ParsePayload(&p); err != nil || p.ChatID == "" {
		return handlerError(CodeInvalid, "chatId is required")
	}

	room := ChatRoom(p.ChatID)
	h.hub.Leave(client, room)
	return client.Send(NewReply(message, TypeLeft, JoinedPayload{Room: room}))
}

func (h *Handler) handleSubscribe(client *Client, message *Message) error {
	topic, err := parseTopicPayload(message)
	if err != nil {
		return err
	}
	h.hub.Join(client, topic)
	return client.Send(NewReply(message, TypeSubscribed, TopicPayload{Topic: topic}))
}

func (h *Handler) handleUnsubscribe(client *Client, message *Message) error {
	topic, err := parseTopicPayload(message)
	if err != nil {
		return err
	}
	h.hub.Leave(client, topic)
	return client.Send(NewReply(message, TypeLeft, JoinedPayload{Room: topic}))
}

func parseTopicPayload(message *Message) (string, error) {
	var p TopicPayload
	if err := message.ParsePayload(&p); err != nil || !ValidTopic(p.Topic) {
		return "", handlerError(CodeInvalid, "topic must be one of %s", strings.Join(DefaultTopics, ", "))
	}
	return p.Topic, nil
}

// handleSendMessage relays a stored message to the chat room as newMessage,
// skipping the sending socket. The message must already exist and belong to
// the sender.
func (h *Handler) handleSendMessage(client *Client, message *Message) error {
	var p SendMessagePayload
	if err := message.ParsePayload(&p); err != nil || p.MessageID == "" {
		return handlerError(CodeInvalid, "messageId is required")
	}

	ctx, cancel := context.WithTimeout(client.Context(), lookupTimeout)
	defer cancel()

	msg, err := h.chats.GetMessage(ctx, p.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return handlerError(CodeNotFound, "message not found")
	}
	if err != nil {
		return err
	}
	if msg.SenderID != client.UserID {
		return handlerError(CodeForbidden, "not the sender of this message")
	}
	if p.ChatID != "" && p.ChatID != msg.ChatID {
		return handlerError(CodeInvalid, "message does not belong to chat")
	}

	chat, err := h.chat(client, msg.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(client.UserID) {
		return handlerError(CodeForbidden, "not a member of this chat")
	}

	return h.hub.PublishExcept(ctx, ChatRoom(chat.ID), NewMessage(TypeNewMessage, msg), client)
}

func (h *Handler) chat(client *Client, chatID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(client.Context(), lookupTimeout)
	defer cancel()

	chat, err := h.chats.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, handlerError(CodeNotFound, "chat not found")
	}
	return chat, err
}

// HandleMetrics reports hub statistics
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"realtime":  h.hub.GetMetrics(),
		"timestamp": time.Now().UTC(),
	})
}
