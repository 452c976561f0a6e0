package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/util"
)

type createChatRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type sendMessageRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// memberChat loads chatID and checks the caller belongs to it
func (h *Handlers) memberChat(c *gin.Context, chatID, userID string) (*models.Chat, bool) {
	chat, err := h.store.Chats().GetChat(c.Request.Context(), chatID)
	if errors.Is(err, store.ErrNotFound) {
		util.RespondNotFound(c, "chat")
		return nil, false
	}
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}
	if !chat.HasMember(userID) {
		util.RespondForbidden(c, "not a member of this chat")
		return nil, false
	}
	return chat, true
}

// CreateChat returns the chat for the caller and userId, creating it on first contact
func (h *Handlers) CreateChat(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	if req.UserID == userID {
		util.RespondBadRequest(c, "you can't chat with yourself")
		return
	}

	chat, created, err := h.store.Chats().FindOrCreateChat(c.Request.Context(), userID, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.RespondNotFound(c, "user")
			return
		}
		util.RespondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}

func (h *Handlers) ListChats(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	chats, err := h.store.Chats().ListChats(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// SendMessage stores a message. Delivery to the other member happens over
// the socket, where the sender relays the stored message id.
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		util.RespondValidationError(c, "text", "text is required")
		return
	}
	if _, ok := h.memberChat(c, req.ChatID, userID); !ok {
		return
	}

	msg := &models.Message{ChatID: req.ChatID, SenderID: userID, Text: text}
	if err := h.store.Chats().AppendMessage(c.Request.Context(), msg); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ChatMessages returns the history, oldest first
func (h *Handlers) ChatMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	chatID := c.Param("chatId")
	if _, ok := h.memberChat(c, chatID, userID); !ok {
		return
	}

	msgs, err := h.store.Chats().Messages(c.Request.Context(), chatID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handlers) MarkSeen(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	chatID := c.Param("chatId")
	if _, ok := h.memberChat(c, chatID, userID); !ok {
		return
	}

	n, err := h.store.Chats().MarkSeen(c.Request.Context(), chatID, userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
