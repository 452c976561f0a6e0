package api

import (
	"context"

	"github.com/sadwiik06/SocialFlow/internal/models"
)

func (c *Client) follow(ctx context.Context, action, userID string) (*FollowResult, error) {
	var out FollowResult
	resp, err := c.R().SetContext(ctx).
		SetPathParams(map[string]string{"action": action, "id": userID}).
		SetResult(&out).
		Post("/users/{action}/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Follow follows userID; Changed is false when already following
func (c *Client) Follow(ctx context.Context, userID string) (*FollowResult, error) {
	return c.follow(ctx, "follow", userID)
}

// Unfollow stops following userID; Changed is false when not following
func (c *Client) Unfollow(ctx context.Context, userID string) (*FollowResult, error) {
	return c.follow(ctx, "unfollow", userID)
}

// OpenChat returns the chat with userID, creating it on first use
func (c *Client) OpenChat(ctx context.Context, userID string) (*models.Chat, error) {
	var out models.Chat
	resp, err := c.R().SetContext(ctx).
		SetBody(map[string]string{"userId": userID}).
		SetResult(&out).
		Post("/chat/")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chats lists the current user's chats
func (c *Client) Chats(ctx context.Context) ([]models.Chat, error) {
	var out []models.Chat
	resp, err := c.R().SetContext(ctx).SetResult(&out).Get("/chat/")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage stores a message in chatID
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*models.Message, error) {
	var out models.Message
	resp, err := c.R().SetContext(ctx).
		SetBody(map[string]string{"chatId": chatID, "text": text}).
		SetResult(&out).
		Post("/message")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns a chat's history, oldest first
func (c *Client) Messages(ctx context.Context, chatID string) ([]models.Message, error) {
	var out []models.Message
	resp, err := c.R().SetContext(ctx).
		SetPathParam("chatId", chatID).
		SetResult(&out).
		Get("/message/{chatId}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSeen marks every message in chatID as seen by the current user
func (c *Client) MarkSeen(ctx context.Context, chatID string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	resp, err := c.R().SetContext(ctx).
		SetPathParam("chatId", chatID).
		SetResult(&out).
		Put("/message/{chatId}/seen")
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	return out.Updated, nil
}
