package api

import (
	"context"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/pkg/logger"
)

// RegisterRequest is the sign-up body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Gender   string `json:"gender,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Register creates an account and adopts its token
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	logger.Debug("Registering", "username", req.Username)

	var out AuthResponse
	resp, err := c.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/auth/register")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login signs in with an email or username and adopts the returned token
func (c *Client) Login(ctx context.Context, emailOrUsername, password string) (*AuthResponse, error) {
	logger.Debug("Logging in", "login", emailOrUsername)

	var out AuthResponse
	resp, err := c.R().SetContext(ctx).
		SetBody(map[string]string{"emailOrUsername": emailOrUsername, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Me returns the user the current token belongs to
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	resp, err := c.R().SetContext(ctx).SetResult(&out).Get("/auth/me")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
