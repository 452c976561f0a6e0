package api

import (
	"context"
	"strconv"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/pkg/logger"
)

func feedPath(kind models.ItemKind) string {
	if kind == models.KindReel {
		return "/reels/feed"
	}
	return "/posts/"
}

// Feed fetches offset page of kind. limit <= 0 leaves the server default.
func (c *Client) Feed(ctx context.Context, kind models.ItemKind, page, limit int) (*Page, error) {
	logger.Debug("Fetching feed", "kind", kind, "page", page, "limit", limit)

	req := c.R().SetContext(ctx).SetQueryParam("page", strconv.Itoa(page))
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	var body feedBody
	resp, err := req.SetResult(&body).Get(feedPath(kind))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	total := body.TotalPosts
	if kind == models.KindReel {
		total = body.TotalReels
	}
	return &Page{
		Items:       body.items(),
		CurrentPage: body.CurrentPage,
		HasMore:     body.HasMore,
		Total:       total,
	}, nil
}

// FeedAfter fetches the keyset page after cursor; an empty cursor is the first page
func (c *Client) FeedAfter(ctx context.Context, kind models.ItemKind, cursor string, limit int) (*SeekPage, error) {
	logger.Debug("Fetching feed", "kind", kind, "cursor", cursor, "limit", limit)

	req := c.R().SetContext(ctx).SetQueryParam("cursor", cursor)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	var body feedBody
	resp, err := req.SetResult(&body).Get(feedPath(kind))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &SeekPage{Items: body.items(), NextCursor: body.NextCursor, HasMore: body.HasMore}, nil
}

// ReelContext resolves the reel at index in feed order
func (c *Client) ReelContext(ctx context.Context, index int64) (*ReelContext, error) {
	var out ReelContext
	resp, err := c.R().SetContext(ctx).
		SetQueryParam("index", strconv.FormatInt(index, 10)).
		SetResult(&out).
		Get("/reels/context")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReelContextByID resolves a reel id to its position in feed order
func (c *Client) ReelContextByID(ctx context.Context, id string) (*ReelContext, error) {
	var out ReelContext
	resp, err := c.R().SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/reels/contextById/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleLike likes or unlikes an item for the current user
func (c *Client) ToggleLike(ctx context.Context, kind models.ItemKind, id string) (*LikeResult, error) {
	var out LikeResult
	resp, err := c.R().SetContext(ctx).
		SetPathParams(map[string]string{"kind": kind.Topic(), "id": id}).
		SetResult(&out).
		Put("/{kind}/like/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Comment appends a comment to an item
func (c *Client) Comment(ctx context.Context, kind models.ItemKind, id, text string) (*CommentResult, error) {
	var out CommentResult
	resp, err := c.R().SetContext(ctx).
		SetPathParams(map[string]string{"kind": kind.Topic(), "id": id}).
		SetBody(map[string]string{"text": text}).
		SetResult(&out).
		Post("/{kind}/comment/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
