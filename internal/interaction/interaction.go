// Package interaction implements the like and comment mutations and the
// realtime events they emit.
package interaction

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"github.com/sadwiik06/SocialFlow/internal/store"
)

// MaxCommentLength is measured in runes
const MaxCommentLength = 150

var (
	ErrCommentTooLong = errors.New("comment must be 150 characters or less")
	ErrCommentEmpty   = errors.New("comment text is required")
	ErrInvalidKind    = errors.New("unknown item kind")
)

// LikeResult is the state after a toggle
type LikeResult struct {
	IsLiked    bool     `json:"isLiked"`
	LikesCount int      `json:"likesCount"`
	Likes      []string `json:"likes"`
}

// Mutator applies interactions and announces them
type Mutator struct {
	items  store.ItemRepository
	events realtime.Broadcaster
}

func NewMutator(items store.ItemRepository, events realtime.Broadcaster) *Mutator {
	return &Mutator{items: items, events: events}
}

// ToggleLike adds userID's like if absent and removes it otherwise. The store
// applies the change and the count in one transaction.
func (m *Mutator) ToggleLike(ctx context.Context, kind models.ItemKind, itemID, userID string) (*LikeResult, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	state, err := m.items.ToggleLike(ctx, kind, itemID, userID)
	if err != nil {
		return nil, err
	}

	res := &LikeResult{IsLiked: state.Liked, LikesCount: state.Count, Likes: state.Likes}
	if res.Likes == nil {
		res.Likes = []string{}
	}
	metrics.Get().LikeTogglesTotal.WithLabelValues(string(kind), strconv.FormatBool(res.IsLiked)).Inc()

	m.publish(ctx, kind, realtime.ActionLiked, map[string]any{
		kind.IDField(): itemID,
		"userId":       userID,
		"likesCount":   res.LikesCount,
		"likes":        res.Likes,
		"isLiked":      res.IsLiked,
	})
	return res, nil
}

// ValidateComment trims text and enforces the length bounds. Over-long text is
// rejected, never truncated.
func ValidateComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrCommentEmpty
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", ErrCommentTooLong
	}
	return text, nil
}

// AppendComment stores a comment at the end of the item's comment list and
// returns it with the author hydrated.
func (m *Mutator) AppendComment(ctx context.Context, kind models.ItemKind, itemID, userID, text string) (*models.Comment, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	text, err := ValidateComment(text)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ItemKind: kind,
		ItemID:   itemID,
		UserID:   userID,
		Text:     text,
	}
	if err := m.items.AppendComment(ctx, comment); err != nil {
		return nil, err
	}
	metrics.Get().CommentsTotal.WithLabelValues(string(kind)).Inc()

	m.publish(ctx, kind, realtime.ActionCommented, map[string]any{
		kind.IDField(): itemID,
		"comment":      comment,
	})
	return comment, nil
}

// publish is fire-and-forget: the mutation has committed, so a failed
// broadcast is logged and not returned.
func (m *Mutator) publish(ctx context.Context, kind models.ItemKind, action string, payload map[string]any) {
	if m.events == nil {
		return
	}
	event := realtime.ItemEvent(kind, action, payload)
	if err := m.events.Publish(context.WithoutCancel(ctx), kind.Topic(), event); err != nil {
		logger.WarnWithFields("Failed to publish interaction event", err,
			logger.WithEvent(event.Type),
			logger.WithTopic(kind.Topic()),
		)
	}
}
