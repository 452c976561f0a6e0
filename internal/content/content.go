// Package content creates and removes posts and reels and serves the reads
// that are not feed pages.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sadwiik06/SocialFlow/internal/cache"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/media"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.uber.org/zap"
)

const MaxCaptionLength = 300

var (
	ErrCaptionTooLong = errors.New("caption must be 300 characters or less")
	ErrMediaRequired  = errors.New("a video is required")
	ErrEmptyPost      = errors.New("a post needs an image or a caption")
	ErrForbidden      = errors.New("only the owner can delete this item")
	ErrInvalidKind    = errors.New("unknown item kind")
)

// Upload is one file from a multipart form
type Upload struct {
	Reader   io.Reader
	Filename string
}

// Service owns the post and reel lifecycle
type Service struct {
	items    store.ItemRepository
	uploader media.Uploader
	events   realtime.Broadcaster
	previews *cache.PreviewCache
}

// NewService wires the service. previews may be nil to disable caching.
func NewService(items store.ItemRepository, uploader media.Uploader, events realtime.Broadcaster, previews *cache.PreviewCache) *Service {
	return &Service{items: items, uploader: uploader, events: events, previews: previews}
}

func folderOf(kind models.ItemKind) string {
	if kind == models.KindReel {
		return media.FolderReels
	}
	return media.FolderPosts
}

// Create validates, stores the upload, persists the item and announces it
func (s *Service) Create(ctx context.Context, kind models.ItemKind, ownerID, caption string, upload *Upload) (*models.Item, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		return nil, ErrCaptionTooLong
	}
	switch {
	case kind == models.KindReel && upload == nil:
		return nil, ErrMediaRequired
	case kind == models.KindPost && upload == nil && caption == "":
		return nil, ErrEmptyPost
	}

	item := &models.Item{Kind: kind, Caption: caption, PostedBy: ownerID}
	if upload != nil {
		res, err := s.uploader.Upload(ctx, upload.Reader, upload.Filename, folderOf(kind), ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to store media: %w", err)
		}
		item.MediaURL = res.URL
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	created, err := s.items.GetItem(ctx, kind, item.ID)
	if err != nil {
		return nil, err
	}
	metrics.Get().ItemsCreated.WithLabelValues(string(kind)).Inc()
	logger.Log.Info("Item created",
		logger.WithKind(string(kind)),
		logger.WithItemID(created.ID),
		logger.WithUserID(ownerID),
	)

	s.publish(ctx, kind, realtime.ActionCreated, created)
	return created, nil
}

// Delete removes an item owned by actorID together with its likes and comments
func (s *Service) Delete(ctx context.Context, kind models.ItemKind, id, actorID string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}

	item, err := s.items.GetItem(ctx, kind, id)
	if err != nil {
		return err
	}
	if item.PostedBy != actorID {
		return ErrForbidden
	}

	if err := s.items.DeleteItem(ctx, kind, id); err != nil {
		return err
	}
	if s.previews != nil {
		s.previews.Invalidate(ctx, id)
	}
	metrics.Get().ItemsDeleted.WithLabelValues(string(kind)).Inc()
	logger.Log.Info("Item deleted", logger.WithKind(string(kind)), logger.WithItemID(id), logger.WithUserID(actorID))

	s.publish(ctx, kind, realtime.ActionDeleted, map[string]any{kind.IDField(): id})
	return nil
}

func (s *Service) Get(ctx context.Context, kind models.ItemKind, id string) (*models.Item, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return s.items.GetItem(ctx, kind, id)
}

// ListAll returns every item of kind in feed order
func (s *Service) ListAll(ctx context.Context, kind models.ItemKind) ([]*models.Item, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	items, err := s.items.ListItems(ctx, store.Query{Kind: kind}, 0, -1)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Item{}
	}
	return items, nil
}

// Preload returns the compact projection of a reel, served from cache when possible
func (s *Service) Preload(ctx context.Context, id string) (*models.ReelPreview, error) {
	if s.previews != nil {
		if p, ok := s.previews.Get(ctx, id); ok {
			return p, nil
		}
	}

	item, err := s.items.GetItem(ctx, models.KindReel, id)
	if err != nil {
		return nil, err
	}
	preview := item.Preview()
	if s.previews != nil {
		s.previews.Set(ctx, preview)
	}
	return preview, nil
}

func (s *Service) publish(ctx context.Context, kind models.ItemKind, action string, payload any) {
	if s.events == nil {
		return
	}
	event := realtime.ItemEvent(kind, action, payload)
	if err := s.events.Publish(context.WithoutCancel(ctx), kind.Topic(), event); err != nil {
		logger.Log.Warn("Failed to publish lifecycle event",
			logger.WithEvent(event.Type),
			logger.WithTopic(kind.Topic()),
			zap.Error(err),
		)
	}
}
