// Package cache holds the in-process reel preview cache. Entries are dropped
// when a realtime event says the reel changed.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"go.uber.org/zap"
)

const (
	// DefaultTTL bounds staleness for events this instance never sees
	DefaultTTL = 5 * time.Minute

	name       = "reel_preview"
	previewTag = "reel-preview"
	keyPrefix  = "reel-preview#"
)

// PreviewCache caches models.ReelPreview by reel id
type PreviewCache struct {
	raw     *ristretto.Cache
	marshal *marshaler.Marshaler
	ttl     time.Duration
}

func New(ttl time.Duration) (*PreviewCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	manager := cache.New[any](ristretto_store.NewRistretto(raw))
	return &PreviewCache{
		raw:     raw,
		marshal: marshaler.New(manager),
		ttl:     ttl,
	}, nil
}

func key(id string) string {
	return keyPrefix + id
}

// Get returns the cached preview for id, if any
func (c *PreviewCache) Get(ctx context.Context, id string) (*models.ReelPreview, bool) {
	v, err := c.marshal.Get(ctx, key(id), new(models.ReelPreview))
	if err != nil {
		metrics.Get().CacheMissesTotal.WithLabelValues(name).Inc()
		return nil, false
	}
	metrics.Get().CacheHitsTotal.WithLabelValues(name).Inc()
	return v.(*models.ReelPreview), true
}

func (c *PreviewCache) Set(ctx context.Context, preview *models.ReelPreview) {
	err := c.marshal.Set(ctx, key(preview.ID), preview,
		store.WithExpiration(c.ttl),
		store.WithCost(1),
		store.WithTags([]string{previewTag}),
	)
	if err != nil {
		logger.WarnWithFields("Failed to cache reel preview", err, logger.WithItemID(preview.ID))
		return
	}
	// ristretto applies sets asynchronously
	c.raw.Wait()
}

func (c *PreviewCache) Invalidate(ctx context.Context, id string) {
	_ = c.marshal.Delete(ctx, key(id))
}

// Clear drops every preview
func (c *PreviewCache) Clear() {
	c.raw.Clear()
}

// Close stops ristretto's background goroutines
func (c *PreviewCache) Close() {
	c.raw.Close()
}

// Watch invalidates previews from the reels topic until ctx ends
func (c *PreviewCache) Watch(ctx context.Context, events realtime.Broadcaster) error {
	stream, cancel, err := events.Subscribe(ctx, models.KindReel.Topic())
	if err != nil {
		return fmt.Errorf("cache watch subscribe: %w", err)
	}

	go func() {
		defer cancel()
		for msg := range stream {
			c.apply(ctx, msg)
		}
		logger.Log.Debug("Preview cache watcher stopped")
	}()
	return nil
}

var invalidating = map[string]bool{
	models.KindReel.Event(realtime.ActionLiked):     true,
	models.KindReel.Event(realtime.ActionCommented): true,
	models.KindReel.Event(realtime.ActionDeleted):   true,
}

func (c *PreviewCache) apply(ctx context.Context, msg *realtime.Message) {
	if !invalidating[msg.Type] {
		return
	}

	var ref struct {
		ReelID string `json:"reelId"`
	}
	if err := msg.ParsePayload(&ref); err != nil || ref.ReelID == "" {
		logger.Log.Debug("Ignoring reel event without id", logger.WithEvent(msg.Type), zap.Error(err))
		return
	}
	c.Invalidate(ctx, ref.ReelID)
}
