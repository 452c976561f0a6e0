package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/telemetry"
	"github.com/sadwiik06/SocialFlow/internal/util"
)

var reelQuery = store.Query{Kind: models.KindReel}

// ReelsFeed serves GET /reels/feed in offset or cursor mode
func (h *Handlers) ReelsFeed(c *gin.Context) {
	h.serveFeed(c, reelQuery, reelsFeedLimit)
}

// UserReels pages one author's reels
func (h *Handlers) UserReels(c *gin.Context) {
	h.serveFeed(c, store.Query{Kind: models.KindReel, AuthorID: c.Param("userId")}, userFeedLimit)
}

// ReelContext resolves ?index= to a reel and its neighbours
func (h *Handlers) ReelContext(c *gin.Context) {
	index, err := util.ParseInt64Param(c.DefaultQuery("index", "0"))
	if err != nil {
		util.RespondValidationError(c, "index", "index must be an integer")
		return
	}

	ctx, span := telemetry.TraceResolve(c.Request.Context(), string(models.KindReel), "index", string(h.resolver.Strategy()))
	res, err := h.resolver.ResolveByIndex(ctx, reelQuery, index)
	telemetry.End(span, err)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReelContextByID resolves a reel id to its position and neighbours
func (h *Handlers) ReelContextByID(c *gin.Context) {
	ctx, span := telemetry.TraceResolve(c.Request.Context(), string(models.KindReel), "id", string(h.resolver.Strategy()))
	res, err := h.resolver.ResolveByID(ctx, reelQuery, c.Param("id"))
	telemetry.End(span, err)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PreloadReel returns the cached compact projection of a reel
func (h *Handlers) PreloadReel(c *gin.Context) {
	preview, err := h.content.Preload(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handlers) AllReels(c *gin.Context) {
	h.listAll(c, models.KindReel)
}

func (h *Handlers) GetReel(c *gin.Context) {
	h.getItem(c, models.KindReel, c.Param("id"))
}

// CreateReel expects multipart with the video in "videoUrl"
func (h *Handlers) CreateReel(c *gin.Context) {
	h.createItem(c, models.KindReel, "videoUrl")
}

func (h *Handlers) DeleteReel(c *gin.Context) {
	h.deleteItem(c, models.KindReel, c.Param("id"))
}

// LikeReel toggles the caller's like
func (h *Handlers) LikeReel(c *gin.Context) {
	out, ok := h.toggleLike(c, models.KindReel, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    out.message,
		"isLiked":    out.isLiked,
		"likesCount": out.likesCount,
	})
}

func (h *Handlers) CommentOnReel(c *gin.Context) {
	comment, ok := h.appendComment(c, models.KindReel, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment added", "comment": comment})
}
