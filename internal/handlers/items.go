package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/content"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/telemetry"
	"github.com/sadwiik06/SocialFlow/internal/util"
)

// Default page sizes when the client sends no limit
const (
	reelsFeedLimit = 1
	postsFeedLimit = 10
	userFeedLimit  = 10
)

// listKeys returns the JSON keys a feed response uses for kind
func listKeys(kind models.ItemKind) (list, total string) {
	if kind == models.KindReel {
		return "reels", "totalReels"
	}
	return "posts", "totalPosts"
}

func titleOf(kind models.ItemKind) string {
	if kind == models.KindReel {
		return "Reel"
	}
	return "Post"
}

// serveFeed answers offset pages by default and seek pages when ?cursor= is present
func (h *Handlers) serveFeed(c *gin.Context, q store.Query, defLimit int) {
	list, total := listKeys(q.Kind)
	limit := util.ParseInt(c.Query("limit"), 0)

	if token, ok := c.GetQuery("cursor"); ok {
		page, err := h.paginator.After(c.Request.Context(), q, token, limit, defLimit)
		if err != nil {
			util.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			list:         page.Items,
			"nextCursor": page.NextCursor,
			"hasMore":    page.HasMore,
		})
		return
	}

	pageNum := util.ParseInt(c.DefaultQuery("page", "0"), -1)
	page, err := h.paginator.Page(c.Request.Context(), q, pageNum, limit, defLimit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		list:          page.Items,
		"currentPage": page.Page,
		"hasMore":     page.HasMore,
		total:         page.Total,
	})
}

// formUpload returns the file in field, or nil when none was sent
func formUpload(c *gin.Context, field string) (*content.Upload, func(), error) {
	file, header, err := c.Request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return &content.Upload{Reader: file, Filename: header.Filename}, func() { _ = file.Close() }, nil
}

func (h *Handlers) createItem(c *gin.Context, kind models.ItemKind, field string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	upload, closeUpload, err := formUpload(c, field)
	if err != nil {
		util.RespondValidationError(c, field, "invalid upload")
		return
	}
	defer closeUpload()

	item, err := h.content.Create(c.Request.Context(), kind, userID, c.PostForm("caption"), upload)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handlers) getItem(c *gin.Context, kind models.ItemKind, id string) {
	item, err := h.content.Get(c.Request.Context(), kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.RespondNotFound(c, strings.ToLower(titleOf(kind)))
			return
		}
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handlers) deleteItem(c *gin.Context, kind models.ItemKind, id string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.content.Delete(c.Request.Context(), kind, id, userID); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": titleOf(kind) + " deleted"})
}

func (h *Handlers) listAll(c *gin.Context, kind models.ItemKind) {
	items, err := h.content.ListAll(c.Request.Context(), kind)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type likeOutcome struct {
	message    string
	isLiked    bool
	likesCount int
}

func (h *Handlers) toggleLike(c *gin.Context, kind models.ItemKind, id string) (*likeOutcome, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}

	ctx, span := telemetry.TraceInteraction(c.Request.Context(), "like", string(kind), id)
	res, err := h.mutator.ToggleLike(ctx, kind, id, userID)
	telemetry.End(span, err)
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}

	out := &likeOutcome{isLiked: res.IsLiked, likesCount: res.LikesCount, message: titleOf(kind) + " liked"}
	if !res.IsLiked {
		out.message = titleOf(kind) + " unliked"
	}
	return out, true
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handlers) appendComment(c *gin.Context, kind models.ItemKind, id string) (*models.Comment, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBindError(c, err)
		return nil, false
	}

	ctx, span := telemetry.TraceInteraction(c.Request.Context(), "comment", string(kind), id)
	comment, err := h.mutator.AppendComment(ctx, kind, id, userID, req.Text)
	telemetry.End(span, err)
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}
	return comment, true
}
