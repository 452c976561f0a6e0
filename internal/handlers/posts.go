package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/util"
)

func (h *Handlers) PostsFeed(c *gin.Context) {
	h.serveFeed(c, store.Query{Kind: models.KindPost}, postsFeedLimit)
}

func (h *Handlers) UserPosts(c *gin.Context) {
	h.serveFeed(c, store.Query{Kind: models.KindPost, AuthorID: c.Param("userId")}, userFeedLimit)
}

func (h *Handlers) GetPost(c *gin.Context) {
	h.getItem(c, models.KindPost, c.Param("postId"))
}

// CreatePost expects multipart with an optional image in "imageUrl"
func (h *Handlers) CreatePost(c *gin.Context) {
	h.createItem(c, models.KindPost, "imageUrl")
}

func (h *Handlers) DeletePost(c *gin.Context) {
	h.deleteItem(c, models.KindPost, c.Param("postId"))
}

// LikePost toggles the caller's like and returns the updated post
func (h *Handlers) LikePost(c *gin.Context) {
	id := c.Param("postId")
	out, ok := h.toggleLike(c, models.KindPost, id)
	if !ok {
		return
	}

	post, err := h.content.Get(c.Request.Context(), models.KindPost, id)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    out.message,
		"likesCount": out.likesCount,
		"isLiked":    out.isLiked,
		"post":       post,
	})
}

// CommentOnPost appends a comment and returns it with the updated post
func (h *Handlers) CommentOnPost(c *gin.Context) {
	id := c.Param("postId")
	comment, ok := h.appendComment(c, models.KindPost, id)
	if !ok {
		return
	}

	post, err := h.content.Get(c.Request.Context(), models.KindPost, id)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment added", "post": post, "comment": comment})
}
