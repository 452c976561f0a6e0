package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/media"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/telemetry"
	"github.com/sadwiik06/SocialFlow/internal/util"
	"github.com/sadwiik06/SocialFlow/internal/validation"
	"go.uber.org/zap"
)

const (
	searchLimit    = 20
	suggestedLimit = 5
	maxBioLength   = 150
)

// requireUser answers 404 and returns false when id does not exist
func (h *Handlers) requireUser(c *gin.Context, id string) (*models.User, bool) {
	user, err := h.store.Users().GetUser(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		util.RespondNotFound(c, "user")
		return nil, false
	}
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}
	return user, true
}

type followFunc func(ctx context.Context, followerID, followeeID string) (bool, error)

func (h *Handlers) changeFollow(c *gin.Context, action string, fn followFunc, done string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	targetID := c.Param("id")
	if targetID == userID {
		util.RespondBadRequest(c, "you can't follow yourself")
		return
	}
	if _, ok := h.requireUser(c, targetID); !ok {
		return
	}

	ctx, span := telemetry.TraceInteraction(c.Request.Context(), action, "user", targetID)
	changed, err := fn(ctx, userID, targetID)
	telemetry.End(span, err)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	if changed {
		metrics.Get().FollowsTotal.WithLabelValues(action).Inc()
		logger.Log.Info("Follow graph changed",
			logger.WithUserID(userID),
			zap.String("target_id", targetID),
			zap.String("action", action),
		)
	}
	c.JSON(http.StatusOK, gin.H{"message": done, "changed": changed})
}

// Follow is a no-op when the edge already exists
func (h *Handlers) Follow(c *gin.Context) {
	h.changeFollow(c, "follow", h.store.Users().Follow, "User followed")
}

func (h *Handlers) Unfollow(c *gin.Context) {
	h.changeFollow(c, "unfollow", h.store.Users().Unfollow, "User unfollowed")
}

func (h *Handlers) Followers(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.requireUser(c, id); !ok {
		return
	}
	users, err := h.store.Users().Followers(c.Request.Context(), id)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": users})
}

func (h *Handlers) Following(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.requireUser(c, id); !ok {
		return
	}
	users, err := h.store.Users().Following(c.Request.Context(), id)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": users})
}

func (h *Handlers) followCount(c *gin.Context, followers bool) {
	id := c.Param("id")
	if _, ok := h.requireUser(c, id); !ok {
		return
	}
	in, out, err := h.store.Users().FollowCounts(c.Request.Context(), id)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	count := out
	if followers {
		count = in
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handlers) FollowersCount(c *gin.Context) {
	h.followCount(c, true)
}

func (h *Handlers) FollowingCount(c *gin.Context) {
	h.followCount(c, false)
}

// UpdateProfile accepts multipart username, bio and an optional profilePicture file
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	user, ok := h.requireUser(c, userID)
	if !ok {
		return
	}

	if username, set := c.GetPostForm("username"); set {
		username = strings.TrimSpace(username)
		if !validation.ValidUsername(username) {
			util.RespondValidationError(c, "username", "username must be 3-30 letters, numbers or underscores")
			return
		}
		user.Username = username
	}
	if bio, set := c.GetPostForm("bio"); set {
		if utf8.RuneCountInString(bio) > maxBioLength {
			util.RespondValidationError(c, "bio", "bio must be at most 150 characters")
			return
		}
		user.Bio = bio
	}

	upload, closeUpload, err := formUpload(c, "profilePicture")
	if err != nil {
		util.RespondValidationError(c, "profilePicture", "invalid upload")
		return
	}
	defer closeUpload()
	if upload != nil {
		res, err := h.uploader.Upload(c.Request.Context(), upload.Reader, upload.Filename, media.FolderProfiles, userID)
		if err != nil {
			util.RespondError(c, err)
			return
		}
		user.ProfilePicture = res.URL
	}

	if err := h.store.Users().UpdateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			util.RespondValidationError(c, "username", "username already taken")
			return
		}
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// SearchUsers matches ?q= against usernames, case-insensitively
func (h *Handlers) SearchUsers(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, []models.UserSummary{})
		return
	}
	users, err := h.store.Users().SearchUsers(c.Request.Context(), q, searchLimit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// SuggestedUsers lists people the caller does not follow yet
func (h *Handlers) SuggestedUsers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	users, err := h.store.Users().SuggestedUsers(c.Request.Context(), userID, suggestedLimit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handlers) Profile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if user, ok := h.requireUser(c, userID); ok {
		c.JSON(http.StatusOK, user)
	}
}

// GetUser returns a user with follow and content counts
func (h *Handlers) GetUser(c *gin.Context) {
	user, ok := h.requireUser(c, c.Param("id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	profile := &models.Profile{User: user}
	var err error
	if profile.FollowersCount, profile.FollowingCount, err = h.store.Users().FollowCounts(ctx, user.ID); err != nil {
		util.RespondError(c, err)
		return
	}
	if profile.PostsCount, err = h.store.Items().CountItems(ctx, store.Query{Kind: models.KindPost, AuthorID: user.ID}); err != nil {
		util.RespondError(c, err)
		return
	}
	if profile.ReelsCount, err = h.store.Items().CountItems(ctx, store.Query{Kind: models.KindReel, AuthorID: user.ID}); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
