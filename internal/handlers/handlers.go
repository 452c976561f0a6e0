package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/content"
	"github.com/sadwiik06/SocialFlow/internal/feed"
	"github.com/sadwiik06/SocialFlow/internal/interaction"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/media"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/validation"
	"go.uber.org/zap"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	store     store.Store
	auth      *auth.Service
	content   *content.Service
	mutator   *interaction.Mutator
	resolver  *feed.Resolver
	paginator *feed.Paginator
	uploader  media.Uploader
	socket    *realtime.Handler
}

// Deps is everything the handlers are built from
type Deps struct {
	Store     store.Store
	Auth      *auth.Service
	Content   *content.Service
	Mutator   *interaction.Mutator
	Resolver  *feed.Resolver
	Paginator *feed.Paginator
	Uploader  media.Uploader
	Socket    *realtime.Handler
}

// NewHandlers creates a new handlers instance
func NewHandlers(d Deps) *Handlers {
	if err := validation.Setup(); err != nil {
		logger.Log.Warn("Custom binding tags unavailable", zap.Error(err))
	}
	return &Handlers{
		store:     d.Store,
		auth:      d.Auth,
		content:   d.Content,
		mutator:   d.Mutator,
		resolver:  d.Resolver,
		paginator: d.Paginator,
		uploader:  d.Uploader,
		socket:    d.Socket,
	}
}

// RouteOptions holds the per-group middleware the server and tests pick
type RouteOptions struct {
	// Auth guards every route that needs a user
	Auth gin.HandlerFunc
	// AuthLimit and UploadLimit are optional rate limiters
	AuthLimit   gin.HandlerFunc
	UploadLimit gin.HandlerFunc
}

func chain(fns ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(fns))
	for _, fn := range fns {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

// Routes mounts the API on api (normally the /api group)
func (h *Handlers) Routes(api *gin.RouterGroup, opts RouteOptions) {
	authed := opts.Auth

	api.GET("/health", h.Health)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", append(chain(opts.AuthLimit), h.Register)...)
		authGroup.POST("/login", append(chain(opts.AuthLimit), h.Login)...)
		authGroup.GET("/me", authed, h.Me)
	}

	reels := api.Group("/reels")
	{
		reels.GET("/:id", h.GetReel)
		reels.Use(authed)
		reels.POST("/", append(chain(opts.UploadLimit), h.CreateReel)...)
		reels.DELETE("/:id", h.DeleteReel)
		reels.GET("/feed", h.ReelsFeed)
		reels.GET("/context", h.ReelContext)
		reels.GET("/contextById/:id", h.ReelContextByID)
		reels.GET("/preload/:id", h.PreloadReel)
		reels.PUT("/like/:id", h.LikeReel)
		reels.POST("/comment/:id", h.CommentOnReel)
		reels.GET("/user/:userId", h.UserReels)
		reels.GET("/all", h.AllReels)
		reels.GET("/", h.AllReels)
	}

	posts := api.Group("/posts")
	posts.Use(authed)
	{
		posts.POST("/", append(chain(opts.UploadLimit), h.CreatePost)...)
		posts.GET("/", h.PostsFeed)
		posts.GET("/user/:userId", h.UserPosts)
		posts.PUT("/like/:postId", h.LikePost)
		posts.POST("/comment/:postId", h.CommentOnPost)
		posts.DELETE("/:postId", h.DeletePost)
		posts.GET("/:postId", h.GetPost)
	}

	users := api.Group("/users")
	{
		users.GET("/followers/:id", h.Followers)
		users.GET("/following/:id", h.Following)
		users.GET("/followers-count/:id", h.FollowersCount)
		users.GET("/following-count/:id", h.FollowingCount)
		users.Use(authed)
		users.POST("/follow/:id", h.Follow)
		users.POST("/unfollow/:id", h.Unfollow)
		users.PUT("/update", append(chain(opts.UploadLimit), h.UpdateProfile)...)
		users.GET("/search", h.SearchUsers)
		users.GET("/suggested", h.SuggestedUsers)
		users.GET("/profile", h.Profile)
		users.GET("/:id", h.GetUser)
	}

	chat := api.Group("/chat")
	chat.Use(authed)
	{
		chat.POST("/", h.CreateChat)
		chat.GET("/", h.ListChats)
	}

	messages := api.Group("/message")
	messages.Use(authed)
	{
		messages.POST("", h.SendMessage)
		messages.GET("/:chatId", h.ChatMessages)
		messages.PUT("/:chatId/seen", h.MarkSeen)
	}

	if h.socket != nil {
		api.GET("/ws", h.socket.HandleWebSocket)
		api.GET("/ws/metrics", h.socket.HandleMetrics)
	}
}
