// Package testserver runs the full HTTP and realtime stack over an in-memory
// store for client tests.
package testserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/cache"
	"github.com/sadwiik06/SocialFlow/internal/content"
	"github.com/sadwiik06/SocialFlow/internal/feed"
	"github.com/sadwiik06/SocialFlow/internal/handlers"
	"github.com/sadwiik06/SocialFlow/internal/interaction"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/media"
	"github.com/sadwiik06/SocialFlow/internal/middleware"
	"github.com/sadwiik06/SocialFlow/internal/realtime"
	"github.com/sadwiik06/SocialFlow/internal/store/sqlstore"
	"github.com/sadwiik06/SocialFlow/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// Server is a running API
type Server struct {
	*httptest.Server
	Store *sqlstore.Store
	Hub   *realtime.Hub
	Auth  *auth.Service
}

// New starts a server that is shut down when t ends
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_ = logger.Initialize("error", "")

	store := storetest.New(t)
	uploader, err := media.NewLocalUploader(t.TempDir())
	require.NoError(t, err)
	previews, err := cache.New(time.Minute)
	require.NoError(t, err)
	t.Cleanup(previews.Close)

	hub := realtime.NewHub()
	hub.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})

	items := store.Items()
	authService := auth.NewService(store.Users(), []byte("test-secret"), time.Hour)
	h := handlers.NewHandlers(handlers.Deps{
		Store:     store,
		Auth:      authService,
		Content:   content.NewService(items, uploader, hub, previews),
		Mutator:   interaction.NewMutator(items, hub),
		Resolver:  feed.NewResolver(items, feed.StrategyIndexed),
		Paginator: feed.NewPaginator(items, 50),
		Uploader:  uploader,
		Socket:    realtime.NewHandler(hub, authService, store.Chats()),
	})

	router := gin.New()
	h.Routes(router.Group("/api"), handlers.RouteOptions{Auth: middleware.AuthMiddleware(authService)})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &Server{Server: srv, Store: store, Hub: hub, Auth: authService}
}

// APIURL is the base URL REST clients use
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// WSURL is the realtime endpoint
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/api/ws"
}
