// Package database opens the configured store and runs its migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/config"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/store/mongostore"
	"github.com/sadwiik06/SocialFlow/internal/store/sqlstore"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

// DefaultSQLitePath is used when DB_DRIVER=sqlite and DATABASE_URL is empty
const DefaultSQLitePath = "socialflow.db"

// Open connects to the backend named by cfg.Driver and migrates it
func Open(ctx context.Context, cfg config.DatabaseConfig, debug bool) (store.Store, error) {
	s, err := connect(ctx, cfg, debug)
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))
	return s, nil
}

func connect(ctx context.Context, cfg config.DatabaseConfig, debug bool) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return sqlstore.Open(postgres.Open(cfg.PostgresDSN()), sqlstore.Options{Debug: debug})
	case "sqlite":
		path := cfg.URL
		if path == "" {
			path = DefaultSQLitePath
		}
		return sqlstore.Open(sqlite.Open(path), sqlstore.Options{Debug: debug})
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := mongostore.Open(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(connectCtx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to reach mongo: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Health is the payload of the database section of /health
type Health struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// Check pings the store with a short timeout
func Check(ctx context.Context, s store.Store) Health {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.Ping(ctx)
	h := Health{Status: "ok", Latency: time.Since(start).String()}
	if err != nil {
		h.Status = "unavailable"
		h.Error = err.Error()
	}
	return h
}
