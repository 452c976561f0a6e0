// Package sqlstore implements the store contracts on gorm (postgres in
// production, sqlite for development and tests).
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the gorm-backed store.Store
type Store struct {
	db    *gorm.DB
	items *itemRepository
	users *userRepository
	chats *chatRepository
}

var _ store.Store = (*Store)(nil)

// Options tune the connection
type Options struct {
	Debug bool
}

// Open connects through the given dialector and configures the pool
func Open(dialector gorm.Dialector, opts Options) (*Store, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Silent)
	if opts.Debug {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// One connection keeps :memory: databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return New(db), nil
}

// New wraps an existing gorm handle
func New(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		items: &itemRepository{db: db},
		users: &userRepository{db: db},
		chats: &chatRepository{db: db},
	}
}

func (s *Store) Items() store.ItemRepository { return s.items }
func (s *Store) Users() store.UserRepository { return s.users }
func (s *Store) Chats() store.ChatRepository { return s.chats }

// DB exposes the gorm handle for tests and tooling
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Item{},
		&models.Like{},
		&models.Comment{},
		&models.Chat{},
		&models.Message{},
		&models.MessageSeen{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := s.createIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed", zap.String("dialect", s.db.Dialector.Name()))
	return nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_items_feed_order ON items (kind, created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_likes_item ON likes (item_kind, item_id, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicate
	}
	return err
}

// now matches the gorm NowFunc so explicit timestamps sort with generated ones
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
