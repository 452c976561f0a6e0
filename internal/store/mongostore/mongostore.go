// Package mongostore implements the store contracts on MongoDB. Likes and
// comments are embedded in the item document; follow edges are kept on both
// user documents and written in one transaction.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	usersCollection    = "users"
	itemsCollection    = "items"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// Store is the MongoDB-backed store.Store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	items  *itemRepository
	users  *userRepository
	chats  *chatRepository
}

var _ store.Store = (*Store)(nil)

// Open connects to uri and selects the named database. Transactions need a
// replica set or a sharded cluster.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{client: client, db: db}
	s.items = &itemRepository{db: db}
	s.users = &userRepository{client: client, db: db}
	s.chats = &chatRepository{client: client, db: db}
	return s, nil
}

func (s *Store) Items() store.ItemRepository { return s.items }
func (s *Store) Users() store.UserRepository { return s.users }
func (s *Store) Chats() store.ChatRepository { return s.chats }

// Database exposes the handle for tests and tooling
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates the indexes the queries rely on
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "usernameLower", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "emailLower", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		itemsCollection: {
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "postedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		chatsCollection: {
			{Keys: bson.D{{Key: "pair", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}

	logger.Log.Info("Mongo indexes ensured", zap.String("database", s.db.Name()))
	return nil
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func inTransaction(ctx context.Context, client *mongo.Client, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

// now is truncated to the precision BSON dates keep
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
