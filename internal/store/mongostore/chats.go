package mongostore

import (
	"context"

	"github.com/samber/lo"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type chatRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func (r *chatRepository) chats() *mongo.Collection {
	return r.db.Collection(chatsCollection)
}

func (r *chatRepository) messages() *mongo.Collection {
	return r.db.Collection(messagesCollection)
}

// FindOrCreateChat upserts on the unique pair key
func (r *chatRepository) FindOrCreateChat(ctx context.Context, a, b string) (*models.Chat, bool, error) {
	if a == "" || b == "" || a == b {
		return nil, false, store.ErrInvalidInput
	}
	low, high := models.MemberPair(a, b)

	n, err := r.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"_id": bson.M{"$in": bson.A{low, high}}})
	if err != nil {
		return nil, false, err
	}
	if n != 2 {
		return nil, false, store.ErrNotFound
	}

	ts := now()
	res, err := r.chats().UpdateOne(ctx,
		bson.M{"pair": pairKey(low, high)},
		bson.M{"$setOnInsert": bson.M{
			"_id":           models.NewID(),
			"members":       bson.A{low, high},
			"lastMessageId": nil,
			"createdAt":     ts,
			"updatedAt":     ts,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}
	created := res != nil && res.UpsertedCount > 0

	var doc chatDoc
	if err := r.chats().FindOne(ctx, bson.M{"pair": pairKey(low, high)}).Decode(&doc); err != nil {
		return nil, false, notFound(err)
	}
	chats := []*models.Chat{doc.model()}
	if err := r.hydrate(ctx, chats); err != nil {
		return nil, false, err
	}
	return chats[0], created, nil
}

func (r *chatRepository) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var doc chatDoc
	if err := r.chats().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	chats := []*models.Chat{doc.model()}
	if err := r.hydrate(ctx, chats); err != nil {
		return nil, err
	}
	return chats[0], nil
}

func (r *chatRepository) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	cursor, err := r.chats().Find(ctx,
		bson.M{"members": userID},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	chats := lo.Map(docs, func(d chatDoc, _ int) *models.Chat { return d.model() })
	if err := r.hydrate(ctx, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// AppendMessage inserts the message and moves lastMessageId in one transaction
func (r *chatRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil || msg.ChatID == "" || msg.SenderID == "" {
		return store.ErrInvalidInput
	}

	doc := &messageDoc{
		ID:        models.NewID(),
		ChatID:    msg.ChatID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		SeenBy:    []string{},
		CreatedAt: now(),
	}
	doc.UpdatedAt = doc.CreatedAt

	err := inTransaction(ctx, r.client, func(sessCtx mongo.SessionContext) error {
		res, err := r.chats().UpdateOne(sessCtx,
			bson.M{"_id": msg.ChatID},
			bson.M{"$set": bson.M{"lastMessageId": doc.ID, "updatedAt": doc.CreatedAt}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return store.ErrNotFound
		}
		_, err = r.messages().InsertOne(sessCtx, doc)
		return err
	})
	if err != nil {
		return err
	}

	*msg = *doc.model()
	summaries, err := userSummaries(ctx, r.db, []string{msg.SenderID})
	if err != nil {
		return err
	}
	msg.Sender = summaryOf(summaries, msg.SenderID)
	return nil
}

func (r *chatRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var doc messageDoc
	if err := r.messages().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	msgs := []*models.Message{doc.model()}
	if err := hydrateMessages(ctx, r.db, msgs); err != nil {
		return nil, err
	}
	return msgs[0], nil
}

func (r *chatRepository) Messages(ctx context.Context, chatID string) ([]*models.Message, error) {
	cursor, err := r.messages().Find(ctx,
		bson.M{"chatId": chatID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	msgs := lo.Map(docs, func(d messageDoc, _ int) *models.Message { return d.model() })
	if err := hydrateMessages(ctx, r.db, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) MarkSeen(ctx context.Context, chatID, userID string) (int64, error) {
	res, err := r.messages().UpdateMany(ctx,
		bson.M{"chatId": chatID, "senderId": bson.M{"$ne": userID}, "seenBy": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"seenBy": userID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *chatRepository) hydrate(ctx context.Context, chats []*models.Chat) error {
	if len(chats) == 0 {
		return nil
	}

	memberIDs := lo.FlatMap(chats, func(c *models.Chat, _ int) []string { return []string{c.MemberLow, c.MemberHigh} })
	summaries, err := userSummaries(ctx, r.db, lo.Uniq(memberIDs))
	if err != nil {
		return err
	}

	lastIDs := lo.FilterMap(chats, func(c *models.Chat, _ int) (string, bool) {
		if c.LastMessageID == nil {
			return "", false
		}
		return *c.LastMessageID, true
	})
	last := map[string]*models.Message{}
	if len(lastIDs) > 0 {
		cursor, err := r.messages().Find(ctx, bson.M{"_id": bson.M{"$in": lastIDs}})
		if err != nil {
			return err
		}
		var docs []messageDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return err
		}
		msgs := lo.Map(docs, func(d messageDoc, _ int) *models.Message { return d.model() })
		if err := hydrateMessages(ctx, r.db, msgs); err != nil {
			return err
		}
		last = lo.KeyBy(msgs, func(m *models.Message) string { return m.ID })
	}

	for _, c := range chats {
		c.Members = []models.UserSummary{*summaryOf(summaries, c.MemberLow), *summaryOf(summaries, c.MemberHigh)}
		if c.LastMessageID != nil {
			c.LastMessage = last[*c.LastMessageID]
		}
	}
	return nil
}

func hydrateMessages(ctx context.Context, db *mongo.Database, msgs []*models.Message) error {
	ids := lo.Uniq(lo.Map(msgs, func(m *models.Message, _ int) string { return m.SenderID }))
	summaries, err := userSummaries(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		m.Sender = summaryOf(summaries, m.SenderID)
	}
	return nil
}
