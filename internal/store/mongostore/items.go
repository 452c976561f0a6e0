package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxRetries bounds the optimistic loops for likes and comments
const maxRetries = 8

var (
	feedSort      = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	errContention = errors.New("too much contention on item")
)

type idRow struct {
	ID string `bson:"_id"`
}

type itemRepository struct {
	db *mongo.Database
}

func (r *itemRepository) coll() *mongo.Collection {
	return r.db.Collection(itemsCollection)
}

func filterFor(q store.Query) bson.M {
	filter := bson.M{"kind": q.Kind}
	if q.AuthorID != "" {
		filter["postedBy"] = q.AuthorID
	}
	return filter
}

func (r *itemRepository) CreateItem(ctx context.Context, item *models.Item) error {
	if item == nil || !item.Kind.Valid() || item.PostedBy == "" {
		return store.ErrInvalidInput
	}
	if item.ID == "" {
		item.ID = models.NewID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now()
	}
	item.CreatedAt = item.CreatedAt.UTC().Truncate(time.Millisecond)
	item.UpdatedAt = item.CreatedAt

	doc := &itemDoc{
		ID:        item.ID,
		Kind:      item.Kind,
		Caption:   item.Caption,
		MediaURL:  item.MediaURL,
		PostedBy:  item.PostedBy,
		Likes:     []likeDoc{},
		Comments:  []commentDoc{},
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	_, err := r.coll().InsertOne(ctx, doc)
	return duplicate(err)
}

func (r *itemRepository) GetItem(ctx context.Context, kind models.ItemKind, id string) (*models.Item, error) {
	var doc itemDoc
	if err := r.coll().FindOne(ctx, bson.M{"_id": id, "kind": kind}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	items := []*models.Item{doc.model()}
	if err := hydrateItems(ctx, r.db, items); err != nil {
		return nil, err
	}
	return items[0], nil
}

// DeleteItem is a single-document delete since likes and comments are embedded
func (r *itemRepository) DeleteItem(ctx context.Context, kind models.ItemKind, id string) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id, "kind": kind})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *itemRepository) CountItems(ctx context.Context, q store.Query) (int64, error) {
	return r.coll().CountDocuments(ctx, filterFor(q))
}

func (r *itemRepository) ListItems(ctx context.Context, q store.Query, offset, limit int) ([]*models.Item, error) {
	opts := options.Find().SetSort(feedSort).SetSkip(int64(offset))
	// a negative mongo limit means "one batch", not "unbounded"
	if limit >= 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filterFor(q), opts)
}

func (r *itemRepository) ListItemsAfter(ctx context.Context, q store.Query, after *store.Cursor, limit int) ([]*models.Item, error) {
	filter := filterFor(q)
	if after != nil {
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": after.CreatedAt}},
			bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$lt": after.ID}},
		}
	}
	return r.find(ctx, filter, options.Find().SetSort(feedSort).SetLimit(int64(limit)))
}

func (r *itemRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Item, error) {
	cursor, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []itemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	items := lo.Map(docs, func(d itemDoc, _ int) *models.Item { return d.model() })
	if err := hydrateItems(ctx, r.db, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) ItemIDs(ctx context.Context, q store.Query, offset, limit int) ([]string, error) {
	opts := options.Find().
		SetSort(feedSort).
		SetProjection(bson.M{"_id": 1})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit >= 0 {
		if limit == 0 {
			return []string{}, nil
		}
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll().Find(ctx, filterFor(q), opts)
	if err != nil {
		return nil, err
	}
	var rows []idRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row idRow, _ int) string { return row.ID }), nil
}

func (r *itemRepository) ItemRank(ctx context.Context, q store.Query, id string) (int64, error) {
	filter := filterFor(q)
	filter["_id"] = id

	var target itemDoc
	err := r.coll().FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"createdAt": 1})).Decode(&target)
	if err != nil {
		return 0, notFound(err)
	}

	ahead := filterFor(q)
	ahead["$or"] = bson.A{
		bson.M{"createdAt": bson.M{"$gt": target.CreatedAt}},
		bson.M{"createdAt": target.CreatedAt, "_id": bson.M{"$gt": target.ID}},
	}
	return r.coll().CountDocuments(ctx, ahead)
}

// ToggleLike flips membership with a conditional single-document update: add
// when absent, otherwise remove. A concurrent toggle by the same user makes the
// first condition miss, so the loop retries against the new state.
func (r *itemRepository) ToggleLike(ctx context.Context, kind models.ItemKind, itemID, userID string) (*store.LikeState, error) {
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < maxRetries; attempt++ {
		var doc itemDoc
		err := r.coll().FindOneAndUpdate(ctx,
			bson.M{"_id": itemID, "kind": kind, "likes.userId": bson.M{"$ne": userID}},
			bson.M{
				"$push": bson.M{"likes": likeDoc{UserID: userID, CreatedAt: now()}},
				"$inc":  bson.M{"likeCount": 1},
			},
			after,
		).Decode(&doc)
		if err == nil {
			return likeState(&doc, true), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		err = r.coll().FindOneAndUpdate(ctx,
			bson.M{"_id": itemID, "kind": kind, "likes.userId": userID},
			bson.M{
				"$pull": bson.M{"likes": bson.M{"userId": userID}},
				"$inc":  bson.M{"likeCount": -1},
			},
			after,
		).Decode(&doc)
		if err == nil {
			return likeState(&doc, false), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		n, err := r.coll().CountDocuments(ctx, bson.M{"_id": itemID, "kind": kind})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, store.ErrNotFound
		}
	}
	return nil, errContention
}

func likeState(doc *itemDoc, liked bool) *store.LikeState {
	likes := lo.Map(doc.Likes, func(l likeDoc, _ int) string { return l.UserID })
	return &store.LikeState{Liked: liked, Count: len(likes), Likes: likes}
}

// AppendComment pushes with a compare-and-set on commentCount so positions
// stay dense under concurrent writers.
func (r *itemRepository) AppendComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || !comment.ItemKind.Valid() || comment.UserID == "" {
		return store.ErrInvalidInput
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		var current itemDoc
		err := r.coll().FindOne(ctx,
			bson.M{"_id": comment.ItemID, "kind": comment.ItemKind},
			options.FindOne().SetProjection(bson.M{"commentCount": 1}),
		).Decode(&current)
		if err != nil {
			return notFound(err)
		}

		doc := commentDoc{
			ID:        models.NewID(),
			Position:  current.CommentCount + 1,
			UserID:    comment.UserID,
			Text:      comment.Text,
			CreatedAt: now(),
		}
		res, err := r.coll().UpdateOne(ctx,
			bson.M{"_id": comment.ItemID, "kind": comment.ItemKind, "commentCount": current.CommentCount},
			bson.M{
				"$push": bson.M{"comments": doc},
				"$set":  bson.M{"commentCount": doc.Position},
			},
		)
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			continue
		}

		*comment = *doc.model(comment.ItemKind, comment.ItemID)
		summaries, err := userSummaries(ctx, r.db, []string{comment.UserID})
		if err != nil {
			return err
		}
		comment.User = summaryOf(summaries, comment.UserID)
		return nil
	}
	return errContention
}

func hydrateItems(ctx context.Context, db *mongo.Database, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := lo.Map(items, func(it *models.Item, _ int) string { return it.PostedBy })
	for _, it := range items {
		ids = append(ids, lo.Map(it.Comments, func(c *models.Comment, _ int) string { return c.UserID })...)
	}
	summaries, err := userSummaries(ctx, db, lo.Uniq(ids))
	if err != nil {
		return err
	}

	for _, it := range items {
		it.Author = summaryOf(summaries, it.PostedBy)
		for _, c := range it.Comments {
			c.User = summaryOf(summaries, c.UserID)
		}
	}
	return nil
}

func userSummaries(ctx context.Context, db *mongo.Database, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := db.Collection(usersCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1, "profilePicture": 1}),
	)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.summary()
	}
	return out, nil
}

func summaryOf(summaries map[string]models.UserSummary, id string) *models.UserSummary {
	if s, ok := summaries[id]; ok {
		return &s
	}
	return &models.UserSummary{ID: id}
}
