package mongostore

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repair recomputes the denormalized counters and chat pointers, and rebuilds
// every followers array from the following arrays, which are the source of
// truth for the graph.
func (s *Store) Repair(ctx context.Context) (*store.RepairReport, error) {
	report := &store.RepairReport{}

	var err error
	if report.ItemCounts, err = s.repairItemCounts(ctx); err != nil {
		return nil, err
	}
	if report.LastMessages, err = s.repairLastMessages(ctx); err != nil {
		return nil, err
	}
	if report.FollowEdges, err = s.repairFollowers(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Store) repairItemCounts(ctx context.Context) (int64, error) {
	items := s.db.Collection(itemsCollection)
	cursor, err := items.Find(ctx, bson.M{"$expr": bson.M{"$or": bson.A{
		bson.M{"$ne": bson.A{"$likeCount", bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}}}},
		bson.M{"$ne": bson.A{"$commentCount", bson.M{"$size": bson.M{"$ifNull": bson.A{"$comments", bson.A{}}}}}},
	}}})
	if err != nil {
		return 0, err
	}
	var docs []itemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, err
	}

	var fixed int64
	for _, d := range docs {
		res, err := items.UpdateOne(ctx, bson.M{"_id": d.ID}, bson.M{"$set": bson.M{
			"likeCount":    len(d.Likes),
			"commentCount": len(d.Comments),
		}})
		if err != nil {
			return fixed, err
		}
		fixed += res.ModifiedCount
	}
	return fixed, nil
}

func (s *Store) repairLastMessages(ctx context.Context) (int64, error) {
	chats := s.db.Collection(chatsCollection)
	cursor, err := chats.Find(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, err
	}

	latest := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	var fixed int64
	for _, c := range docs {
		var want *string
		var msg messageDoc
		err := s.db.Collection(messagesCollection).FindOne(ctx, bson.M{"chatId": c.ID}, latest).Decode(&msg)
		if err == nil {
			want = &msg.ID
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return fixed, err
		}

		if lo.FromPtr(want) == lo.FromPtr(c.LastMessageID) {
			continue
		}
		if _, err := chats.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{"lastMessageId": want}}); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

func (s *Store) repairFollowers(ctx context.Context) (int64, error) {
	users := s.db.Collection(usersCollection)
	cursor, err := users.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"following": 1, "followers": 1}))
	if err != nil {
		return 0, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, err
	}

	want := make(map[string][]string, len(docs))
	for _, u := range docs {
		for _, followee := range u.Following {
			want[followee] = append(want[followee], u.ID)
		}
	}

	var fixed int64
	for _, u := range docs {
		expected := lo.Uniq(want[u.ID])
		have := lo.Uniq(u.Followers)
		slices.Sort(expected)
		slices.Sort(have)
		if slices.Equal(expected, have) {
			continue
		}
		if _, err := users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{"followers": expected}}); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
