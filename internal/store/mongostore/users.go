package mongostore

import (
	"context"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func (r *userRepository) coll() *mongo.Collection {
	return r.db.Collection(usersCollection)
}

var summaryProjection = bson.M{"username": 1, "profilePicture": 1}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = models.NewID()
	}
	if user.ProfilePicture == "" {
		user.ProfilePicture = models.DefaultProfilePicture
	}
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.coll().InsertOne(ctx, newUserDoc(user))
	return duplicate(err)
}

func (r *userRepository) getDoc(ctx context.Context, id string) (*userDoc, error) {
	var doc userDoc
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.getDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (r *userRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	lower := strings.ToLower(login)
	var doc userDoc
	err := r.coll().FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"emailLower": lower},
		bson.M{"usernameLower": lower},
	}}).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.model(), nil
}

func (r *userRepository) UserExists(ctx context.Context, username, email string) (bool, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"usernameLower": strings.ToLower(username)},
		bson.M{"emailLower": strings.ToLower(email)},
	}})
	return n > 0, err
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = now()
	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"username":       user.Username,
		"usernameLower":  strings.ToLower(user.Username),
		"bio":            user.Bio,
		"gender":         user.Gender,
		"profilePicture": user.ProfilePicture,
		"updatedAt":      user.UpdatedAt,
	}})
	if err != nil {
		return duplicate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *userRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	filter := bson.M{"usernameLower": bson.M{"$regex": regexp.QuoteMeta(strings.ToLower(query))}}
	opts := options.Find().SetProjection(summaryProjection).SetSort(bson.M{"username": 1}).SetLimit(int64(limit))
	return r.summaries(ctx, filter, opts)
}

func (r *userRepository) SuggestedUsers(ctx context.Context, userID string, limit int) ([]models.UserSummary, error) {
	exclude := []string{userID}
	if doc, err := r.getDoc(ctx, userID); err == nil {
		exclude = append(exclude, doc.Following...)
	}

	filter := bson.M{"_id": bson.M{"$nin": exclude}}
	opts := options.Find().SetProjection(summaryProjection).SetSort(bson.M{"createdAt": -1}).SetLimit(int64(limit))
	return r.summaries(ctx, filter, opts)
}

func (r *userRepository) summaries(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.UserSummary, error) {
	cursor, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d userDoc, _ int) models.UserSummary { return d.summary() }), nil
}

// Follow updates both sides of the edge in one transaction. The follower's
// update is conditional, so a repeat changes nothing on either document.
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, store.ErrInvalidInput
	}

	changed := false
	err := inTransaction(ctx, r.client, func(sessCtx mongo.SessionContext) error {
		changed = false
		if err := r.requireUsers(sessCtx, followerID, followeeID); err != nil {
			return err
		}
		res, err := r.coll().UpdateOne(sessCtx,
			bson.M{"_id": followerID, "following": bson.M{"$ne": followeeID}},
			bson.M{"$push": bson.M{"following": followeeID}},
		)
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			return nil
		}
		changed = true
		_, err = r.coll().UpdateOne(sessCtx,
			bson.M{"_id": followeeID},
			bson.M{"$addToSet": bson.M{"followers": followerID}},
		)
		return err
	})
	return changed, err
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, store.ErrInvalidInput
	}

	changed := false
	err := inTransaction(ctx, r.client, func(sessCtx mongo.SessionContext) error {
		changed = false
		if err := r.requireUsers(sessCtx, followerID, followeeID); err != nil {
			return err
		}
		res, err := r.coll().UpdateOne(sessCtx,
			bson.M{"_id": followerID, "following": followeeID},
			bson.M{"$pull": bson.M{"following": followeeID}},
		)
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			return nil
		}
		changed = true
		_, err = r.coll().UpdateOne(sessCtx,
			bson.M{"_id": followeeID},
			bson.M{"$pull": bson.M{"followers": followerID}},
		)
		return err
	})
	return changed, err
}

func (r *userRepository) requireUsers(ctx context.Context, ids ...string) error {
	n, err := r.coll().CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return store.ErrNotFound
	}
	return nil
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{"_id": followerID, "following": followeeID})
	return n > 0, err
}

func (r *userRepository) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	doc, err := r.getDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.ordered(ctx, doc.Followers)
}

func (r *userRepository) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	doc, err := r.getDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.ordered(ctx, doc.Following)
}

// ordered resolves ids to summaries keeping the array order
func (r *userRepository) ordered(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	found, err := userSummaries(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(ids, func(id string, _ int) (models.UserSummary, bool) {
		s, ok := found[id]
		return s, ok
	}), nil
}

func (r *userRepository) FollowCounts(ctx context.Context, userID string) (int64, int64, error) {
	doc, err := r.getDoc(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return int64(len(doc.Followers)), int64(len(doc.Following)), nil
}
