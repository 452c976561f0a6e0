package sqlstore

import (
	"context"
	"strings"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return store.ErrInvalidInput
	}
	return duplicate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) OR LOWER(username) = LOWER(?)", login, login).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(user).
		Select("username", "bio", "gender", "profile_picture").
		Updates(user)
	if res.Error != nil {
		return duplicate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *userRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	out := []models.UserSummary{}
	err := r.db.WithContext(ctx).Table("users").
		Select("id, username, profile_picture").
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, pattern).
		Order("username").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *userRepository) SuggestedUsers(ctx context.Context, userID string, limit int) ([]models.UserSummary, error) {
	db := r.db.WithContext(ctx)
	followed := db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)

	out := []models.UserSummary{}
	err := db.Table("users").
		Select("id, username, profile_picture").
		Where("id <> ? AND id NOT IN (?)", userID, followed).
		Order("created_at DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// Follow writes the single edge both views are derived from
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, store.ErrInvalidInput
	}

	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, followerID, followeeID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: now()})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		return nil
	})
	return changed, err
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, store.ErrInvalidInput
	}

	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, followerID, followeeID); err != nil {
			return err
		}
		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		return nil
	})
	return changed, err
}

func requireUsers(tx *gorm.DB, ids ...string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return store.ErrNotFound
	}
	return nil
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return r.edgeUsers(ctx, userID, "follows.follower_id = users.id", "follows.followee_id = ?")
}

func (r *userRepository) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return r.edgeUsers(ctx, userID, "follows.followee_id = users.id", "follows.follower_id = ?")
}

func (r *userRepository) edgeUsers(ctx context.Context, userID, join, where string) ([]models.UserSummary, error) {
	if _, err := r.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	out := []models.UserSummary{}
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id, users.username, users.profile_picture").
		Joins("JOIN follows ON "+join).
		Where(where, userID).
		Order("follows.created_at").
		Scan(&out).Error
	return out, err
}

func (r *userRepository) FollowCounts(ctx context.Context, userID string) (int64, int64, error) {
	if _, err := r.GetUser(ctx, userID); err != nil {
		return 0, 0, err
	}

	db := r.db.WithContext(ctx)
	var followers, following int64
	if err := db.Model(&models.Follow{}).Where("followee_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
