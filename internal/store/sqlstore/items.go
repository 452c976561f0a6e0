package sqlstore

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const feedOrder = "created_at DESC, id DESC"

type itemRepository struct {
	db *gorm.DB
}

func scoped(db *gorm.DB, q store.Query) *gorm.DB {
	db = db.Where("kind = ?", q.Kind)
	if q.AuthorID != "" {
		db = db.Where("posted_by = ?", q.AuthorID)
	}
	return db
}

// forUpdate row-locks where the dialect supports it; sqlite serializes writers anyway
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *itemRepository) CreateItem(ctx context.Context, item *models.Item) error {
	if item == nil || !item.Kind.Valid() || item.PostedBy == "" {
		return store.ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) GetItem(ctx context.Context, kind models.ItemKind, id string) (*models.Item, error) {
	db := r.db.WithContext(ctx)

	var item models.Item
	if err := db.Where("id = ? AND kind = ?", id, kind).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	if err := hydrateItems(db, []*models.Item{&item}); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) DeleteItem(ctx context.Context, kind models.ItemKind, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND kind = ?", id, kind).Delete(&models.Item{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Where("item_kind = ? AND item_id = ?", kind, id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("item_kind = ? AND item_id = ?", kind, id).Delete(&models.Comment{}).Error
	})
}

func (r *itemRepository) CountItems(ctx context.Context, q store.Query) (int64, error) {
	var total int64
	err := scoped(r.db.WithContext(ctx).Model(&models.Item{}), q).Count(&total).Error
	return total, err
}

func (r *itemRepository) ListItems(ctx context.Context, q store.Query, offset, limit int) ([]*models.Item, error) {
	db := r.db.WithContext(ctx)

	var items []*models.Item
	err := scoped(db, q).Order(feedOrder).Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	if err := hydrateItems(db, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) ListItemsAfter(ctx context.Context, q store.Query, after *store.Cursor, limit int) ([]*models.Item, error) {
	db := r.db.WithContext(ctx)

	query := scoped(db, q)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var items []*models.Item
	if err := query.Order(feedOrder).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	if err := hydrateItems(db, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) ItemIDs(ctx context.Context, q store.Query, offset, limit int) ([]string, error) {
	query := scoped(r.db.WithContext(ctx).Model(&models.Item{}), q).Order(feedOrder)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit >= 0 {
		query = query.Limit(limit)
	}

	var ids []string
	err := query.Pluck("id", &ids).Error
	return ids, err
}

// ItemRank counts the rows that sort ahead of id, which the feed index answers
// without materializing the ordering.
func (r *itemRepository) ItemRank(ctx context.Context, q store.Query, id string) (int64, error) {
	db := r.db.WithContext(ctx)

	var target models.Item
	if err := scoped(db, q).Where("id = ?", id).First(&target).Error; err != nil {
		return 0, notFound(err)
	}

	var rank int64
	err := scoped(db.Model(&models.Item{}), q).
		Where("(created_at > ? OR (created_at = ? AND id > ?))", target.CreatedAt, target.CreatedAt, target.ID).
		Count(&rank).Error
	return rank, err
}

func (r *itemRepository) ToggleLike(ctx context.Context, kind models.ItemKind, itemID, userID string) (*store.LikeState, error) {
	state := &store.LikeState{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := forUpdate(tx).Where("id = ? AND kind = ?", itemID, kind).First(&item).Error; err != nil {
			return notFound(err)
		}

		res := tx.Where("item_kind = ? AND item_id = ? AND user_id = ?", kind, itemID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.Like{ItemKind: kind, ItemID: itemID, UserID: userID, CreatedAt: now()}
			if err := tx.Create(&like).Error; err != nil {
				return fmt.Errorf("failed to add like: %w", err)
			}
			state.Liked = true
		}

		if err := tx.Model(&models.Like{}).
			Where("item_kind = ? AND item_id = ?", kind, itemID).
			Order("created_at, user_id").
			Pluck("user_id", &state.Likes).Error; err != nil {
			return err
		}
		state.Count = len(state.Likes)

		return tx.Model(&item).UpdateColumn("like_count", state.Count).Error
	})
	if err != nil {
		return nil, err
	}
	if state.Likes == nil {
		state.Likes = []string{}
	}
	return state, nil
}

func (r *itemRepository) AppendComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || !comment.ItemKind.Valid() || comment.UserID == "" {
		return store.ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := forUpdate(tx).Where("id = ? AND kind = ?", comment.ItemID, comment.ItemKind).First(&item).Error; err != nil {
			return notFound(err)
		}

		var last int
		if err := tx.Model(&models.Comment{}).
			Where("item_kind = ? AND item_id = ?", comment.ItemKind, comment.ItemID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		comment.ID = ""
		comment.Position = last + 1
		comment.CreatedAt = now()
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to append comment: %w", err)
		}

		return tx.Model(&item).UpdateColumn("comment_count", comment.Position).Error
	})
	if err != nil {
		return err
	}

	summaries, err := userSummaries(r.db.WithContext(ctx), []string{comment.UserID})
	if err != nil {
		return err
	}
	comment.User = summaryOf(summaries, comment.UserID)
	return nil
}

// hydrateItems fills Author, Likes and Comments for a page of items in three queries
func hydrateItems(db *gorm.DB, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := lo.Map(items, func(it *models.Item, _ int) string { return it.ID })

	var likes []models.Like
	if err := db.Where("item_id IN ?", ids).Order("created_at, user_id").Find(&likes).Error; err != nil {
		return err
	}
	var comments []*models.Comment
	if err := db.Where("item_id IN ?", ids).Order("position").Find(&comments).Error; err != nil {
		return err
	}

	userIDs := lo.Map(items, func(it *models.Item, _ int) string { return it.PostedBy })
	userIDs = append(userIDs, lo.Map(comments, func(c *models.Comment, _ int) string { return c.UserID })...)
	summaries, err := userSummaries(db, lo.Uniq(userIDs))
	if err != nil {
		return err
	}

	likesByItem := lo.GroupBy(likes, func(l models.Like) string { return l.ItemID })
	commentsByItem := lo.GroupBy(comments, func(c *models.Comment) string { return c.ItemID })

	for _, it := range items {
		it.Author = summaryOf(summaries, it.PostedBy)
		it.Likes = lo.FilterMap(likesByItem[it.ID], func(l models.Like, _ int) (string, bool) {
			return l.UserID, l.ItemKind == it.Kind
		})
		it.Comments = lo.Filter(commentsByItem[it.ID], func(c *models.Comment, _ int) bool {
			return c.ItemKind == it.Kind
		})
		for _, c := range it.Comments {
			c.User = summaryOf(summaries, c.UserID)
		}
	}
	return nil
}

func userSummaries(db *gorm.DB, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.UserSummary
	if err := db.Table("users").Select("id, username, profile_picture").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// summaryOf falls back to a bare id when the user row is gone
func summaryOf(summaries map[string]models.UserSummary, id string) *models.UserSummary {
	if s, ok := summaries[id]; ok {
		return &s
	}
	return &models.UserSummary{ID: id}
}
