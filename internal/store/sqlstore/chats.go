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

type chatRepository struct {
	db *gorm.DB
}

// FindOrCreateChat relies on the unique pair index, so concurrent first
// contacts converge on one row.
func (r *chatRepository) FindOrCreateChat(ctx context.Context, a, b string) (*models.Chat, bool, error) {
	if a == "" || b == "" || a == b {
		return nil, false, store.ErrInvalidInput
	}
	low, high := models.MemberPair(a, b)

	var chat models.Chat
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, low, high); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Chat{MemberLow: low, MemberHigh: high})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return tx.Where("member_low = ? AND member_high = ?", low, high).First(&chat).Error
	})
	if err != nil {
		return nil, false, notFound(err)
	}

	if err := hydrateChats(r.db.WithContext(ctx), []*models.Chat{&chat}); err != nil {
		return nil, false, err
	}
	return &chat, created, nil
}

func (r *chatRepository) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	db := r.db.WithContext(ctx)

	var chat models.Chat
	if err := db.Where("id = ?", id).First(&chat).Error; err != nil {
		return nil, notFound(err)
	}
	if err := hydrateChats(db, []*models.Chat{&chat}); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	db := r.db.WithContext(ctx)

	chats := []*models.Chat{}
	err := db.Where("member_low = ? OR member_high = ?", userID, userID).
		Order("updated_at DESC, id DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	if err := hydrateChats(db, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// AppendMessage inserts the message and moves the chat's last-message pointer
// in one transaction.
func (r *chatRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil || msg.ChatID == "" || msg.SenderID == "" {
		return store.ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := forUpdate(tx).Where("id = ?", msg.ChatID).First(&chat).Error; err != nil {
			return notFound(err)
		}

		msg.ID = ""
		msg.CreatedAt = now()
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}

		return tx.Model(&chat).Updates(map[string]any{
			"last_message_id": msg.ID,
			"updated_at":      msg.CreatedAt,
		}).Error
	})
	if err != nil {
		return err
	}
	return hydrateMessages(r.db.WithContext(ctx), []*models.Message{msg})
}

func (r *chatRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	db := r.db.WithContext(ctx)

	var msg models.Message
	if err := db.Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, notFound(err)
	}
	if err := hydrateMessages(db, []*models.Message{&msg}); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatRepository) Messages(ctx context.Context, chatID string) ([]*models.Message, error) {
	db := r.db.WithContext(ctx)

	msgs := []*models.Message{}
	if err := db.Where("chat_id = ?", chatID).Order("created_at, id").Find(&msgs).Error; err != nil {
		return nil, err
	}
	if err := hydrateMessages(db, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkSeen adds userID to seenBy of every message in the chat sent by someone else
func (r *chatRepository) MarkSeen(ctx context.Context, chatID, userID string) (int64, error) {
	db := r.db.WithContext(ctx)

	var ids []string
	err := db.Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ?", chatID, userID).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	seenAt := now()
	rows := lo.Map(ids, func(id string, _ int) models.MessageSeen {
		return models.MessageSeen{MessageID: id, UserID: userID, CreatedAt: seenAt}
	})
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

func hydrateChats(db *gorm.DB, chats []*models.Chat) error {
	if len(chats) == 0 {
		return nil
	}

	memberIDs := lo.FlatMap(chats, func(c *models.Chat, _ int) []string { return []string{c.MemberLow, c.MemberHigh} })
	summaries, err := userSummaries(db, lo.Uniq(memberIDs))
	if err != nil {
		return err
	}

	lastIDs := lo.FilterMap(chats, func(c *models.Chat, _ int) (string, bool) {
		if c.LastMessageID == nil {
			return "", false
		}
		return *c.LastMessageID, true
	})
	var last []*models.Message
	if len(lastIDs) > 0 {
		if err := db.Where("id IN ?", lastIDs).Find(&last).Error; err != nil {
			return err
		}
		if err := hydrateMessages(db, last); err != nil {
			return err
		}
	}
	lastByID := lo.KeyBy(last, func(m *models.Message) string { return m.ID })

	for _, c := range chats {
		c.Members = []models.UserSummary{*summaryOf(summaries, c.MemberLow), *summaryOf(summaries, c.MemberHigh)}
		if c.LastMessageID != nil {
			c.LastMessage = lastByID[*c.LastMessageID]
		}
	}
	return nil
}

func hydrateMessages(db *gorm.DB, msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ids := lo.Map(msgs, func(m *models.Message, _ int) string { return m.ID })
	var seen []models.MessageSeen
	if err := db.Where("message_id IN ?", ids).Order("created_at, user_id").Find(&seen).Error; err != nil {
		return err
	}
	seenByMsg := lo.GroupBy(seen, func(s models.MessageSeen) string { return s.MessageID })

	summaries, err := userSummaries(db, lo.Uniq(lo.Map(msgs, func(m *models.Message, _ int) string { return m.SenderID })))
	if err != nil {
		return err
	}

	for _, m := range msgs {
		m.Sender = summaryOf(summaries, m.SenderID)
		m.SeenBy = lo.Map(seenByMsg[m.ID], func(s models.MessageSeen, _ int) string { return s.UserID })
	}
	return nil
}
