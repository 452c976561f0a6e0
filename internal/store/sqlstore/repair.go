package sqlstore

import (
	"context"

	"github.com/sadwiik06/SocialFlow/internal/store"
)

const (
	likeCountExpr    = "(SELECT COUNT(*) FROM likes WHERE likes.item_kind = items.kind AND likes.item_id = items.id)"
	commentCountExpr = "(SELECT COUNT(*) FROM comments WHERE comments.item_kind = items.kind AND comments.item_id = items.id)"
	lastMessageExpr  = "(SELECT m.id FROM messages m WHERE m.chat_id = chats.id ORDER BY m.created_at DESC, m.id DESC LIMIT 1)"
)

// Repair recomputes denormalized counters and chat pointers. Follow state is
// a single relation here, so there is nothing to reconcile for it.
func (s *Store) Repair(ctx context.Context) (*store.RepairReport, error) {
	db := s.db.WithContext(ctx)
	report := &store.RepairReport{}

	res := db.Exec(
		"UPDATE items SET like_count = " + likeCountExpr + ", comment_count = " + commentCountExpr +
			" WHERE like_count <> " + likeCountExpr + " OR comment_count <> " + commentCountExpr,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	report.ItemCounts = res.RowsAffected

	res = db.Exec(
		"UPDATE chats SET last_message_id = " + lastMessageExpr +
			" WHERE COALESCE(last_message_id, '') <> COALESCE(" + lastMessageExpr + ", '')",
	)
	if res.Error != nil {
		return nil, res.Error
	}
	report.LastMessages = res.RowsAffected

	return report, nil
}
