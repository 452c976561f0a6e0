package reconcile

import (
	"fmt"
	"strings"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/samber/lo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LocalCommentPrefix marks ids of comments that exist only on this client
const LocalCommentPrefix = "local-"

// Feed mirrors one item kind for a viewer and folds lifecycle events into it
type Feed struct {
	Kind   models.ItemKind
	Viewer string
	Items  *List[models.Item]

	seq atomic.Uint64
}

func NewFeed(kind models.ItemKind, viewer string) *Feed {
	return &Feed{
		Kind:   kind,
		Viewer: viewer,
		Items:  NewList(func(it models.Item) string { return it.ID }),
	}
}

// NewMessageLog mirrors a chat history; the same merge rules apply
func NewMessageLog() *List[models.Message] {
	return NewList(func(m models.Message) string { return m.ID })
}

type likedPayload struct {
	UserID     string   `json:"userId"`
	LikesCount int      `json:"likesCount"`
	Likes      []string `json:"likes"`
	IsLiked    bool     `json:"isLiked"`
}

type commentedPayload struct {
	Comment *models.Comment `json:"comment"`
}

// Apply folds a lifecycle event into the feed. It reports whether the event
// was for this feed's kind and changed anything.
func (f *Feed) Apply(eventType string, payload []byte) (bool, error) {
	action, ok := strings.CutPrefix(eventType, string(f.Kind))
	if !ok {
		return false, nil
	}

	switch action {
	case "Created":
		var item models.Item
		if err := json.Unmarshal(payload, &item); err != nil {
			return false, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return f.Items.Prepend(item), nil

	case "Deleted":
		id, err := f.itemID(payload)
		if err != nil {
			return false, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return f.Items.Remove(id), nil

	case "Liked":
		id, err := f.itemID(payload)
		if err != nil {
			return false, fmt.Errorf("decode %s: %w", eventType, err)
		}
		var p likedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return f.applyLiked(id, p), nil

	case "Commented":
		id, err := f.itemID(payload)
		if err != nil {
			return false, fmt.Errorf("decode %s: %w", eventType, err)
		}
		var p commentedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false, fmt.Errorf("decode %s: %w", eventType, err)
		}
		if p.Comment == nil {
			return false, nil
		}
		return f.applyCommented(id, p.Comment), nil
	}
	return false, nil
}

func (f *Feed) itemID(payload []byte) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", err
	}
	id, _ := fields[f.Kind.IDField()].(string)
	if id == "" {
		return "", fmt.Errorf("missing %s", f.Kind.IDField())
	}
	return id, nil
}

// applyLiked folds a like change. Without a pending edit the server state
// replaces the local one. While the viewer's own toggle is pending the viewer's
// membership stays local: a foreign event only moves its sender, and the echo
// of the viewer's action contributes the count and the other likers.
func (f *Feed) applyLiked(id string, p likedPayload) bool {
	pending := f.Items.Pending(id)
	own := p.UserID == f.Viewer

	changed := f.Items.Update(id, func(it *models.Item) {
		switch {
		case !pending:
			it.LikeCount = p.LikesCount
			it.Likes = likersAfter(it.Likes, p)

		case own:
			mine := it.HasLike(f.Viewer)
			theirs := p.IsLiked
			if p.Likes != nil {
				theirs = lo.Contains(p.Likes, f.Viewer)
				it.Likes = withLiker(p.Likes, f.Viewer, mine)
			}
			it.LikeCount = p.LikesCount
			if mine && !theirs {
				it.LikeCount++
			} else if !mine && theirs {
				it.LikeCount = max(it.LikeCount-1, 0)
			}

		default:
			had := it.HasLike(p.UserID)
			if p.IsLiked && !had {
				it.Likes = append(it.Likes, p.UserID)
				it.LikeCount++
			} else if !p.IsLiked && had {
				it.Likes = lo.Without(it.Likes, p.UserID)
				it.LikeCount = max(it.LikeCount-1, 0)
			}
		}
	})
	if changed && pending && own {
		f.Items.Confirm(id)
	}
	return changed
}

func likersAfter(likes []string, p likedPayload) []string {
	if p.Likes != nil {
		return append([]string(nil), p.Likes...)
	}
	return withLiker(likes, p.UserID, p.IsLiked)
}

// withLiker returns a copy of likes with userID present or absent
func withLiker(likes []string, userID string, present bool) []string {
	out := lo.Without(likes, userID)
	if present {
		out = append(out, userID)
	}
	return out
}

// applyCommented appends the comment unless its id is known. A viewer's own
// comment replaces the first local placeholder with the same text.
func (f *Feed) applyCommented(id string, c *models.Comment) bool {
	changed, replaced := false, false
	f.Items.Update(id, func(it *models.Item) {
		if lo.ContainsBy(it.Comments, func(x *models.Comment) bool { return x.ID == c.ID }) {
			return
		}
		if c.UserID == f.Viewer {
			_, i, ok := lo.FindIndexOf(it.Comments, func(x *models.Comment) bool {
				return strings.HasPrefix(x.ID, LocalCommentPrefix) && x.Text == c.Text
			})
			if ok {
				it.Comments[i] = c
				changed, replaced = true, true
				return
			}
		}
		it.Comments = append(it.Comments, c)
		it.CommentCount++
		changed = true
	})
	if replaced {
		f.Items.Confirm(id)
	}
	return changed
}

// ToggleLikeLocal flips the viewer's like immediately and marks the item
// pending. It returns the new liked state.
func (f *Feed) ToggleLikeLocal(id string) (liked bool, ok bool) {
	ok = f.Items.ApplyLocal(id, func(it *models.Item) {
		if it.HasLike(f.Viewer) {
			it.Likes = lo.Without(it.Likes, f.Viewer)
			it.LikeCount = max(it.LikeCount-1, 0)
			return
		}
		it.Likes = append(it.Likes, f.Viewer)
		it.LikeCount++
		liked = true
	})
	return liked, ok
}

// CommentLocal appends a placeholder comment by the viewer and marks the item
// pending until the server echo replaces it.
func (f *Feed) CommentLocal(id, text string) (*models.Comment, bool) {
	c := &models.Comment{
		ID:     fmt.Sprintf("%s%d", LocalCommentPrefix, f.seq.Add(1)),
		ItemID: id,
		UserID: f.Viewer,
		Text:   text,
	}
	ok := f.Items.ApplyLocal(id, func(it *models.Item) {
		c.Position = len(it.Comments) + 1
		it.Comments = append(it.Comments, c)
		it.CommentCount++
	})
	return c, ok
}

// Settle applies the server's answer to a local action: the authoritative
// item replaces the local copy and one pending edit is confirmed.
func (f *Feed) Settle(id string, apply func(*models.Item)) {
	f.Items.Update(id, apply)
	f.Items.Confirm(id)
}

// Rollback undoes a failed optimistic edit by restoring prev
func (f *Feed) Rollback(prev models.Item) {
	f.Items.Update(prev.ID, func(it *models.Item) { *it = prev })
	f.Items.Confirm(prev.ID)
}

// SettleComment folds the server's copy of the viewer's comment. Whichever of
// the REST answer and the realtime echo arrives second is a no-op.
func (f *Feed) SettleComment(id string, c *models.Comment) bool {
	return f.applyCommented(id, c)
}
