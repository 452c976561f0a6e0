package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/pkg/api"
	"github.com/sadwiik06/SocialFlow/pkg/config"
	"github.com/sadwiik06/SocialFlow/pkg/live"
	"github.com/sadwiik06/SocialFlow/pkg/logger"
	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/sadwiik06/SocialFlow/pkg/reconcile"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PageFetcher loads an offset page of a feed
type PageFetcher interface {
	Feed(ctx context.Context, kind models.ItemKind, page, limit int) (*api.Page, error)
}

// Interactor performs the viewer's own actions on an item
type Interactor interface {
	ToggleLike(ctx context.Context, kind models.ItemKind, id string) (*api.LikeResult, error)
	Comment(ctx context.Context, kind models.ItemKind, id, text string) (*api.CommentResult, error)
}

// Watcher keeps a live mirror of the first page of a feed
type Watcher struct {
	fetch PageFetcher
	act   Interactor
	feed  *reconcile.Feed
	seq   reconcile.Sequencer
	limit int

	mu  sync.Mutex
	in  io.Reader
	out io.Writer
}

func NewWatcher(fetch PageFetcher, kind models.ItemKind, viewer string, limit int, out io.Writer) *Watcher {
	return &Watcher{
		fetch: fetch,
		feed:  reconcile.NewFeed(kind, viewer),
		limit: limit,
		out:   out,
	}
}

// WithActions enables Like and Comment. Commands are read from in while Run
// is following the feed; in may be nil.
func (w *Watcher) WithActions(act Interactor, in io.Reader) *Watcher {
	w.act = act
	w.in = in
	return w
}

// Feed exposes the mirrored list
func (w *Watcher) Feed() *reconcile.Feed {
	return w.feed
}

// Load replaces the mirror with page 0
func (w *Watcher) Load(ctx context.Context) error {
	seq := w.seq.Next()
	page, err := w.fetch.Feed(ctx, w.feed.Kind, 0, w.limit)
	if err != nil {
		return err
	}
	if w.seq.Accept(seq) {
		w.feed.Items.Reset(page.Items)
	}
	return nil
}

// Resync refetches page 0 and merges it. A response overtaken by a newer
// resync is dropped.
func (w *Watcher) Resync(ctx context.Context) error {
	seq := w.seq.Next()
	page, err := w.fetch.Feed(ctx, w.feed.Kind, 0, w.limit)
	if err != nil {
		return err
	}
	if n, ok := w.mergeHead(seq, page.Items); ok && n > 0 {
		w.printf(color.FgGreen, "+ %d new %s since reconnect\n", n, w.feed.Kind.Topic())
	}
	return nil
}

func (w *Watcher) mergeHead(seq uint64, items []models.Item) (int, bool) {
	if !w.seq.Accept(seq) {
		logger.Debug("Dropping stale page", "seq", seq)
		return 0, false
	}
	return w.feed.Items.MergeHead(items), true
}

// Handle folds one realtime frame into the mirror and prints what changed
func (w *Watcher) Handle(ev live.Event) {
	changed, err := w.feed.Apply(ev.Type, ev.Payload)
	if err != nil {
		logger.Warn("Bad event", "type", ev.Type, "error", err)
		return
	}
	if !changed {
		return
	}

	kind := w.feed.Kind
	switch ev.Type {
	case kind.Event("Created"):
		items := w.feed.Items.Items()
		it := items[0]
		w.printf(color.FgGreen, "+ %s %s by %s: %s\n", kind, it.ID, author(&it), clip(it.Caption, 60))
	case kind.Event("Deleted"):
		w.printf(color.FgRed, "- %s deleted (%d left)\n", kind, w.feed.Items.Len())
	case kind.Event("Liked"), kind.Event("Commented"):
		var ref map[string]any
		_ = json.Unmarshal(ev.Payload, &ref)
		id, _ := ref[kind.IDField()].(string)
		if it, ok := w.feed.Items.Get(id); ok {
			w.printf(color.FgCyan, "~ %s %s  ♥ %d  💬 %d\n", kind, id, it.LikeCount, it.CommentCount)
		}
	}
}

// Like toggles the viewer's like on a mirrored item right away and settles it
// with the server's answer, or rolls it back when the request fails.
func (w *Watcher) Like(ctx context.Context, id string) error {
	prev, ok := w.feed.Items.Get(id)
	if !ok || w.act == nil {
		return fmt.Errorf("%s %s is not in the live view", w.feed.Kind, id)
	}
	w.feed.ToggleLikeLocal(id)

	res, err := w.act.ToggleLike(ctx, w.feed.Kind, id)
	if err != nil {
		w.feed.Rollback(prev)
		return err
	}
	w.feed.Settle(id, func(it *models.Item) { it.LikeCount = res.LikesCount })

	it, _ := w.feed.Items.Get(id)
	w.printf(color.FgCyan, "~ %s %s  ♥ %d  💬 %d\n", w.feed.Kind, id, it.LikeCount, it.CommentCount)
	return nil
}

// Comment shows the viewer's comment at once and swaps in the server copy
func (w *Watcher) Comment(ctx context.Context, id, text string) error {
	prev, ok := w.feed.Items.Get(id)
	if !ok || w.act == nil {
		return fmt.Errorf("%s %s is not in the live view", w.feed.Kind, id)
	}
	w.feed.CommentLocal(id, text)

	res, err := w.act.Comment(ctx, w.feed.Kind, id, text)
	if err != nil {
		w.feed.Rollback(prev)
		return err
	}
	w.feed.SettleComment(id, res.Comment)

	it, _ := w.feed.Items.Get(id)
	w.printf(color.FgCyan, "~ %s %s  ♥ %d  💬 %d\n", w.feed.Kind, id, it.LikeCount, it.CommentCount)
	return nil
}

// Interact reads "like <id>" and "comment <id> <text>" lines until r ends or
// ctx is done.
func (w *Watcher) Interact(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() && ctx.Err() == nil {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch {
		case fields[0] == "like" && len(fields) == 2:
			err = w.Like(ctx, fields[1])
		case fields[0] == "comment" && len(fields) >= 3:
			err = w.Comment(ctx, fields[1], strings.Join(fields[2:], " "))
		default:
			err = fmt.Errorf("usage: like <id> | comment <id> <text>")
		}
		if err != nil {
			w.printf(color.FgRed, "! %v\n", explain(err))
		}
	}
}

func (w *Watcher) printf(attr color.Attribute, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	color.New(attr).Fprintf(w.out, format, args...)
}

// Run loads the first page, prints it, then follows client until ctx ends.
// Every reconnect triggers a resync.
func (w *Watcher) Run(ctx context.Context, client *live.Client) error {
	if err := w.Load(ctx); err != nil {
		return err
	}
	if err := printItems(w.feed.Items.Items()); err != nil {
		return err
	}

	client.OnEvent(w.Handle)
	client.OnState(func(s live.State) {
		if s == live.StateReconnecting || s == live.StateConnected {
			w.printf(color.FgYellow, "[%s]\n", s)
		}
	})
	client.OnReconnect(func() {
		go func() {
			if err := w.Resync(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("Resync failed", "error", err)
			}
		}()
	})

	if w.act != nil && w.in != nil {
		go w.Interact(ctx, w.in)
	}

	err := client.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func newWatchCmd() *cobra.Command {
	var (
		limit       int
		interactive bool
	)
	cmd := &cobra.Command{
		Use:       "watch [posts|reels]",
		Short:     "Follow a feed live",
		Long:      "Print the newest page of a feed, then apply likes, comments, new and deleted items as they happen. With -i, lines like \"like R5\" or \"comment R5 nice\" act on mirrored items. Ctrl-C stops.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"posts", "reels"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.KindReel
			if len(args) == 1 {
				var err error
				if kind, err = parseKind(args[0]); err != nil {
					return err
				}
			}
			c, err := session()
			if err != nil {
				return err
			}

			cfg := live.DefaultConfig(config.WebSocketURL(), config.GetString("auth.token"))
			cfg.Topics = []string{kind.Topic()}
			w := NewWatcher(c, kind, config.GetString("auth.user_id"), limit, output.Out)
			if interactive {
				w.WithActions(c, cmd.InOrStdin())
			}
			return explain(w.Run(cmd.Context(), live.NewClient(cfg)))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "How many items to mirror")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read like/comment commands from stdin")
	return cmd
}
