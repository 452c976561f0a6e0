package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/pkg/output"
)

const timeLayout = "2006-01-02 15:04"

var itemHeaders = []string{"ID", "AUTHOR", "LIKES", "COMMENTS", "CAPTION", "CREATED"}

func author(it *models.Item) string {
	if it.Author != nil && it.Author.Username != "" {
		return it.Author.Username
	}
	return it.PostedBy
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func itemRows(items []models.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for i := range items {
		it := &items[i]
		rows = append(rows, []string{
			it.ID,
			author(it),
			strconv.Itoa(it.LikeCount),
			strconv.Itoa(it.CommentCount),
			clip(it.Caption, 40),
			it.CreatedAt.Local().Format(timeLayout),
		})
	}
	return rows
}

// renderItem prints one item with its comments
func renderItem(w io.Writer, it *models.Item, viewer string) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s %s", it.Kind, it.ID)
	fmt.Fprintf(w, " by %s  %s\n", author(it), it.CreatedAt.Local().Format(timeLayout))
	if it.Caption != "" {
		fmt.Fprintln(w, it.Caption)
	}
	if it.MediaURL != "" {
		fmt.Fprintln(w, it.MediaURL)
	}

	heart := "♡"
	if viewer != "" && it.HasLike(viewer) {
		heart = color.New(color.FgRed).Sprint("♥")
	}
	fmt.Fprintf(w, "%s %d  💬 %d\n", heart, it.LikeCount, it.CommentCount)
	for _, c := range it.Comments {
		name := c.UserID
		if c.User != nil && c.User.Username != "" {
			name = c.User.Username
		}
		fmt.Fprintf(w, "  %s: %s\n", color.New(color.FgCyan).Sprint(name), c.Text)
	}
}

func messageRows(msgs []models.Message) [][]string {
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		sender := m.SenderID
		if m.Sender != nil && m.Sender.Username != "" {
			sender = m.Sender.Username
		}
		rows = append(rows, []string{
			m.CreatedAt.Local().Format(timeLayout),
			sender,
			m.Text,
			strconv.Itoa(len(m.SeenBy)),
		})
	}
	return rows
}

func printItems(items []models.Item) error {
	return output.PrintList(items, itemHeaders, itemRows(items))
}
