package cli

import (
	"strings"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/sadwiik06/SocialFlow/pkg/reconcile"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Direct messages",
	}

	open := &cobra.Command{
		Use:   "open <userId>",
		Short: "Open (or reuse) the chat with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session()
			if err != nil {
				return err
			}
			chat, err := c.OpenChat(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if output.GetOutputFormat() == output.FormatJSON {
				return output.PrintRecord("", map[string]any{"chat": chat})
			}
			output.PrintSuccess("Chat %s", chat.ID)
			return nil
		},
	}

	send := &cobra.Command{
		Use:   "send <chatId> <text>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session()
			if err != nil {
				return err
			}
			msg, err := c.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return explain(err)
			}
			if output.GetOutputFormat() == output.FormatJSON {
				return output.PrintRecord("", map[string]any{"message": msg})
			}
			output.PrintSuccess("Sent %s", msg.ID)
			return nil
		},
	}

	var markSeen bool
	history := &cobra.Command{
		Use:   "history <chatId>",
		Short: "Show a chat's messages, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session()
			if err != nil {
				return err
			}
			msgs, err := c.Messages(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			log := reconcile.NewMessageLog()
			log.Append(msgs)

			if markSeen {
				if _, err := c.MarkSeen(cmd.Context(), args[0]); err != nil {
					return explain(err)
				}
			}
			items := log.Items()
			return output.PrintList(items, []string{"SENT", "FROM", "TEXT", "SEEN"}, messageRows(items))
		},
	}
	history.Flags().BoolVar(&markSeen, "seen", true, "Mark the messages as seen")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session()
			if err != nil {
				return err
			}
			chats, err := c.Chats(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return output.PrintList(chats, []string{"ID", "WITH", "LAST"}, chatRows(chats))
		},
	}

	chatCmd.AddCommand(open, send, history, list)
	return chatCmd
}

func chatRows(chats []models.Chat) [][]string {
	rows := make([][]string, 0, len(chats))
	for _, ch := range chats {
		names := make([]string, 0, len(ch.Members))
		for _, m := range ch.Members {
			names = append(names, m.Username)
		}
		last := ""
		if ch.LastMessage != nil {
			last = clip(ch.LastMessage.Text, 40)
		}
		rows = append(rows, []string{ch.ID, strings.Join(names, ", "), last})
	}
	return rows
}
