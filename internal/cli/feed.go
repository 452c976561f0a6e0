package cli

import (
	"fmt"

	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/spf13/cobra"
)

// parseKind accepts the singular or plural kind name
func parseKind(s string) (models.ItemKind, error) {
	switch s {
	case "post", "posts":
		return models.KindPost, nil
	case "reel", "reels":
		return models.KindReel, nil
	}
	return "", fmt.Errorf("unknown kind %q (post or reel)", s)
}

func newFeedCmd() *cobra.Command {
	var (
		page   int
		limit  int
		cursor string
	)
	cmd := &cobra.Command{
		Use:       "feed <posts|reels>",
		Short:     "Show a page of the posts or reels feed",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"posts", "reels"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			c, err := session()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("cursor") {
				res, err := c.FeedAfter(cmd.Context(), kind, cursor, limit)
				if err != nil {
					return explain(err)
				}
				if err := printItems(res.Items); err != nil {
					return err
				}
				if res.HasMore && output.GetOutputFormat() != output.FormatJSON {
					output.PrintInfo("More: --cursor %s", res.NextCursor)
				}
				return nil
			}

			res, err := c.Feed(cmd.Context(), kind, page, limit)
			if err != nil {
				return explain(err)
			}
			if err := printItems(res.Items); err != nil {
				return err
			}
			if output.GetOutputFormat() != output.FormatJSON {
				output.PrintInfo("Page %d, %d total", res.CurrentPage, res.Total)
				if res.HasMore {
					output.PrintInfo("More: --page %d", res.CurrentPage+1)
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&page, "page", 0, "Page number, starting at 0")
	flags.IntVar(&limit, "limit", 0, "Items per page (server default when 0)")
	flags.StringVar(&cursor, "cursor", "", "Continue after this cursor; empty starts at the top")
	return cmd
}
