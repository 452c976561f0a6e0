package cli

import (
	"strings"

	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/spf13/cobra"
)

func newLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <post|reel> <id>",
		Short: "Toggle your like on a post or reel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			c, err := session()
			if err != nil {
				return err
			}
			res, err := c.ToggleLike(cmd.Context(), kind, args[1])
			if err != nil {
				return explain(err)
			}
			if output.GetOutputFormat() == output.FormatJSON {
				return output.PrintRecord("", map[string]any{"isLiked": res.IsLiked, "likesCount": res.LikesCount})
			}
			verb := "Unliked"
			if res.IsLiked {
				verb = "Liked"
			}
			output.PrintSuccess("%s %s %s (%d likes)", verb, kind, args[1], res.LikesCount)
			return nil
		},
	}
}

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post|reel> <id> <text>",
		Short: "Comment on a post or reel",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			c, err := session()
			if err != nil {
				return err
			}
			res, err := c.Comment(cmd.Context(), kind, args[1], strings.Join(args[2:], " "))
			if err != nil {
				return explain(err)
			}
			if output.GetOutputFormat() == output.FormatJSON {
				return output.PrintRecord("", map[string]any{"comment": res.Comment})
			}
			output.PrintSuccess("Comment #%d added to %s %s", res.Comment.Position, kind, args[1])
			return nil
		},
	}
}

func newFollowCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <userId>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session()
			if err != nil {
				return err
			}
			call := c.Follow
			if action == "unfollow" {
				call = c.Unfollow
			}
			res, err := call(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if !res.Changed {
				if action == "follow" {
					output.PrintInfo("Already following %s", args[0])
				} else {
					output.PrintInfo("Not following %s", args[0])
				}
				return nil
			}
			output.PrintSuccess("%s", res.Message)
			return nil
		},
	}
}
