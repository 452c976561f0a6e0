package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/sadwiik06/SocialFlow/pkg/api"
	"github.com/sadwiik06/SocialFlow/pkg/config"
	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/spf13/cobra"
)

func newReelCmd() *cobra.Command {
	reelCmd := &cobra.Command{
		Use:   "reel",
		Short: "Reel commands",
	}

	var (
		id   string
		next bool
		prev bool
	)
	show := &cobra.Command{
		Use:   "show [index]",
		Short: "Show the reel at a feed position, or by --id",
		Long: `Show a reel with its neighbours. The position is 0 for the newest reel.
--next and --prev step one reel from the resolved position.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if next && prev {
				return fmt.Errorf("--next and --prev are mutually exclusive")
			}
			if (id == "") == (len(args) == 0) {
				return fmt.Errorf("give either an index or --id")
			}
			c, err := session()
			if err != nil {
				return err
			}

			res, err := resolveReel(cmd.Context(), c, args, id)
			if err != nil {
				return explain(err)
			}
			switch {
			case next && !res.HasNext, prev && !res.HasPrev:
				return fmt.Errorf("no reel in that direction from position %d", res.CurrentIndex)
			case next:
				res, err = c.ReelContextByID(cmd.Context(), *res.NextReelID)
			case prev:
				res, err = c.ReelContextByID(cmd.Context(), *res.PrevReelID)
			}
			if err != nil {
				return explain(err)
			}

			return output.Print(res, func(w io.Writer) {
				renderItem(w, res.Reel, config.GetString("auth.user_id"))
				output.PrintInfo("%d of %d", res.CurrentIndex+1, res.TotalReels)
				if res.HasPrev {
					output.PrintInfo("prev: %s", *res.PrevReelID)
				}
				if res.HasNext {
					output.PrintInfo("next: %s", *res.NextReelID)
				}
			})
		},
	}
	flags := show.Flags()
	flags.StringVar(&id, "id", "", "Resolve by reel id instead of position")
	flags.BoolVar(&next, "next", false, "Step to the next (older) reel")
	flags.BoolVar(&prev, "prev", false, "Step to the previous (newer) reel")

	reelCmd.AddCommand(show)
	return reelCmd
}

func resolveReel(ctx context.Context, c *api.Client, args []string, id string) (*api.ReelContext, error) {
	if id != "" {
		return c.ReelContextByID(ctx, id)
	}
	index, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("index must be an integer: %q", args[0])
	}
	return c.ReelContext(ctx, index)
}
