// Package cli holds the socialflow terminal client's commands
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sadwiik06/SocialFlow/pkg/api"
	"github.com/sadwiik06/SocialFlow/pkg/config"
	"github.com/sadwiik06/SocialFlow/pkg/logger"
	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

// NewRootCommand builds the full command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "socialflow",
		Short: "SocialFlow CLI - posts, reels and chat from the terminal",
		Long: `socialflow talks to a SocialFlow server: browse the post and reel
feeds, like and comment, follow people, chat, and watch feeds update live.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(configPath); err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			logger.Init(verbose)
			if cmd.Flags().Changed("output") {
				if !output.ValidateOutputFormat(outputFmt) {
					return fmt.Errorf("invalid output format %q (text, json, table)", outputFmt)
				}
				output.SetFormat(outputFmt)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/socialflow/config.toml)")
	flags.StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json, table")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newFeedCmd(),
		newReelCmd(),
		newLikeCmd(),
		newCommentCmd(),
		newFollowCmd("follow"),
		newFollowCmd("unfollow"),
		newChatCmd(),
		newWatchCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
}

func newClient() *api.Client {
	timeout := time.Duration(config.GetInt("api.timeout")) * time.Second
	return api.New(config.GetString("api.base_url"), timeout)
}

// session returns a client carrying the saved token
func session() (*api.Client, error) {
	token := config.GetString("auth.token")
	if token == "" {
		return nil, fmt.Errorf("not logged in, run: socialflow login")
	}
	c := newClient()
	c.SetToken(token)
	return c, nil
}

// explain turns API errors into short user-facing messages
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case api.IsUnauthorized(err):
		return fmt.Errorf("session expired or invalid, run: socialflow login")
	case api.IsForbidden(err):
		return fmt.Errorf("not allowed: %w", err)
	case api.IsNotFound(err):
		return fmt.Errorf("not found: %w", err)
	case api.IsServerError(err):
		return fmt.Errorf("server error, try again later: %w", err)
	}
	if field, ok := api.IsValidation(err); ok && field != "" {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	return err
}
