package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sadwiik06/SocialFlow/internal/config"
	"github.com/sadwiik06/SocialFlow/internal/database"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	opts := seed.DevOptions()

	root := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured database with fake data",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Initialize("info", "")
		},
	}

	dev := &cobra.Command{
		Use:   "dev",
		Short: "Seed a realistic development dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSeeder(cmd.Context(), opts.Seed, func(ctx context.Context, s *seed.Seeder) error {
				sum, err := s.Run(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Printf("Seeded %d users, %d posts, %d reels, %d follows, %d likes, %d comments, %d chats\n",
					sum.Users, sum.Posts, sum.Reels, sum.Follows, sum.Likes, sum.Comments, sum.Chats)
				return nil
			})
		},
	}
	flags := dev.Flags()
	flags.IntVar(&opts.Users, "users", opts.Users, "number of users")
	flags.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "posts per user")
	flags.IntVar(&opts.ReelsPerUser, "reels", opts.ReelsPerUser, "reels per user")
	flags.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "follow attempts per user")
	flags.IntVar(&opts.Likes, "likes", opts.Likes, "total likes")
	flags.IntVar(&opts.Comments, "comments", opts.Comments, "total comments")
	flags.IntVar(&opts.Chats, "chats", opts.Chats, "number of chats")
	flags.IntVar(&opts.MessagesPerChat, "messages", opts.MessagesPerChat, "messages per chat")
	flags.Uint64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")

	test := &cobra.Command{
		Use:   "test",
		Short: "Create the fixed test accounts (password: " + seed.DefaultPassword + ")",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSeeder(cmd.Context(), 0, func(ctx context.Context, s *seed.Seeder) error {
				users, err := s.TestUsers(ctx)
				if err != nil {
					return err
				}
				for _, u := range users {
					fmt.Printf("✓ %s (%s)\n", u.Username, u.ID)
				}
				return nil
			})
		},
	}

	root.AddCommand(dev, test)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func withSeeder(ctx context.Context, randSeed uint64, fn func(context.Context, *seed.Seeder) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(ctx, cfg.Database, false)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	s, err := seed.NewSeeder(db, randSeed)
	if err != nil {
		return err
	}
	if err := fn(ctx, s); err != nil {
		logger.Log.Error("Seeding failed", zap.Error(err))
		return err
	}
	return nil
}
