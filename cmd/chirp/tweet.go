// ABOUTME: CLI commands for tweets and identity.
// ABOUTME: Provides login, logout, post, like, unlike, and timeline subcommands.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/feed"
	"github.com/2389-research/chirp/internal/models"
)

var loginCmd = &cobra.Command{
	Use:   "login <name>",
	Short: "Sign in as <name>",
	Long:  "Set the user name used for tweeting and liking.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var postCmd = &cobra.Command{
	Use:   "post <text>",
	Short: "Post a tweet",
	Long:  "Post a tweet of 10 to 280 characters.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPost,
}

var likeCmd = &cobra.Command{
	Use:   "like <tweet-id>",
	Short: "Like a tweet",
	Args:  cobra.ExactArgs(1),
	RunE:  runLike,
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <tweet-id>",
	Short: "Remove your like from a tweet",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlike,
}

var timelineCmd = &cobra.Command{
	Use:     "timeline",
	Aliases: []string{"feed"},
	Short:   "Print the timeline",
	Long:    "Print the timeline newest first, optionally filtered to one author.",
	Args:    cobra.NoArgs,
	RunE:    runTimeline,
}

// Flags
var (
	timelineAuthor string
	timelineLimit  int
	timelinePages  int
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(unlikeCmd)
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().StringVar(&timelineAuthor, "author", "", "Only show tweets by this author")
	timelineCmd.Flags().IntVar(&timelineLimit, "limit", 0, "Tweets per page (default from config, 10)")
	timelineCmd.Flags().IntVar(&timelinePages, "pages", 1, "Number of pages to load")
}

func runLogin(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if err := models.ValidateUserName(name); err != nil {
		return err
	}
	if err := globalIdentities.SetIdentity(name); err != nil {
		return fmt.Errorf("failed to set identity: %w", err)
	}
	fmt.Printf("Logged in as %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := globalIdentities.ClearIdentity(); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func runPost(cmd *cobra.Command, args []string) error {
	composer := feed.NewComposer(globalAPI, globalCache, globalAuth, globalLogger)
	tweet, err := composer.Create(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Tweet created (ID: %s)\n", tweet.ID)
	return nil
}

func runLike(cmd *cobra.Command, args []string) error {
	return likeAction(cmd, args[0], models.ActionLike)
}

func runUnlike(cmd *cobra.Command, args []string) error {
	return likeAction(cmd, args[0], models.ActionUnlike)
}

func likeAction(cmd *cobra.Command, tweetID string, kind models.ActionKind) error {
	tl := newTimeline("", 0)
	var err error
	if kind == models.ActionLike {
		err = tl.Like(cmd.Context(), tweetID)
	} else {
		err = tl.Unlike(cmd.Context(), tweetID)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%sd %s\n", strings.ToUpper(string(kind[:1]))+string(kind[1:]), tweetID)
	return nil
}

func runTimeline(cmd *cobra.Command, args []string) error {
	tl := newTimeline(timelineAuthor, timelineLimit)
	defer tl.Close()

	for i := 0; i < max(timelinePages, 1); i++ {
		if i > 0 && !tl.HasNextPage() {
			break
		}
		if err := tl.FetchNextPage(cmd.Context()); err != nil {
			return err
		}
	}

	if banner := auth.Banner(globalAuth); banner != "" {
		fmt.Printf("%s - run 'chirp login <name>' to like and tweet\n\n", banner)
	}

	tweets := tl.Tweets()
	if len(tweets) == 0 {
		fmt.Println("No tweets found.")
		return nil
	}

	now := time.Now()
	for _, t := range tweets {
		heart := "♡"
		if t.HasLiked() {
			heart = "♥"
		}
		fmt.Printf("--- @%s - %s [%s]\n%s\n%s %d\n\n",
			t.Author.Name, humanize.RelTime(t.CreatedAt, now, "ago", "from now"), t.ID, t.Text, heart, t.LikeCount)
	}

	if tl.HasNextPage() {
		fmt.Println("More tweets available: use --pages to load more.")
	} else {
		fmt.Println("No more tweets to load")
	}
	return nil
}
