package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"socialharvest/pkg/orchestrator"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/ui"
)

var (
	// Collect command flags
	accountName   string
	forceCollect  bool
	collectLimit  int
	postPlatform  string
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collection operation now",
	Long: `Run one collection operation immediately and wait for the outcome.

Collections respect the configured rate limits and route through the
proxy pool when one is configured. A profile or posts collection is
skipped when the influencer was already collected within its interval;
pass --force to collect anyway.

Credentials are resolved from stored accounts ('socialharvest auth
login'), environment variables (SOCIALHARVEST_<PLATFORM>_*) or the
configuration file.`,
}

// collectProfileCmd represents the collect profile command
var collectProfileCmd = &cobra.Command{
	Use:   "profile <platform> <username>",
	Short: "Collect an influencer's profile",
	Long: `Collect the current profile of an influencer: display name, bio,
follower and post counts, verification status.

The influencer is registered automatically on first collection.`,
	Example: `  # Collect an Instagram profile
  socialharvest collect profile instagram nasa

  # Collect even if the interval has not elapsed
  socialharvest collect profile instagram nasa --force

  # Use a specific stored account
  socialharvest collect profile instagram nasa --account myaccount`,
	Args: cobra.ExactArgs(2),
	Run:  runCollectProfile,
}

// collectPostsCmd represents the collect posts command
var collectPostsCmd = &cobra.Command{
	Use:   "posts <platform> <username>",
	Short: "Collect an influencer's recent posts",
	Long: `Collect an influencer's recent posts with their engagement counts,
hashtags and mentions. Pagination stops at the requested limit.`,
	Example: `  # Collect the 50 most recent posts
  socialharvest collect posts instagram nasa

  # Collect up to 200 posts, ignoring the collection interval
  socialharvest collect posts instagram nasa --limit 200 --force`,
	Args: cobra.ExactArgs(2),
	Run:  runCollectPosts,
}

// collectCommentsCmd represents the collect comments command
var collectCommentsCmd = &cobra.Command{
	Use:   "comments <post-id>",
	Short: "Collect comments on a stored post",
	Long: `Collect comments on a post that was collected earlier.

The post is addressed by its store ID as shown by 'socialharvest
influencers posts'. With --platform set, the platform's own post ID
(for Instagram, the shortcode) is accepted as well.`,
	Example: `  # Collect comments by store ID
  socialharvest collect comments 2f6c0d1e-8a4b-4f0e-9c3d-5b7a61e2f904

  # Collect comments by Instagram shortcode
  socialharvest collect comments CxYzAbC123 --platform instagram --limit 100`,
	Args: cobra.ExactArgs(1),
	Run:  runCollectComments,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.AddCommand(collectProfileCmd)
	collectCmd.AddCommand(collectPostsCmd)
	collectCmd.AddCommand(collectCommentsCmd)

	collectCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use specific stored account")

	collectProfileCmd.Flags().BoolVar(&forceCollect, "force", false, "collect even when the interval has not elapsed")
	collectPostsCmd.Flags().BoolVar(&forceCollect, "force", false, "collect even when the interval has not elapsed")
	collectPostsCmd.Flags().IntVarP(&collectLimit, "limit", "n", 50, "maximum number of posts to collect")
	collectCommentsCmd.Flags().IntVarP(&collectLimit, "limit", "n", 100, "maximum number of comments to collect")
	collectCommentsCmd.Flags().StringVar(&postPlatform, "platform", "", "resolve the post ID as a platform post ID")
}

// startCollection loads configuration and assembles the engine for a
// one-shot collection against the named platform.
func startCollection(ctx context.Context, platformName string) *engine {
	cfg := loadConfig()
	applyStoredCredentials(cfg, accountName)

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		ui.PrintError("Failed to initialize engine", err.Error())
		os.Exit(1)
	}

	if platformName != "" {
		if _, ok := eng.registry.Get(platformName); !ok {
			eng.Close()
			ui.PrintError("Platform not supported", platformName)
			if supported := eng.registry.Platforms(); len(supported) > 0 {
				ui.PrintInfo("Supported platforms", strings.Join(supported, ", "))
			}
			os.Exit(1)
		}
	}
	return eng
}

func runCollectProfile(cmd *cobra.Command, args []string) {
	platformName := strings.ToLower(strings.TrimSpace(args[0]))
	username := strings.TrimSpace(args[1])
	ctx := context.Background()

	eng := startCollection(ctx, platformName)
	defer eng.Close()

	inf, err := eng.resolveInfluencer(ctx, platformName, username)
	if err != nil {
		ui.PrintError("Failed to resolve influencer", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Collecting profile", platformName+"/"+username)
	res := eng.orch.CollectProfile(ctx, inf.ID, forceCollect)
	reportResult("Profile collection", res)

	if profile, ok := res.Data.(*platform.Profile); ok {
		fmt.Println()
		ui.PrintInfo("Display name", profile.DisplayName)
		ui.PrintInfo("Followers", ui.FormatCount(profile.FollowerCount))
		ui.PrintInfo("Following", ui.FormatCount(profile.FollowingCount))
		ui.PrintInfo("Posts", ui.FormatCount(profile.PostCount))
		if profile.Verified {
			ui.PrintInfo("Verified", "yes")
		}
	}
}

func runCollectPosts(cmd *cobra.Command, args []string) {
	platformName := strings.ToLower(strings.TrimSpace(args[0]))
	username := strings.TrimSpace(args[1])
	ctx := context.Background()

	eng := startCollection(ctx, platformName)
	defer eng.Close()

	inf, err := eng.resolveInfluencer(ctx, platformName, username)
	if err != nil {
		ui.PrintError("Failed to resolve influencer", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Collecting posts", fmt.Sprintf("%s/%s (limit %d)", platformName, username, collectLimit))
	res := eng.orch.CollectPosts(ctx, inf.ID, collectLimit, forceCollect)
	reportResult("Posts collection", res)

	if posts, ok := res.Data.([]*platform.Post); ok && len(posts) > 0 {
		newest := posts[0]
		fmt.Println()
		ui.PrintInfo("Newest post", newest.ExternalID)
		ui.PrintInfo("Likes", ui.FormatCount(newest.LikesCount))
		ui.PrintInfo("Comments", ui.FormatCount(newest.CommentsCount))
	}
}

func runCollectComments(cmd *cobra.Command, args []string) {
	postID := strings.TrimSpace(args[0])
	ctx := context.Background()

	eng := startCollection(ctx, strings.ToLower(postPlatform))
	defer eng.Close()

	// Accept either the store ID or, with --platform, the platform's
	// own post ID.
	if _, err := eng.store.Post(ctx, postID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			ui.PrintError("Failed to look up post", err.Error())
			os.Exit(1)
		}
		if postPlatform == "" {
			ui.PrintError("Post not found", postID)
			ui.PrintInfo("Hint", "pass --platform to address a post by its platform post ID")
			os.Exit(1)
		}
		resolved, err := eng.store.PostIDByExternalID(ctx, strings.ToLower(postPlatform), postID)
		if err != nil {
			ui.PrintError("Post not found", postID)
			ui.PrintInfo("Hint", "collect the influencer's posts first: socialharvest collect posts")
			os.Exit(1)
		}
		postID = resolved
	}

	ui.PrintInfo("Collecting comments", fmt.Sprintf("%s (limit %d)", postID, collectLimit))
	res := eng.orch.CollectComments(ctx, postID, collectLimit)
	reportResult("Comments collection", res)
}

// reportResult prints the outcome of one collection and exits non-zero
// on failure.
func reportResult(operation string, res orchestrator.CollectionResult) {
	switch {
	case res.Skipped:
		ui.PrintWarning("Skipped", "collected within the configured interval, rerun with --force")
		return
	case res.Err != nil:
		if res.RateLimited {
			ui.PrintRateLimitNotice(res.RetryAfterSeconds)
		}
		if res.AuthFailed {
			ui.PrintWarning("Credentials were rejected", "run 'socialharvest auth login' to refresh them")
		}
		ui.PrintCross(fmt.Sprintf("%s failed: %v", operation, res.Err))
		if res.TaskID != "" {
			ui.PrintInfo("Task", res.TaskID)
		}
		os.Exit(1)
	}

	ui.PrintCheck(fmt.Sprintf("%s completed: %d items", operation, res.ItemsCollected))
	if res.TaskID != "" {
		ui.PrintInfo("Task", res.TaskID)
	}
}
