package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/ui"
)

var (
	// Influencer command flags
	displayName    string
	externalID     string
	intervalHours  int
	postsListLimit int
)

// influencersCmd represents the influencers command
var influencersCmd = &cobra.Command{
	Use:     "influencers",
	Aliases: []string{"influencer"},
	Short:   "Manage tracked influencers",
	Long: `Manage the influencers the engine tracks.

Each influencer is keyed by platform and username and carries its own
collection interval. The background worker collects every influencer
whose interval has elapsed; 'socialharvest collect' runs a collection
immediately.`,
}

// influencersAddCmd represents the influencers add command
var influencersAddCmd = &cobra.Command{
	Use:   "add <platform> <username>",
	Short: "Track an influencer",
	Long: `Track an influencer for scheduled collection.

Adding an already tracked influencer updates its display name and
collection interval instead of duplicating it.`,
	Example: `  # Track an Instagram account with the default 24h interval
  socialharvest influencers add instagram nasa

  # Track with a display name and a 6h interval
  socialharvest influencers add instagram nasa --display-name "NASA" --every 6`,
	Args: cobra.ExactArgs(2),
	Run:  runInfluencersAdd,
}

// influencersListCmd represents the influencers list command
var influencersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked influencers",
	Long:  `List every tracked influencer, stalest collection first.`,
	Run:   runInfluencersList,
}

// influencersRemoveCmd represents the influencers remove command
var influencersRemoveCmd = &cobra.Command{
	Use:   "remove <platform> <username>",
	Short: "Stop tracking an influencer",
	Long: `Stop tracking an influencer.

Collected profiles, posts and comments are kept; only the scheduling
entry is removed.`,
	Args: cobra.ExactArgs(2),
	Run:  runInfluencersRemove,
}

// influencersDueCmd represents the influencers due command
var influencersDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List influencers due for collection",
	Long: `List the influencers whose collection interval has elapsed. These are
the ones the background worker would collect on its next sweep.`,
	Run: runInfluencersDue,
}

// influencersPostsCmd represents the influencers posts command
var influencersPostsCmd = &cobra.Command{
	Use:   "posts <platform> <username>",
	Short: "List an influencer's stored posts",
	Long: `List the posts stored for an influencer, newest first.

The store ID shown for each post addresses it in 'socialharvest
collect comments'.`,
	Args: cobra.ExactArgs(2),
	Run:  runInfluencersPosts,
}

func init() {
	rootCmd.AddCommand(influencersCmd)
	influencersCmd.AddCommand(influencersAddCmd)
	influencersCmd.AddCommand(influencersListCmd)
	influencersCmd.AddCommand(influencersRemoveCmd)
	influencersCmd.AddCommand(influencersDueCmd)
	influencersCmd.AddCommand(influencersPostsCmd)

	influencersAddCmd.Flags().StringVar(&displayName, "display-name", "", "display name for listings")
	influencersAddCmd.Flags().StringVar(&externalID, "external-id", "", "platform's own user ID, discovered automatically when omitted")
	influencersAddCmd.Flags().IntVar(&intervalHours, "every", 24, "collection interval in hours")
	influencersPostsCmd.Flags().IntVarP(&postsListLimit, "limit", "n", 20, "maximum number of posts to list")
}

func runInfluencersAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	inf, err := store.AddInfluencer(ctx, &platform.Influencer{
		Platform:                 strings.ToLower(strings.TrimSpace(args[0])),
		Username:                 strings.TrimSpace(args[1]),
		DisplayName:              displayName,
		ExternalID:               externalID,
		CollectionFrequencyHours: intervalHours,
	})
	if err != nil {
		ui.PrintError("Failed to add influencer", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Tracking %s/%s", inf.Platform, inf.Username))
	ui.PrintInfo("Collection interval", fmt.Sprintf("every %dh", inf.CollectionFrequencyHours))
	ui.PrintInfo("Next step", "run 'socialharvest worker run' or collect now with 'socialharvest collect'")
}

func runInfluencersList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	influencers, err := store.ListInfluencers(ctx)
	if err != nil {
		ui.PrintError("Failed to list influencers", err.Error())
		os.Exit(1)
	}

	if len(influencers) == 0 {
		ui.PrintInfo("No tracked influencers", "use 'socialharvest influencers add' to track one")
		return
	}

	ui.PrintHighlight("Tracked Influencers")
	fmt.Println()
	for i, inf := range influencers {
		printInfluencer(i+1, inf)
	}
}

func runInfluencersRemove(cmd *cobra.Command, args []string) {
	platformName := strings.ToLower(strings.TrimSpace(args[0]))
	username := strings.TrimSpace(args[1])
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	inf, err := store.InfluencerByHandle(ctx, platformName, username)
	if err != nil {
		ui.PrintError("Influencer not found", platformName+"/"+username)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Stop tracking '%s/%s'? Collected content is kept. (y/N): ", platformName, username)
	input, _ := reader.ReadString('\n')
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
		return
	}

	if err := store.RemoveInfluencer(ctx, inf.ID); err != nil {
		ui.PrintError("Failed to remove influencer", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("No longer tracking " + platformName + "/" + username)
}

func runInfluencersDue(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	due, err := store.DueInfluencers(ctx, time.Now())
	if err != nil {
		ui.PrintError("Failed to list due influencers", err.Error())
		os.Exit(1)
	}

	if len(due) == 0 {
		ui.PrintSuccess("Nothing due, all influencers are fresh")
		return
	}

	ui.PrintHighlight(fmt.Sprintf("Due for Collection (%d)", len(due)))
	fmt.Println()
	for i, inf := range due {
		printInfluencer(i+1, inf)
	}
}

func runInfluencersPosts(cmd *cobra.Command, args []string) {
	platformName := strings.ToLower(strings.TrimSpace(args[0]))
	username := strings.TrimSpace(args[1])
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	inf, err := store.InfluencerByHandle(ctx, platformName, username)
	if err != nil {
		ui.PrintError("Influencer not found", platformName+"/"+username)
		os.Exit(1)
	}

	posts, err := store.PostsByInfluencer(ctx, inf.ID, postsListLimit)
	if err != nil {
		ui.PrintError("Failed to list posts", err.Error())
		os.Exit(1)
	}

	if len(posts) == 0 {
		ui.PrintInfo("No stored posts", "collect them with 'socialharvest collect posts'")
		return
	}

	ui.PrintHighlight(fmt.Sprintf("Stored Posts for %s/%s", platformName, username))
	fmt.Println()
	for i, post := range posts {
		fmt.Printf("%d. %s\n", i+1, post.ExternalID)
		if storeID, err := store.PostIDByExternalID(ctx, platformName, post.ExternalID); err == nil {
			fmt.Printf("   Store ID: %s\n", ui.Dim(storeID))
		}
		fmt.Printf("   Posted: %s\n", ui.FormatTimestamp(post.PostedAt))
		fmt.Printf("   Engagement: %s likes, %s comments\n",
			ui.FormatCount(post.LikesCount), ui.FormatCount(post.CommentsCount))
		if post.Content != "" {
			fmt.Printf("   %s\n", ui.Dim(truncate(post.Content, 70)))
		}
		fmt.Println()
	}
}

func printInfluencer(index int, inf *platform.Influencer) {
	name := inf.Username
	if inf.DisplayName != "" {
		name = fmt.Sprintf("%s (%s)", inf.Username, inf.DisplayName)
	}
	fmt.Printf("%d. %s/%s\n", index, inf.Platform, name)
	fmt.Printf("   Interval: every %dh\n", inf.CollectionFrequencyHours)
	fmt.Printf("   Last collected: %s\n", ui.FormatTimestamp(inf.LastCollected))
	fmt.Println()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
