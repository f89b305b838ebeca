package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"socialharvest/pkg/task"
	"socialharvest/pkg/ui"
)

var (
	// Task command flags
	taskStatus string
	taskLimit  int
)

// tasksCmd represents the tasks command
var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "Inspect the collection task queue",
	Long: `Inspect the durable task queue.

Every collection runs as a task. Failed tasks with retries left are
rescheduled with exponential backoff; 'socialharvest worker run' or
'socialharvest worker drain' picks them up when they come due.`,
}

// tasksListCmd represents the tasks list command
var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tasks",
	Long:  `List recent tasks, newest first, optionally filtered by status.`,
	Example: `  # List the 20 most recent tasks
  socialharvest tasks list

  # List failed tasks
  socialharvest tasks list --status failed --limit 50`,
	Run: runTasksList,
}

// tasksShowCmd represents the tasks show command
var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task in full",
	Args:  cobra.ExactArgs(1),
	Run:   runTasksShow,
}

// tasksCancelCmd represents the tasks cancel command
var tasksCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a pending or scheduled task",
	Long: `Cancel a task that has not finished. Cancelled tasks are never
picked up by the worker.`,
	Args: cobra.ExactArgs(1),
	Run:  runTasksCancel,
}

// tasksStatusCmd represents the tasks status command
var tasksStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts by status",
	Run:   runTasksStatus,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
	tasksCmd.AddCommand(tasksCancelCmd)
	tasksCmd.AddCommand(tasksStatusCmd)

	tasksListCmd.Flags().StringVar(&taskStatus, "status", "", "filter by status (pending, running, completed, failed, retry, cancelled)")
	tasksListCmd.Flags().IntVarP(&taskLimit, "limit", "n", 20, "maximum number of tasks to list")
}

func runTasksList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	tasks, err := store.ListTasks(ctx, task.Status(strings.ToLower(taskStatus)), taskLimit)
	if err != nil {
		ui.PrintError("Failed to list tasks", err.Error())
		os.Exit(1)
	}

	if len(tasks) == 0 {
		ui.PrintInfo("No tasks", "collections record their tasks here as they run")
		return
	}

	ui.PrintHighlight("Collection Tasks")
	fmt.Println()
	for _, t := range tasks {
		printTaskLine(t)
	}
}

func runTasksShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	t, err := store.Task(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		ui.PrintError("Task not found", args[0])
		os.Exit(1)
	}

	ui.PrintHighlight("Task " + t.ID)
	fmt.Println()
	ui.PrintInfo("Type", string(t.Type))
	ui.PrintInfo("Status", string(t.Status))
	ui.PrintInfo("Platform", t.Platform)
	ui.PrintInfo("Influencer", t.InfluencerID)
	if t.TargetID != "" {
		ui.PrintInfo("Target", t.TargetID)
	}
	ui.PrintInfo("Priority", fmt.Sprintf("%d", t.Priority))
	ui.PrintInfo("Created", ui.FormatTimestamp(t.CreatedAt))
	if !t.StartedAt.IsZero() {
		ui.PrintInfo("Started", ui.FormatTimestamp(t.StartedAt))
	}
	if !t.CompletedAt.IsZero() {
		ui.PrintInfo("Completed", ui.FormatTimestamp(t.CompletedAt))
		ui.PrintInfo("Duration", ui.FormatDuration(t.Duration))
	}
	if t.WorkerID != "" {
		ui.PrintInfo("Worker", t.WorkerID)
	}
	if t.ItemsCollected > 0 || t.Status == task.StatusCompleted {
		ui.PrintInfo("Items collected", fmt.Sprintf("%d", t.ItemsCollected))
	}
	if t.RetryCount > 0 {
		ui.PrintInfo("Retries", fmt.Sprintf("%d of %d", t.RetryCount, t.MaxRetries))
	}
	if !t.NextRetryAt.IsZero() && t.Status == task.StatusRetry {
		ui.PrintInfo("Next attempt", ui.FormatTimestamp(t.NextRetryAt))
	}
	if t.ErrorMessage != "" {
		ui.PrintInfo("Last error", t.ErrorMessage)
	}
}

func runTasksCancel(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	t, err := store.Task(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		ui.PrintError("Task not found", args[0])
		os.Exit(1)
	}

	if err := t.Cancel(); err != nil {
		ui.PrintError("Cannot cancel task", err.Error())
		os.Exit(1)
	}
	if err := store.UpdateTask(ctx, t); err != nil {
		ui.PrintError("Failed to cancel task", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Task cancelled: " + t.ID)
}

func runTasksStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	_, store := openStore(ctx)
	defer store.Close()

	counts, err := store.TaskCounts(ctx)
	if err != nil {
		ui.PrintError("Failed to read queue status", err.Error())
		os.Exit(1)
	}

	due, err := store.DueTasks(ctx, 1)
	if err != nil {
		ui.PrintError("Failed to read queue status", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Task Queue")
	fmt.Println()
	total := 0
	for _, status := range []task.Status{
		task.StatusPending, task.StatusRunning, task.StatusRetry,
		task.StatusCompleted, task.StatusFailed, task.StatusCancelled,
	} {
		n := counts[status]
		total += n
		fmt.Printf("  %-10s %d\n", status, n)
	}
	fmt.Printf("  %-10s %d\n", "total", total)
	fmt.Println()

	if len(due) > 0 {
		ui.PrintInfo("Work waiting", "run 'socialharvest worker drain' to process it")
	} else {
		ui.PrintSuccess("Queue is idle")
	}
}

func printTaskLine(t *task.Task) {
	glyph := ui.Dim("·")
	switch t.Status {
	case task.StatusCompleted:
		glyph = ui.Green("✓")
	case task.StatusFailed, task.StatusCancelled:
		glyph = ui.Red("✗")
	case task.StatusRunning:
		glyph = ui.Cyan("▸")
	case task.StatusRetry:
		glyph = ui.Yellow("↻")
	}

	fmt.Printf("%s %s %s/%s", glyph, t.ID[:8], t.Platform, t.Type)
	switch t.Status {
	case task.StatusCompleted:
		fmt.Printf("  %d items in %s", t.ItemsCollected, ui.FormatDuration(t.Duration))
	case task.StatusRetry:
		fmt.Printf("  retry %d/%d at %s", t.RetryCount, t.MaxRetries, t.NextRetryAt.Local().Format("15:04:05"))
	case task.StatusFailed:
		fmt.Printf("  %s", truncate(t.ErrorMessage, 50))
	}
	fmt.Printf("  %s\n", ui.Dim(ui.FormatDuration(time.Since(t.CreatedAt))+" ago"))
}
