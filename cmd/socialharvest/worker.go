package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"socialharvest/internal/worker"
	"socialharvest/pkg/ui"
)

var (
	// Worker command flags
	workerCount     int
	workerInterval  time.Duration
	workerPostLimit int
	workerAccount   string
	drainMax        int
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run collections in the background",
	Long: `Run collections in the background instead of one at a time.

The daemon polls the store on an interval: tasks whose retry time has
arrived are processed first, then profile and posts collections are
enqueued for every influencer whose collection interval has elapsed.
Jobs run on a bounded worker pool so one slow platform cannot stall
the others.`,
}

// workerRunCmd represents the worker run command
var workerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collection daemon until interrupted",
	Example: `  # Run with the defaults (4 workers, one poll per minute)
  socialharvest worker run

  # Poll every 5 minutes with 8 workers, 100 posts per sweep
  socialharvest worker run --workers 8 --interval 5m --limit 100`,
	Run: runWorkerRun,
}

// workerDrainCmd represents the worker drain command
var workerDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Process due tasks once and exit",
	Long: `Process tasks that are pending or due for a retry, then exit.

Useful from cron or a systemd timer when a long-running daemon is not
wanted.`,
	Run: runWorkerDrain,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerRunCmd)
	workerCmd.AddCommand(workerDrainCmd)

	workerCmd.PersistentFlags().StringVarP(&workerAccount, "account", "a", "", "use specific stored account")
	workerRunCmd.Flags().IntVarP(&workerCount, "workers", "w", 4, "number of concurrent collection workers")
	workerRunCmd.Flags().DurationVar(&workerInterval, "interval", worker.DefaultPollInterval, "pause between schedule polls")
	workerRunCmd.Flags().IntVarP(&workerPostLimit, "limit", "n", 50, "posts collected per influencer per sweep")
	workerDrainCmd.Flags().IntVar(&drainMax, "max", 50, "maximum number of tasks to process")
}

func runWorkerRun(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := loadConfig()
	applyStoredCredentials(cfg, workerAccount)

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		ui.PrintError("Failed to initialize engine", err.Error())
		os.Exit(1)
	}
	defer eng.Close()

	pool := worker.NewPool(workerCount, eng.orch, eng.log)
	daemon := worker.NewDaemon(pool, eng.store, eng.orch, workerInterval, workerPostLimit, eng.log)

	ui.PrintInfo("Workers", fmt.Sprintf("%d", workerCount))
	ui.PrintInfo("Poll interval", workerInterval.String())
	ui.PrintInfo("Storage", cfg.Storage.Path)
	ui.PrintSuccess("Collection daemon started, press Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() {
		errCh <- daemon.Run(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		eng.log.InfoWithFields("signal received, shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
		ui.PrintInfo("Shutting down", "letting running collections finish")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			ui.PrintError("Collection daemon stopped", err.Error())
			os.Exit(1)
		}
	}

	ui.PrintSuccess("Collection daemon stopped")
}

func runWorkerDrain(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg := loadConfig()
	applyStoredCredentials(cfg, workerAccount)

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		ui.PrintError("Failed to initialize engine", err.Error())
		os.Exit(1)
	}
	defer eng.Close()

	// Each round claims a fresh batch of due tasks, so loop until a
	// round comes back empty or the budget is spent.
	total := 0
	for total < drainMax {
		n, err := eng.orch.ProcessPending(ctx, drainMax-total)
		if err != nil {
			ui.PrintError("Draining tasks failed", err.Error())
			os.Exit(1)
		}
		if n == 0 {
			break
		}
		total += n
	}

	if total == 0 {
		ui.PrintSuccess("No tasks due")
		return
	}
	ui.PrintCheck(fmt.Sprintf("Processed %d tasks", total))
}
