package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"socialharvest/pkg/config"
	"socialharvest/pkg/logger"
	"socialharvest/pkg/proxy"
	"socialharvest/pkg/ui"
)

// proxiesCmd represents the proxies command
var proxiesCmd = &cobra.Command{
	Use:     "proxies",
	Aliases: []string{"proxy"},
	Short:   "Inspect the configured proxy pool",
	Long: `Inspect the proxy pool configured under the 'proxy' section of the
configuration file.

The engine scores proxies while collecting: failures lower a proxy's
success rate until it is rotated away from, and a proxy that keeps
failing is deactivated for the rest of the run.`,
}

// proxiesListCmd represents the proxies list command
var proxiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured proxies",
	Run:   runProxiesList,
}

// proxiesCheckCmd represents the proxies check command
var proxiesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Health-check every configured proxy",
	Long: `Send a request through every configured proxy to the configured
health-check URL and report reachability and latency.`,
	Run: runProxiesCheck,
}

func init() {
	rootCmd.AddCommand(proxiesCmd)
	proxiesCmd.AddCommand(proxiesListCmd)
	proxiesCmd.AddCommand(proxiesCheckCmd)
}

func loadProxyPool() (*config.Config, *proxy.Pool) {
	cfg := loadConfig()
	return cfg, proxy.New(&cfg.Proxy, logger.GetLogger())
}

func runProxiesList(cmd *cobra.Command, args []string) {
	_, pool := loadProxyPool()
	if pool.Len() == 0 {
		ui.PrintInfo("No proxies configured", "requests go out directly; add entries under 'proxy:' in the config file")
		return
	}

	records := pool.Snapshot()
	ui.PrintHighlight(fmt.Sprintf("Configured Proxies (%d)", len(records)))
	fmt.Println()
	for i, rec := range records {
		fmt.Printf("%d. %s\n", i+1, rec.ID)
		protocol := rec.Protocol
		if protocol == "" {
			protocol = proxy.ProtocolHTTP
		}
		fmt.Printf("   Protocol: %s\n", protocol)
		if rec.Username != "" {
			fmt.Printf("   Auth: %s\n", rec.Username)
		}
		fmt.Printf("   Daily limit: %d requests\n", rec.DailyLimit)
		fmt.Println()
	}
}

func runProxiesCheck(cmd *cobra.Command, args []string) {
	cfg, pool := loadProxyPool()
	if pool.Len() == 0 {
		ui.PrintInfo("No proxies configured", "add entries under 'proxy:' in the config file")
		return
	}

	checker := proxy.NewHealthChecker(cfg.Proxy.HealthCheckURL, cfg.Proxy.HealthCheckTimeout())
	ui.PrintInfo("Health check", cfg.Proxy.HealthCheckURL)
	fmt.Println()

	ctx := context.Background()
	healthy := 0
	for _, rec := range pool.Snapshot() {
		responseTime, err := checker.Check(ctx, rec.URL())
		if err != nil {
			ui.PrintCross(fmt.Sprintf("%s unreachable: %v", rec.ID, err))
			continue
		}
		healthy++
		ui.PrintCheck(fmt.Sprintf("%s responded in %.0fms", rec.ID, responseTime))
	}

	fmt.Println()
	if healthy == pool.Len() {
		ui.PrintSuccess(fmt.Sprintf("All %d proxies healthy", healthy))
	} else {
		ui.PrintWarning(fmt.Sprintf("%d of %d proxies healthy", healthy, pool.Len()))
		os.Exit(1)
	}
}
