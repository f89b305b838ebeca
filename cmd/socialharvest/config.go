package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"socialharvest/pkg/config"
	"socialharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage SocialHarvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SOCIALHARVEST_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'socialharvest.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values

Sensitive values like credentials will be masked for security.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Quota and delay ranges
  - Proxy entries
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	// Determine config file path
	configPath := configFile
	if configPath == "" {
		configPath = "socialharvest.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	// Create example configuration
	exampleConfig := `# SocialHarvest Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with SOCIALHARVEST_
# For example: SOCIALHARVEST_INSTAGRAM_SESSION_ID, SOCIALHARVEST_MAX_CONCURRENT

# Engine-wide execution settings
engine:
  # Maximum collections running at the same time
  max_concurrent: 10

  # Attempt budget per request (first try plus retries)
  max_retries: 3

  # Base delay for exponential backoff between attempts
  retry_delay_ms: 1000

  # Timeout for a single upstream call
  request_timeout_ms: 30000

  # Longest the engine will sleep waiting for a rate-limit window
  # to reopen before giving up (5 minutes)
  max_rate_limit_wait_ms: 300000

  # Randomized pause between result pages
  page_delay_min_ms: 1000
  page_delay_max_ms: 3000

# Per-platform quotas, collection interval and credentials.
# Prefer 'socialharvest auth login' over credentials in this file.
platforms:
  instagram:
    requests_per_hour: 200
    requests_per_day: 4000
    collection_interval_hours: 24
    # session_id: ""
    # csrf_token: ""
    # user_agent: ""
  youtube:
    requests_per_hour: 1000
    requests_per_day: 50000
    collection_interval_hours: 24
    # access_token: ""

# Proxy pool. Leave entries empty to send requests directly.
proxy:
  entries: []
  # entries:
  #   - host: proxy1.example.com
  #     port: 8080
  #     protocol: http
  #     username: user
  #     password: pass
  #     daily_limit: 1000
  health_check_url: "https://httpbin.org/ip"
  health_check_timeout_ms: 10000
  default_daily_limit: 1000

# Request pacing, smooths bursts below the hourly quota
pacing:
  requests_per_second: 2.0
  burst: 1

# Storage configuration
storage:
  # SQLite database holding influencers, content and tasks
  path: "./socialharvest.db"

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log format: console, json
  format: "console"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

	// Write configuration file
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store credentials with 'socialharvest auth login <platform>'")
	fmt.Println("2. Run 'socialharvest config validate' to check the configuration")
	fmt.Println("3. Track an influencer with 'socialharvest influencers add'")
	fmt.Println("4. Start collecting with 'socialharvest collect' or 'socialharvest worker run'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask credentials before display. The platforms map and proxy
	// entries are rebuilt so the loaded configuration is not mutated.
	displayCfg := *cfg
	displayCfg.Platforms = make(map[string]config.PlatformConfig, len(cfg.Platforms))
	for name, pc := range cfg.Platforms {
		pc.SessionID = maskValue(pc.SessionID)
		pc.CSRFToken = maskValue(pc.CSRFToken)
		pc.AccessToken = maskValue(pc.AccessToken)
		displayCfg.Platforms[name] = pc
	}
	displayCfg.Proxy.Entries = make([]config.ProxyEntry, len(cfg.Proxy.Entries))
	for i, entry := range cfg.Proxy.Entries {
		entry.Password = maskValue(entry.Password)
		displayCfg.Proxy.Entries[i] = entry
	}

	// Convert to YAML for display
	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	// Show configuration sources
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (SOCIALHARVEST_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
}

func maskValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 8 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "***"
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	// Check if config file is specified
	if configFile == "" {
		// Try to find config file in common locations
		possiblePaths := []string{
			"socialharvest.yaml",
			".socialharvest.yaml",
			".socialharvest.yml",
			filepath.Join(os.Getenv("HOME"), ".socialharvest.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "socialharvest", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag or create one with 'socialharvest config init'")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	// Try to load and validate configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	// Perform additional checks beyond structural validation
	warnings := []string{}
	errors := []string{}

	// Check credentials
	credentialed := 0
	for name, pc := range cfg.Platforms {
		if pc.SessionID != "" || pc.AccessToken != "" {
			credentialed++
		} else {
			warnings = append(warnings, fmt.Sprintf("no credentials configured for %s (stored accounts are applied at run time)", name))
		}
	}

	// Check storage path
	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create storage directory: %v", err))
		}
	}

	// Check logging file path
	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	// Check value ranges
	if cfg.Engine.MaxConcurrent > 100 {
		warnings = append(warnings, "max_concurrent above 100 invites platform blocks")
	}
	if cfg.Pacing.RequestsPerSecond > 10 {
		warnings = append(warnings, "pacing above 10 requests/second invites platform blocks")
	}
	for _, entry := range cfg.Proxy.Entries {
		if entry.Username != "" && entry.Password == "" {
			warnings = append(warnings, fmt.Sprintf("proxy %s:%d has a username but no password", entry.Host, entry.Port))
		}
	}

	// Display results
	if len(errors) > 0 {
		ui.PrintError("Configuration has errors")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	// Show summary
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Platforms configured: %d (%d with credentials)\n", len(cfg.Platforms), credentialed)
	fmt.Printf("  Proxy entries: %d\n", len(cfg.Proxy.Entries))
	fmt.Printf("  Max concurrent collections: %d\n", cfg.Engine.MaxConcurrent)
	fmt.Printf("  Request retries: %d\n", cfg.Engine.MaxRetries)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Path)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
