package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"socialharvest/pkg/auth"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage platform credentials",
	Long: `Manage stored platform credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (SOCIALHARVEST_<PLATFORM>_*)

Instagram uses session cookies; YouTube, TikTok and Twitter use access
tokens. Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login <platform> [username]",
	Short: "Store platform credentials securely",
	Long: `Store credentials for a platform in the system keychain or an
encrypted file.

For Instagram you will be prompted for the sessionid and csrftoken
cookie values; for other platforms, for an API access token. Run
'socialharvest auth guide <platform>' for a walkthrough of where to
find them.`,
	Example: `  # Interactive Instagram login
  socialharvest auth login instagram

  # Store a YouTube API token under a named account
  socialharvest auth login youtube mychannel`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <platform> [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials for a platform.

If no username is provided, you will be shown a list of stored accounts
to choose from.`,
	Example: `  # Interactive logout
  socialharvest auth logout instagram

  # Logout a specific account
  socialharvest auth logout instagram myaccount`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts across platforms with sanitized credentials.`,
	Run:   runAuthList,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide <platform>",
	Short: "Show where to find a platform's credentials",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowSessionGuide(strings.ToLower(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(guideCmd)
}

// cookiePlatform reports whether a platform authenticates with session
// cookies rather than an access token.
func cookiePlatform(name string) bool {
	return name == platform.Instagram
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	platformName := strings.ToLower(strings.TrimSpace(args[0]))
	var username string
	if len(args) > 1 {
		username = args[1]
	}

	// Interactive prompts
	reader := bufio.NewReader(os.Stdin)

	// Show where the credentials live first
	auth.ShowSessionGuide(platformName)

	fmt.Print("Ready to enter your credentials? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Printf("\nRun 'socialharvest auth login %s' when you're ready.\n", platformName)
		return
	}

	fmt.Println()

	if username == "" {
		fmt.Printf("📱 %s username: ", platformName)
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}

	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	// Check if the account already exists
	if existing, _ := manager.Retrieve(platformName, username); existing != nil {
		fmt.Printf("\n⚠️  Account '%s/%s' already exists. Update credentials? (y/N): ", platformName, username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	creds := &auth.Credentials{
		Platform:     platformName,
		Username:     username,
		LastModified: time.Now(),
	}

	if cookiePlatform(platformName) {
		promptCookieCredentials(reader, creds)
	} else {
		promptTokenCredentials(reader, creds)
	}

	// Optional: user agent override
	fmt.Print("\n🌐 User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	creds.UserAgent = strings.TrimSpace(userAgent)

	// Show what we're about to store
	sanitized := auth.SanitizeCredentials(creds)
	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Platform: %s\n", creds.Platform)
	fmt.Printf("   Username: %s\n", creds.Username)
	if creds.SessionID != "" {
		fmt.Printf("   Session ID: %s\n", sanitized.SessionID)
		fmt.Printf("   CSRF Token: %s\n", sanitized.CSRFToken)
	}
	if creds.AccessToken != "" {
		fmt.Printf("   Access Token: %s\n", sanitized.AccessToken)
	}
	if creds.UserAgent != "" {
		fmt.Printf("   User Agent: %s\n", creds.UserAgent)
	}

	// Store credentials
	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	fmt.Println("\n🎉 Credentials stored successfully!")
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s/%s", platformName, username))

	fmt.Println("\n🔒 Your credentials are kept in the system keychain when one is")
	fmt.Println("   available, otherwise in an encrypted file.")

	fmt.Println("\n📖 Quick Start:")
	fmt.Printf("   $ socialharvest collect profile %s <username>\n", platformName)
	fmt.Printf("   $ socialharvest collect posts %s <username> --limit 50\n", platformName)
	fmt.Println("\n   Use a specific account:")
	fmt.Printf("   $ socialharvest collect profile %s <username> --account %s\n", platformName, username)
	fmt.Println("\n⚠️  Never share your credentials or config files!")
}

// promptCookieCredentials reads and validates session cookie values for
// cookie-authenticated platforms.
func promptCookieCredentials(reader *bufio.Reader, creds *auth.Credentials) {
	fmt.Println("\n🔐 Enter your cookie values (they will be hidden as you type):")
	fmt.Println()

	for {
		fmt.Print("sessionid cookie value: ")
		sessionID, err := readPassword()
		if err != nil {
			ui.PrintError("Failed to read session ID", err.Error())
			os.Exit(1)
		}

		// Basic shape check
		if len(sessionID) < 20 || !strings.Contains(sessionID, "%") {
			fmt.Println("\n❌ That doesn't look like a valid sessionid.")
			fmt.Println("   It should be a long string containing % symbols.")
			fmt.Println("   Example: 12345678%3Aabcdef%3A26%3A...")
			if !promptRetry(reader) {
				os.Exit(1)
			}
			continue
		}
		creds.SessionID = sessionID
		break
	}

	for {
		fmt.Print("\ncsrftoken cookie value: ")
		csrfToken, err := readPassword()
		if err != nil {
			ui.PrintError("Failed to read CSRF token", err.Error())
			os.Exit(1)
		}

		if len(csrfToken) < 20 || len(csrfToken) > 50 {
			fmt.Println("\n❌ That doesn't look like a valid csrftoken.")
			fmt.Println("   It should be around 32 characters long.")
			fmt.Println("   Example: YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy")
			if !promptRetry(reader) {
				os.Exit(1)
			}
			continue
		}
		creds.CSRFToken = csrfToken
		break
	}
	fmt.Println()
}

// promptTokenCredentials reads and validates an API access token for
// token-authenticated platforms.
func promptTokenCredentials(reader *bufio.Reader, creds *auth.Credentials) {
	fmt.Println("\n🔐 Enter your access token (it will be hidden as you type):")
	fmt.Println()

	for {
		fmt.Print("access token: ")
		token, err := readPassword()
		if err != nil {
			ui.PrintError("Failed to read access token", err.Error())
			os.Exit(1)
		}

		if len(token) < 10 {
			fmt.Println("\n❌ That doesn't look like a valid access token.")
			fmt.Println("   Tokens are long opaque strings from the platform's developer console.")
			if !promptRetry(reader) {
				os.Exit(1)
			}
			continue
		}
		creds.AccessToken = token
		break
	}
	fmt.Println()
}

func promptRetry(reader *bufio.Reader) bool {
	fmt.Print("\nTry again? (Y/n): ")
	retry, _ := reader.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(retry)) != "n"
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	platformName := strings.ToLower(strings.TrimSpace(args[0]))

	// Username provided as argument
	if len(args) > 1 {
		username := args[1]
		if err := manager.Delete(platformName, username); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess(fmt.Sprintf("Account removed: %s/%s", platformName, username))
		return
	}

	// List this platform's accounts and ask which to remove
	all, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	var accounts []*auth.Credentials
	for _, creds := range all {
		if creds.Platform == platformName {
			accounts = append(accounts, creds)
		}
	}
	if len(accounts) == 0 {
		ui.PrintError("No stored accounts found for " + platformName)
		return
	}

	reader := bufio.NewReader(os.Stdin)

	if len(accounts) == 1 {
		// Only one account, confirm deletion
		creds := accounts[0]
		fmt.Printf("Remove account '%s/%s'? (y/N): ", creds.Platform, creds.Username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}

		if err := manager.Delete(creds.Platform, creds.Username); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess(fmt.Sprintf("Account removed: %s/%s", creds.Platform, creds.Username))
		return
	}

	// Multiple accounts, show menu
	fmt.Println("Select account to remove:")
	for i, creds := range accounts {
		fmt.Printf("  %d. %s\n", i+1, creds.Username)
	}
	fmt.Printf("  0. Cancel\n\n")

	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice > 0 && choice <= len(accounts):
		creds := accounts[choice-1]
		if err := manager.Delete(creds.Platform, creds.Username); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess(fmt.Sprintf("Account removed: %s/%s", creds.Platform, creds.Username))
	default:
		ui.PrintError("Invalid choice")
		os.Exit(1)
	}
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'socialharvest auth login <platform>' to add one")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, creds := range accounts {
		sanitized := auth.SanitizeCredentials(creds)
		fmt.Printf("%d. %s/%s\n", i+1, sanitized.Platform, sanitized.Username)
		if sanitized.SessionID != "" {
			fmt.Printf("   Session ID: %s\n", sanitized.SessionID)
		}
		if sanitized.CSRFToken != "" {
			fmt.Printf("   CSRF Token: %s\n", sanitized.CSRFToken)
		}
		if sanitized.AccessToken != "" {
			fmt.Printf("   Access Token: %s\n", sanitized.AccessToken)
		}
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	// Try to read without echo
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after password
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
