package auth

import (
	"fmt"
	"strings"
)

// ShowSessionGuide displays step-by-step instructions for obtaining the
// credentials a platform needs.
func ShowSessionGuide(platformName string) {
	switch platformName {
	case "instagram":
		showInstagramCookieGuide()
	default:
		showAccessTokenGuide(platformName)
	}
}

func showInstagramCookieGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 INSTAGRAM SESSION SETUP")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("Instagram collections authenticate with your browser session cookies.")
	fmt.Println("Grab them like this:")
	fmt.Println()

	fmt.Println("🌐 STEP 1: Log in")
	fmt.Println("   - Open https://www.instagram.com in your browser and sign in")
	fmt.Println("   - Prefer a secondary account over your main one")
	fmt.Println()

	fmt.Println("🔧 STEP 2: Open the cookie inspector")
	fmt.Println("   • Chrome/Edge/Brave: F12 → Application tab → Cookies")
	fmt.Println("   • Firefox: F12 → Storage tab → Cookies")
	fmt.Println("   • Safari: enable the Develop menu first, then Cmd+Option+I")
	fmt.Println()

	fmt.Println("🍪 STEP 3: Select https://www.instagram.com and copy two values:")
	fmt.Println()
	fmt.Println("   sessionid   long URL-encoded string, e.g. 12345678%3Aabcdef...")
	fmt.Println("   csrftoken   32-character string, e.g. YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy")
	fmt.Println()

	fmt.Println("💡 TIPS:")
	fmt.Println("   • Copy everything after the = sign, without quotes or semicolons")
	fmt.Println("   • Sessions expire; rerun login when collections start failing with auth errors")
	fmt.Println()

	fmt.Println("⚠️  These cookies grant full account access. They are stored encrypted")
	fmt.Println("   and never logged, but treat them like a password.")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

func showAccessTokenGuide(platformName string) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("📚 %s TOKEN SETUP\n", strings.ToUpper(platformName))
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Printf("Collections on %s authenticate with an API access token.\n", platformName)
	fmt.Println()
	fmt.Println("🔑 Create one in the platform's developer console, then pass it to")
	fmt.Println("   login with --access-token, or export it as:")
	fmt.Println()
	fmt.Printf("   %sACCESS_TOKEN=<token>\n", envPrefix(platformName))
	fmt.Println()
	fmt.Println("⚠️  Tokens are stored encrypted and never logged.")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickSessionHint shows a one-line reminder for experienced users.
func ShowQuickSessionHint(platformName string) {
	if platformName == "instagram" {
		fmt.Println("\n🍪 Quick: F12 → Application/Storage → Cookies → instagram.com → copy sessionid and csrftoken")
		fmt.Println("   Type 'help' for the full walkthrough")
		return
	}
	fmt.Printf("\n🔑 Quick: create an API token in the %s developer console and pass --access-token\n", platformName)
}
