package ui

import (
	"fmt"
	"time"
)

// PrintCheck prints a completed line with a green check mark
func PrintCheck(msg string) {
	if quietMode {
		return
	}
	fmt.Printf("%s %s\n", Green("✓"), msg)
}

// PrintCross prints a failed line with a red cross. Failures print even
// in quiet mode.
func PrintCross(msg string) {
	fmt.Printf("%s %s\n", Red("✗"), msg)
}

// PrintRateLimitNotice reports a closed rate-limit window and how long
// until it reopens
func PrintRateLimitNotice(waitSeconds int) {
	if quietMode {
		return
	}
	wait := time.Duration(waitSeconds) * time.Second
	fmt.Printf("%s Rate limit reached. Window reopens in %s\n", Yellow("⚠"), FormatDuration(wait))
}

// FormatDuration formats a duration in a compact human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatCount renders large engagement counts the way platforms
// abbreviate them
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatTimestamp renders a stored timestamp, or a dash when it was
// never set
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
