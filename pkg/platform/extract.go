package platform

import (
	"regexp"
	"strings"
)

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
)

// ExtractHashtags returns the lowercased hashtag words in text, without
// the leading marker.
func ExtractHashtags(text string) []string {
	return extract(hashtagPattern, text)
}

// ExtractMentions returns the lowercased mentioned usernames in text,
// without the leading marker.
func ExtractMentions(text string) []string {
	return extract(mentionPattern, text)
}

func extract(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringSubmatch(strings.ToLower(text), -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
