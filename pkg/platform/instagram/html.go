package instagram

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"socialharvest/pkg/errors"
)

var (
	followersPattern = regexp.MustCompile(`"edge_followed_by":\{"count":(\d+)\}`)
	followingPattern = regexp.MustCompile(`"edge_follow":\{"count":(\d+)\}`)
	postCountPattern = regexp.MustCompile(`"edge_owner_to_timeline_media":\{"count":(\d+)\}`)

	csrfPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"csrf_token":"([^"]+)"`),
		regexp.MustCompile(`csrftoken=([^;"]+)`),
		regexp.MustCompile(`"token":"([^"]+)"`),
	}
)

// extractCSRFToken pulls the CSRF token out of a rendered page. The token
// moves between embedded config JSON and the Set-Cookie mirror across app
// versions, so several patterns are tried in order.
func extractCSRFToken(body string) string {
	for _, pattern := range csrfPatterns {
		if m := pattern.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

// ldJSONPerson is the schema.org Person block public profile pages embed.
type ldJSONPerson struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

// parseProfileHTML scrapes a public profile page into the intermediate
// profile map. The ld+json Person block supplies identity fields, counts
// come from the embedded shared-data JSON, and OpenGraph meta tags fill
// whatever is left.
func parseProfileHTML(body, username string) (map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("parsing profile page: %s", err),
		}
	}

	raw := map[string]interface{}{
		"id":       username,
		"username": username,
	}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var person ldJSONPerson
		if err := json.Unmarshal([]byte(s.Text()), &person); err != nil {
			return true
		}
		if person.Type != "Person" {
			return true
		}
		if person.Name != "" {
			raw["display_name"] = person.Name
		}
		if person.Description != "" {
			raw["bio"] = person.Description
		}
		if person.Image != "" {
			raw["profile_image_url"] = person.Image
		}
		return false
	})

	if m := followersPattern.FindStringSubmatch(body); m != nil {
		raw["follower_count"] = mustParseInt(m[1])
	}
	if m := followingPattern.FindStringSubmatch(body); m != nil {
		raw["following_count"] = mustParseInt(m[1])
	}
	if m := postCountPattern.FindStringSubmatch(body); m != nil {
		raw["post_count"] = mustParseInt(m[1])
	}

	raw["verified"] = strings.Contains(body, `"is_verified":true`)
	raw["business_account"] = strings.Contains(body, `"is_business_account":true`)

	if _, ok := raw["profile_image_url"]; !ok {
		if content, exists := doc.Find(`meta[property="og:image"]`).Attr("content"); exists {
			raw["profile_image_url"] = content
		}
	}
	if _, ok := raw["display_name"]; !ok {
		if content, exists := doc.Find(`meta[property="og:title"]`).Attr("content"); exists {
			raw["display_name"] = strings.TrimSpace(strings.SplitN(content, "(", 2)[0])
		}
	}

	return raw, nil
}

func mustParseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
