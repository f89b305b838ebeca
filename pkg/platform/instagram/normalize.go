package instagram

import (
	"strconv"
	"time"

	"socialharvest/pkg/errors"
	"socialharvest/pkg/platform"
)

// NormalizeProfile maps a raw profile payload onto the shared profile
// record. The payload may come from the JSON endpoint, the HTML fallback
// parser, or an external caller replaying stored raw data, so every field
// read is type tolerant.
func (c *Collector) NormalizeProfile(raw map[string]interface{}) (*platform.Profile, error) {
	if len(raw) == 0 {
		return nil, &errors.Error{Type: errors.ErrorTypeParsing, Message: "empty profile payload"}
	}

	username := rawString(raw, "username")
	externalID := rawString(raw, "id", "external_id")
	if externalID == "" {
		externalID = username
	}
	if externalID == "" {
		return nil, &errors.Error{Type: errors.ErrorTypeParsing, Message: "profile payload has no id or username"}
	}

	displayName := rawString(raw, "display_name", "full_name", "name")
	if displayName == "" {
		displayName = username
	}

	return &platform.Profile{
		ExternalID:      externalID,
		Username:        username,
		DisplayName:     displayName,
		Bio:             rawString(raw, "bio", "biography"),
		ProfileImageURL: rawString(raw, "profile_image_url", "profile_pic_url_hd", "profile_pic_url"),
		ProfileURL:      ProfilePageURL(WebBaseURL, username),
		Verified:        rawBool(raw, "verified", "is_verified"),
		BusinessAccount: rawBool(raw, "business_account", "is_business_account"),
		FollowerCount:   rawInt(raw, "follower_count", "followers_count"),
		FollowingCount:  rawInt(raw, "following_count", "follows_count"),
		PostCount:       rawInt(raw, "post_count", "media_count"),
		Location:        rawString(raw, "location"),
		ExternalURL:     rawString(raw, "external_url", "website"),
		Raw:             raw,
	}, nil
}

// NormalizePost maps a raw post payload onto the shared post record.
// Hashtags and mentions are extracted from the caption unless the payload
// already carries them.
func (c *Collector) NormalizePost(raw map[string]interface{}) (*platform.Post, error) {
	if len(raw) == 0 {
		return nil, &errors.Error{Type: errors.ErrorTypeParsing, Message: "empty post payload"}
	}

	externalID := rawString(raw, "id", "shortcode")
	if externalID == "" {
		return nil, &errors.Error{Type: errors.ErrorTypeParsing, Message: "post payload has no id or shortcode"}
	}

	caption := rawString(raw, "caption", "content", "text")

	hashtags := rawStrings(raw, "hashtags")
	if hashtags == nil {
		hashtags = platform.ExtractHashtags(caption)
	}
	mentions := rawStrings(raw, "mentions")
	if mentions == nil {
		mentions = platform.ExtractMentions(caption)
	}

	mediaURLs := rawStrings(raw, "media_urls")
	if mediaURLs == nil {
		mediaURLs = []string{}
		if u := rawString(raw, "media_url", "display_url"); u != "" {
			mediaURLs = append(mediaURLs, u)
		}
	}

	return &platform.Post{
		ExternalID:    externalID,
		Content:       caption,
		ContentType:   mapContentType(rawString(raw, "media_type", "__typename")),
		MediaURLs:     mediaURLs,
		Hashtags:      hashtags,
		Mentions:      mentions,
		LikesCount:    rawInt(raw, "like_count", "likes_count"),
		CommentsCount: rawInt(raw, "comments_count", "comment_count"),
		SharesCount:   rawInt(raw, "shares_count"),
		ViewsCount:    rawInt(raw, "views_count", "video_view_count"),
		PostedAt:      parseTimestamp(firstPresent(raw, "timestamp", "taken_at_timestamp", "posted_at")),
		Location:      rawString(raw, "location"),
		Raw:           raw,
	}, nil
}

// NormalizeComment maps a raw comment payload onto the shared comment
// record.
func (c *Collector) NormalizeComment(raw map[string]interface{}) (*platform.Comment, error) {
	if len(raw) == 0 {
		return nil, &errors.Error{Type: errors.ErrorTypeParsing, Message: "empty comment payload"}
	}

	externalID := rawString(raw, "id")
	if externalID == "" {
		return nil, &errors.Error{Type: errors.ErrorTypeParsing, Message: "comment payload has no id"}
	}

	authorName := rawString(raw, "author_display_name")
	if authorName == "" {
		authorName = rawString(raw, "author_username", "username")
	}

	return &platform.Comment{
		ExternalID:        externalID,
		Content:           rawString(raw, "text", "content"),
		AuthorUsername:    rawString(raw, "author_username", "username"),
		AuthorDisplayName: authorName,
		LikesCount:        rawInt(raw, "like_count", "likes_count"),
		RepliesCount:      rawInt(raw, "reply_count", "replies_count"),
		PostedAt:          parseTimestamp(firstPresent(raw, "created_at", "timestamp")),
		Raw:               raw,
	}, nil
}

// mapContentType translates Instagram media type markers, from either the
// GraphQL typename or the Basic Display API enum, to the shared content
// type vocabulary.
func mapContentType(mediaType string) string {
	switch mediaType {
	case "GraphImage", "IMAGE":
		return platform.ContentTypePhoto
	case "GraphVideo", "VIDEO":
		return platform.ContentTypeVideo
	case "GraphSidecar", "CAROUSEL_ALBUM":
		return platform.ContentTypeCarousel
	default:
		return platform.ContentTypePhoto
	}
}

// parseTimestamp accepts the timestamp shapes Instagram payloads carry:
// unix seconds as a number, RFC 3339 or ISO 8601 strings. Unparseable
// values fall back to the current time so a record is never dropped over
// its timestamp.
func parseTimestamp(value interface{}) time.Time {
	switch v := value.(type) {
	case int64:
		if v > 0 {
			return time.Unix(v, 0).UTC()
		}
	case int:
		if v > 0 {
			return time.Unix(int64(v), 0).UTC()
		}
	case float64:
		if v > 0 {
			return time.Unix(int64(v), 0).UTC()
		}
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC()
		}
	}
	return time.Now().UTC()
}

// firstPresent returns the first non-nil value among keys.
func firstPresent(raw map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// rawString returns the first string value among keys, coercing numeric
// IDs that JSON decoding may have turned into float64.
func rawString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

// rawInt returns the first numeric value among keys. JSON decoding
// produces float64, typed converters produce int64, and HTML parsing
// produces parsed int64, so all three are accepted.
func rawInt(raw map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func rawBool(raw map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		if v, ok := raw[key].(bool); ok {
			return v
		}
	}
	return false
}

// rawStrings returns a string slice for key, accepting both []string and
// the []interface{} JSON decoding produces. A missing key returns nil so
// callers can distinguish absent from empty.
func rawStrings(raw map[string]interface{}, key string) []string {
	switch v := raw[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
