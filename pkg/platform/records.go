package platform

import "time"

// Known platform identifiers. The registry accepts any string, so new
// platforms plug in without touching the engine.
const (
	Instagram = "instagram"
	YouTube   = "youtube"
	TikTok    = "tiktok"
	Twitter   = "twitter"
)

// Content types shared by every platform's normalized posts.
const (
	ContentTypePhoto    = "photo"
	ContentTypeVideo    = "video"
	ContentTypeCarousel = "carousel"
	ContentTypeText     = "text"
)

// Profile is the platform-agnostic shape of a collected account.
// Collectors fill it from whatever payload their platform returns; the
// original payload rides along in Raw for audit and reprocessing.
type Profile struct {
	ExternalID      string                 `json:"external_id"`
	Username        string                 `json:"username"`
	DisplayName     string                 `json:"display_name"`
	Bio             string                 `json:"bio"`
	ProfileImageURL string                 `json:"profile_image_url"`
	ProfileURL      string                 `json:"profile_url"`
	Verified        bool                   `json:"verified"`
	BusinessAccount bool                   `json:"business_account"`
	FollowerCount   int64                  `json:"follower_count"`
	FollowingCount  int64                  `json:"following_count"`
	PostCount       int64                  `json:"post_count"`
	Location        string                 `json:"location,omitempty"`
	ExternalURL     string                 `json:"external_url,omitempty"`
	Raw             map[string]interface{} `json:"raw_data,omitempty"`
}

// Post is the platform-agnostic shape of a collected post.
type Post struct {
	ExternalID    string                 `json:"external_id"`
	Content       string                 `json:"content"`
	ContentType   string                 `json:"content_type"`
	MediaURLs     []string               `json:"media_urls,omitempty"`
	Hashtags      []string               `json:"hashtags,omitempty"`
	Mentions      []string               `json:"mentions,omitempty"`
	LikesCount    int64                  `json:"likes_count"`
	CommentsCount int64                  `json:"comments_count"`
	SharesCount   int64                  `json:"shares_count"`
	ViewsCount    int64                  `json:"views_count"`
	PostedAt      time.Time              `json:"posted_at"`
	Location      string                 `json:"location,omitempty"`
	Raw           map[string]interface{} `json:"raw_data,omitempty"`
}

// Comment is the platform-agnostic shape of a collected comment.
type Comment struct {
	ExternalID        string                 `json:"external_id"`
	Content           string                 `json:"content"`
	AuthorUsername    string                 `json:"author_username"`
	AuthorDisplayName string                 `json:"author_display_name,omitempty"`
	LikesCount        int64                  `json:"likes_count"`
	RepliesCount      int64                  `json:"replies_count"`
	PostedAt          time.Time              `json:"posted_at"`
	Raw               map[string]interface{} `json:"raw_data,omitempty"`
}

// Influencer is the engine-side identity a collection targets, with the
// interval accounting that drives the force=false short-circuit.
type Influencer struct {
	ID                       string    `json:"id"`
	ExternalID               string    `json:"external_id"`
	Platform                 string    `json:"platform"`
	Username                 string    `json:"username"`
	DisplayName              string    `json:"display_name,omitempty"`
	CollectionFrequencyHours int       `json:"collection_frequency_hours"`
	LastCollected            time.Time `json:"last_collected,omitempty"`
	CreatedAt                time.Time `json:"created_at,omitempty"`
	UpdatedAt                time.Time `json:"updated_at,omitempty"`
}

// CollectionDue reports whether the influencer's last successful
// collection is older than its configured interval. Never-collected
// influencers are always due; a zero or negative frequency falls back
// to 24 hours.
func (i *Influencer) CollectionDue(now time.Time) bool {
	if i.LastCollected.IsZero() {
		return true
	}
	hours := i.CollectionFrequencyHours
	if hours <= 0 {
		hours = 24
	}
	return now.Sub(i.LastCollected) >= time.Duration(hours)*time.Hour
}
