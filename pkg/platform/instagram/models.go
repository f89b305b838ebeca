package instagram

// profileResponse is the payload of the web_profile_info endpoint.
type profileResponse struct {
	Data struct {
		User *profileUser `json:"user"`
	} `json:"data"`
	Status          string `json:"status"`
	RequiresToLogin bool   `json:"requires_to_login"`
}

type profileUser struct {
	ID                string          `json:"id"`
	Username          string          `json:"username"`
	FullName          string          `json:"full_name"`
	Biography         string          `json:"biography"`
	ProfilePicURL     string          `json:"profile_pic_url"`
	ProfilePicURLHD   string          `json:"profile_pic_url_hd"`
	IsVerified        bool            `json:"is_verified"`
	IsBusinessAccount bool            `json:"is_business_account"`
	ExternalURL       string          `json:"external_url"`
	EdgeFollowedBy    countEdge       `json:"edge_followed_by"`
	EdgeFollow        countEdge       `json:"edge_follow"`
	EdgeTimelineMedia mediaConnection `json:"edge_owner_to_timeline_media"`
}

type countEdge struct {
	Count int64 `json:"count"`
}

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// postsResponse is the payload of the timeline GraphQL query.
type postsResponse struct {
	Data struct {
		User *struct {
			EdgeTimelineMedia mediaConnection `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

type mediaConnection struct {
	Count    int64      `json:"count"`
	PageInfo pageInfo   `json:"page_info"`
	Edges    []postEdge `json:"edges"`
}

type postEdge struct {
	Node postNode `json:"node"`
}

type postNode struct {
	ID                 string       `json:"id"`
	Shortcode          string       `json:"shortcode"`
	Typename           string       `json:"__typename"`
	DisplayURL         string       `json:"display_url"`
	ThumbnailSrc       string       `json:"thumbnail_src"`
	IsVideo            bool         `json:"is_video"`
	TakenAtTimestamp   int64        `json:"taken_at_timestamp"`
	VideoViewCount     int64        `json:"video_view_count"`
	EdgeLikedBy        countEdge    `json:"edge_liked_by"`
	EdgeMediaToComment countEdge    `json:"edge_media_to_comment"`
	EdgeMediaToCaption captionEdges `json:"edge_media_to_caption"`
	Location           *struct {
		Name string `json:"name"`
	} `json:"location"`
}

type captionEdges struct {
	Edges []struct {
		Node struct {
			Text string `json:"text"`
		} `json:"node"`
	} `json:"edges"`
}

// caption returns the first caption text, which is the only one Instagram sets.
func (c captionEdges) caption() string {
	if len(c.Edges) == 0 {
		return ""
	}
	return c.Edges[0].Node.Text
}

// commentsResponse is the payload of the parent-comments GraphQL query.
type commentsResponse struct {
	Data struct {
		ShortcodeMedia *struct {
			EdgeParentComment commentConnection `json:"edge_media_to_parent_comment"`
		} `json:"shortcode_media"`
	} `json:"data"`
	Status string `json:"status"`
}

type commentConnection struct {
	Count    int64         `json:"count"`
	PageInfo pageInfo      `json:"page_info"`
	Edges    []commentEdge `json:"edges"`
}

type commentEdge struct {
	Node commentNode `json:"node"`
}

type commentNode struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
	Owner     struct {
		Username      string `json:"username"`
		ProfilePicURL string `json:"profile_pic_url"`
	} `json:"owner"`
	EdgeLikedBy          countEdge `json:"edge_liked_by"`
	EdgeThreadedComments countEdge `json:"edge_threaded_comments"`
}

// toRaw flattens a profile user into the intermediate key set the
// normalizer consumes. The same keys come out of the HTML fallback parser,
// so both paths feed NormalizeProfile identically.
func (u *profileUser) toRaw() map[string]interface{} {
	image := u.ProfilePicURLHD
	if image == "" {
		image = u.ProfilePicURL
	}
	return map[string]interface{}{
		"id":                u.ID,
		"username":          u.Username,
		"display_name":      u.FullName,
		"bio":               u.Biography,
		"profile_image_url": image,
		"verified":          u.IsVerified,
		"business_account":  u.IsBusinessAccount,
		"external_url":      u.ExternalURL,
		"follower_count":    u.EdgeFollowedBy.Count,
		"following_count":   u.EdgeFollow.Count,
		"post_count":        u.EdgeTimelineMedia.Count,
	}
}

func (n *postNode) toRaw() map[string]interface{} {
	raw := map[string]interface{}{
		"id":             n.ID,
		"shortcode":      n.Shortcode,
		"media_type":     n.Typename,
		"caption":        n.EdgeMediaToCaption.caption(),
		"media_url":      n.DisplayURL,
		"thumbnail_url":  n.ThumbnailSrc,
		"permalink":      PostURL(n.Shortcode),
		"timestamp":      n.TakenAtTimestamp,
		"like_count":     n.EdgeLikedBy.Count,
		"comments_count": n.EdgeMediaToComment.Count,
	}
	if n.IsVideo {
		raw["views_count"] = n.VideoViewCount
	}
	if n.Location != nil && n.Location.Name != "" {
		raw["location"] = n.Location.Name
	}
	return raw
}

func (n *commentNode) toRaw() map[string]interface{} {
	return map[string]interface{}{
		"id":              n.ID,
		"text":            n.Text,
		"created_at":      n.CreatedAt,
		"author_username": n.Owner.Username,
		"like_count":      n.EdgeLikedBy.Count,
		"reply_count":     n.EdgeThreadedComments.Count,
	}
}
