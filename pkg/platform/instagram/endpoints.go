package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	// WebBaseURL is the base URL for Instagram's web surface
	WebBaseURL = "https://www.instagram.com"

	// APIBaseURL is the base URL for the Basic Display API
	APIBaseURL = "https://graph.instagram.com"

	// ProfileEndpoint serves profile data as JSON for the web app
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// GraphQLEndpoint serves paginated posts and comments
	GraphQLEndpoint = "/graphql/query/"

	// PostsQueryHash is the persisted GraphQL query for a user's timeline media
	PostsQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// CommentsQueryHash is the persisted GraphQL query for a post's comments
	CommentsQueryHash = "bc3296d1ce80a24b1b6e40b1e72903f5"

	// AppID identifies the Instagram web app to the profile endpoint
	AppID = "936619743392459"

	// PostsPageSize is the timeline page size requested per GraphQL call
	PostsPageSize = 25

	// CommentsPageSize is the comment page size requested per GraphQL call
	CommentsPageSize = 50

	// DefaultPostLimit caps a posts collection when the caller passes none
	DefaultPostLimit = 50

	// DefaultCommentLimit caps a comments collection when the caller passes none
	DefaultCommentLimit = 100
)

// ProfileURL constructs the web_profile_info URL for a username.
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

// ProfilePageURL constructs the public profile page URL for a username.
func ProfilePageURL(base, username string) string {
	return fmt.Sprintf("%s/%s/", base, username)
}

type postsVariables struct {
	ID    string `json:"id"`
	First int    `json:"first"`
	After string `json:"after,omitempty"`
}

// PostsURL constructs the GraphQL URL for one page of a user's posts.
func PostsURL(base, userID, after string, count int) string {
	if count <= 0 {
		count = PostsPageSize
	}
	variables, _ := json.Marshal(postsVariables{ID: userID, First: count, After: after})

	params := url.Values{}
	params.Set("query_hash", PostsQueryHash)
	params.Set("variables", string(variables))
	return fmt.Sprintf("%s%s?%s", base, GraphQLEndpoint, params.Encode())
}

type commentsVariables struct {
	Shortcode string `json:"shortcode"`
	First     int    `json:"first"`
	After     string `json:"after,omitempty"`
}

// CommentsURL constructs the GraphQL URL for one page of a post's comments.
func CommentsURL(base, shortcode, after string, count int) string {
	if count <= 0 {
		count = CommentsPageSize
	}
	variables, _ := json.Marshal(commentsVariables{Shortcode: shortcode, First: count, After: after})

	params := url.Values{}
	params.Set("query_hash", CommentsQueryHash)
	params.Set("variables", string(variables))
	return fmt.Sprintf("%s%s?%s", base, GraphQLEndpoint, params.Encode())
}

// PostURL constructs the canonical permalink for a post shortcode.
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", WebBaseURL, shortcode)
}

// IsValidUsername checks a username against Instagram's character rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips the @ prefix and trailing slashes or spaces
// that handles copied from the app tend to carry.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if username[0] == '@' {
		username = username[1:]
	}
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}
	return username
}
