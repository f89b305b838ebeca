package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"socialharvest/pkg/config"
	"socialharvest/pkg/errors"
	"socialharvest/pkg/executor"
	"socialharvest/pkg/logger"
	"socialharvest/pkg/platform"
)

// Endpoint keys used for rate-limit accounting. Each key gets its own
// bucket per proxy, so a burst of post pages cannot starve profile lookups.
const (
	endpointSessionInit = "session_init"
	endpointProfile     = "profile_scrape"
	endpointPosts       = "posts_scrape"
	endpointComments    = "comments_scrape"
)

// Collector implements platform.Collector for Instagram's web surface.
// It drives all traffic through a request executor, so proxy rotation,
// rate limiting and retries apply uniformly.
type Collector struct {
	exec   *executor.Executor
	cfg    config.PlatformConfig
	logger logger.Logger
	delay  platform.PageDelay

	webBase string

	mu        sync.Mutex
	csrfToken string
}

// New builds an Instagram collector using the platform section of the
// engine config for credentials and pacing.
func New(exec *executor.Executor, cfg *config.Config, log logger.Logger) *Collector {
	return &Collector{
		exec:   exec,
		cfg:    cfg.Platform(platform.Instagram),
		logger: log.WithField("component", "instagram_collector"),
		delay: platform.PageDelay{
			Min: cfg.Engine.PageDelayMin(),
			Max: cfg.Engine.PageDelayMax(),
		},
		webBase: WebBaseURL,
	}
}

// Platform returns the platform identifier.
func (c *Collector) Platform() string {
	return platform.Instagram
}

// Authenticate bootstraps a web session by loading the home page and
// extracting the CSRF token embedded in it. A token supplied through
// configuration takes precedence and makes the bootstrap request optional
// for validity, though it still warms the session.
func (c *Collector) Authenticate(ctx context.Context) error {
	resp, err := c.exec.Execute(ctx, endpointSessionInit, http.MethodGet, c.webBase+"/", &executor.Options{
		Headers: c.headers(),
	})
	if err != nil {
		return err
	}

	token := extractCSRFToken(string(resp.Body))
	if token == "" && c.cfg.CSRFToken == "" {
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "no csrf token found in session bootstrap response",
		}
	}
	if token != "" {
		c.mu.Lock()
		c.csrfToken = token
		c.mu.Unlock()
		c.logger.Debug("session bootstrapped with fresh csrf token")
	}
	return nil
}

// CollectProfile fetches a profile by handle. It tries the JSON profile
// endpoint first and falls back to scraping the public profile page when
// the endpoint returns the app shell instead of data.
func (c *Collector) CollectProfile(ctx context.Context, handle string) (*platform.Profile, error) {
	username := SanitizeUsername(handle)
	if !IsValidUsername(username) {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeClient,
			Message: fmt.Sprintf("invalid instagram username: %q", handle),
		}
	}

	headers := c.headers()
	headers["X-IG-App-ID"] = AppID

	resp, err := c.exec.Execute(ctx, endpointProfile, http.MethodGet, ProfileURL(c.webBase, username), &executor.Options{
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	if raw := profileFromAPI(resp.Body, username); raw != nil {
		return c.NormalizeProfile(raw)
	}

	c.logger.DebugWithFields("profile endpoint returned no user, scraping page", map[string]interface{}{
		"username": username,
	})

	resp, err = c.exec.Execute(ctx, endpointProfile, http.MethodGet, ProfilePageURL(c.webBase, username), &executor.Options{
		Headers: c.headers(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := parseProfileHTML(string(resp.Body), username)
	if err != nil {
		return nil, err
	}
	return c.NormalizeProfile(raw)
}

// profileFromAPI extracts the intermediate profile map from a
// web_profile_info body, or nil when the body carries no user.
func profileFromAPI(body []byte, username string) map[string]interface{} {
	var parsed profileResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	user := parsed.Data.User
	if user == nil || parsed.RequiresToLogin {
		return nil
	}
	raw := user.toRaw()
	if raw["username"] == "" {
		raw["username"] = username
	}
	return raw
}

// CollectPosts fetches up to limit recent posts for a numeric user ID,
// walking the timeline GraphQL cursor page by page.
func (c *Collector) CollectPosts(ctx context.Context, userID string, limit int) ([]*platform.Post, error) {
	if limit <= 0 {
		limit = DefaultPostLimit
	}

	fetch := func(ctx context.Context, cursor string) ([]*platform.Post, string, error) {
		resp, err := c.exec.Execute(ctx, endpointPosts, http.MethodGet, PostsURL(c.webBase, userID, cursor, PostsPageSize), &executor.Options{
			Headers: c.headers(),
		})
		if err != nil {
			return nil, "", err
		}

		var parsed postsResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return nil, "", &errors.Error{
				Type:    errors.ErrorTypeParsing,
				Message: fmt.Sprintf("decoding posts page: %s", err),
			}
		}
		if parsed.Data.User == nil {
			return nil, "", nil
		}

		conn := parsed.Data.User.EdgeTimelineMedia
		posts := make([]*platform.Post, 0, len(conn.Edges))
		for _, edge := range conn.Edges {
			post, err := c.NormalizePost(edge.Node.toRaw())
			if err != nil {
				c.logger.WarnWithFields("skipping malformed post", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			posts = append(posts, post)
		}

		next := ""
		if conn.PageInfo.HasNextPage {
			next = conn.PageInfo.EndCursor
		}
		return posts, next, nil
	}

	return platform.Paginate(ctx, fetch, limit, c.delay, c.logger)
}

// CollectComments fetches up to limit top-level comments for a post
// shortcode.
func (c *Collector) CollectComments(ctx context.Context, postID string, limit int) ([]*platform.Comment, error) {
	if limit <= 0 {
		limit = DefaultCommentLimit
	}

	fetch := func(ctx context.Context, cursor string) ([]*platform.Comment, string, error) {
		resp, err := c.exec.Execute(ctx, endpointComments, http.MethodGet, CommentsURL(c.webBase, postID, cursor, CommentsPageSize), &executor.Options{
			Headers: c.headers(),
		})
		if err != nil {
			return nil, "", err
		}

		var parsed commentsResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return nil, "", &errors.Error{
				Type:    errors.ErrorTypeParsing,
				Message: fmt.Sprintf("decoding comments page: %s", err),
			}
		}
		if parsed.Data.ShortcodeMedia == nil {
			return nil, "", nil
		}

		conn := parsed.Data.ShortcodeMedia.EdgeParentComment
		comments := make([]*platform.Comment, 0, len(conn.Edges))
		for _, edge := range conn.Edges {
			comment, err := c.NormalizeComment(edge.Node.toRaw())
			if err != nil {
				c.logger.WarnWithFields("skipping malformed comment", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			comments = append(comments, comment)
		}

		next := ""
		if conn.PageInfo.HasNextPage {
			next = conn.PageInfo.EndCursor
		}
		return comments, next, nil
	}

	return platform.Paginate(ctx, fetch, limit, c.delay, c.logger)
}

// headers builds the Instagram request header set, layering session
// cookies and the CSRF token over the executor's browser defaults.
func (c *Collector) headers() map[string]string {
	h := map[string]string{
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"X-Requested-With": "XMLHttpRequest",
		"X-Instagram-AJAX": "1",
		"Referer":          c.webBase + "/",
		"Origin":           c.webBase,
	}

	var cookies []string
	if c.cfg.SessionID != "" {
		cookies = append(cookies, "sessionid="+c.cfg.SessionID)
	}
	if csrf := c.csrf(); csrf != "" {
		h["X-CSRFToken"] = csrf
		cookies = append(cookies, "csrftoken="+csrf)
	}
	if len(cookies) > 0 {
		h["Cookie"] = strings.Join(cookies, "; ")
	}
	if c.cfg.UserAgent != "" {
		h["User-Agent"] = c.cfg.UserAgent
	}
	return h
}

// csrf returns the configured token, or the one extracted at bootstrap.
func (c *Collector) csrf() string {
	if c.cfg.CSRFToken != "" {
		return c.cfg.CSRFToken
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}
