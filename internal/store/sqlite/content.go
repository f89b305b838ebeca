package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialharvest/pkg/orchestrator"
	"socialharvest/pkg/platform"
)

func jsonSlice(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func jsonMap(v map[string]interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sliceFromJSON(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func mapFromJSON(s string) map[string]interface{} {
	if s == "" || s == "{}" {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// UpsertProfile stores the latest profile snapshot for an influencer,
// one row per influencer. The platform-side ID and display name are
// propagated onto the influencers row so later post collections can
// skip the discovery fetch.
func (s *Store) UpsertProfile(ctx context.Context, influencerID string, profile *platform.Profile) error {
	if profile == nil {
		return fmt.Errorf("upsert profile %s: nil profile", influencerID)
	}
	nowMs := time.Now().UTC().UnixMilli()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (influencer_id, external_id, username, display_name, bio, profile_image_url, profile_url,
			verified, business_account, follower_count, following_count, post_count, location, external_url, raw_json, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(influencer_id) DO UPDATE SET
			external_id = excluded.external_id,
			username = excluded.username,
			display_name = excluded.display_name,
			bio = excluded.bio,
			profile_image_url = excluded.profile_image_url,
			profile_url = excluded.profile_url,
			verified = excluded.verified,
			business_account = excluded.business_account,
			follower_count = excluded.follower_count,
			following_count = excluded.following_count,
			post_count = excluded.post_count,
			location = excluded.location,
			external_url = excluded.external_url,
			raw_json = excluded.raw_json,
			collected_at = excluded.collected_at
	`, influencerID, profile.ExternalID, profile.Username, profile.DisplayName, profile.Bio,
		profile.ProfileImageURL, profile.ProfileURL, profile.Verified, profile.BusinessAccount,
		profile.FollowerCount, profile.FollowingCount, profile.PostCount, profile.Location,
		profile.ExternalURL, jsonMap(profile.Raw), nowMs)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", influencerID, err)
	}

	if profile.ExternalID != "" {
		_, err = s.db.ExecContext(ctx, `
			UPDATE influencers SET
				external_id = ?,
				display_name = CASE WHEN ? != '' THEN ? ELSE display_name END,
				updated_at = ?
			WHERE id = ?
		`, profile.ExternalID, profile.DisplayName, profile.DisplayName, nowMs, influencerID)
		if err != nil {
			return fmt.Errorf("upsert profile %s: sync influencer: %w", influencerID, err)
		}
	}
	return nil
}

// Profile loads the latest stored snapshot for an influencer.
func (s *Store) Profile(ctx context.Context, influencerID string) (*platform.Profile, error) {
	var row struct {
		externalID      string
		username        string
		displayName     string
		bio             string
		profileImageURL string
		profileURL      string
		verified        bool
		business        bool
		followerCount   int64
		followingCount  int64
		postCount       int64
		location        string
		externalURL     string
		rawJSON         string
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT external_id, username, display_name, bio, profile_image_url, profile_url,
			verified, business_account, follower_count, following_count, post_count, location, external_url, raw_json
		FROM profiles WHERE influencer_id = ?
	`, influencerID).Scan(&row.externalID, &row.username, &row.displayName, &row.bio,
		&row.profileImageURL, &row.profileURL, &row.verified, &row.business,
		&row.followerCount, &row.followingCount, &row.postCount, &row.location,
		&row.externalURL, &row.rawJSON)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", influencerID, err)
	}
	return &platform.Profile{
		ExternalID:      row.externalID,
		Username:        row.username,
		DisplayName:     row.displayName,
		Bio:             row.bio,
		ProfileImageURL: row.profileImageURL,
		ProfileURL:      row.profileURL,
		Verified:        row.verified,
		BusinessAccount: row.business,
		FollowerCount:   row.followerCount,
		FollowingCount:  row.followingCount,
		PostCount:       row.postCount,
		Location:        row.location,
		ExternalURL:     row.externalURL,
		Raw:             mapFromJSON(row.rawJSON),
	}, nil
}

// UpsertPosts stores a batch of collected posts in one transaction.
// Reruns refresh the mutable columns of existing (platform, external_id)
// rows and keep their store IDs, so comment rows stay attached.
func (s *Store) UpsertPosts(ctx context.Context, influencerID string, posts []*platform.Post) error {
	if len(posts) == 0 {
		return nil
	}
	inf, err := s.Influencer(ctx, influencerID)
	if err != nil {
		return fmt.Errorf("upsert posts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert posts: %w", err)
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	for _, p := range posts {
		if p == nil || p.ExternalID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO posts (id, influencer_id, platform, external_id, content, content_type,
				media_urls_json, hashtags_json, mentions_json,
				likes_count, comments_count, shares_count, views_count,
				posted_at, location, raw_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(platform, external_id) DO UPDATE SET
				content = excluded.content,
				content_type = excluded.content_type,
				media_urls_json = excluded.media_urls_json,
				hashtags_json = excluded.hashtags_json,
				mentions_json = excluded.mentions_json,
				likes_count = excluded.likes_count,
				comments_count = excluded.comments_count,
				shares_count = excluded.shares_count,
				views_count = excluded.views_count,
				posted_at = excluded.posted_at,
				location = excluded.location,
				raw_json = excluded.raw_json,
				updated_at = excluded.updated_at
		`, uuid.NewString(), influencerID, inf.Platform, p.ExternalID, p.Content, p.ContentType,
			jsonSlice(p.MediaURLs), jsonSlice(p.Hashtags), jsonSlice(p.Mentions),
			p.LikesCount, p.CommentsCount, p.SharesCount, p.ViewsCount,
			timeToMs(p.PostedAt), p.Location, jsonMap(p.Raw), nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("upsert post %s: %w", p.ExternalID, err)
		}
	}
	return tx.Commit()
}

// Post loads the stored reference a comment collection starts from.
func (s *Store) Post(ctx context.Context, postID string) (*orchestrator.StoredPost, error) {
	var row struct {
		id           string
		influencerID string
		platformName string
		externalID   string
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, influencer_id, platform, external_id FROM posts WHERE id = ?`, postID).
		Scan(&row.id, &row.influencerID, &row.platformName, &row.externalID)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", postID, err)
	}
	return &orchestrator.StoredPost{
		ID:           row.id,
		InfluencerID: row.influencerID,
		Platform:     row.platformName,
		ExternalID:   row.externalID,
	}, nil
}

const postColumns = `external_id, content, content_type, media_urls_json, hashtags_json, mentions_json,
	likes_count, comments_count, shares_count, views_count, posted_at, location, raw_json`

func scanPost(scan func(dest ...interface{}) error) (*platform.Post, error) {
	var row struct {
		externalID    string
		content       string
		contentType   string
		mediaURLs     string
		hashtags      string
		mentions      string
		likesCount    int64
		commentsCount int64
		sharesCount   int64
		viewsCount    int64
		postedAt      int64
		location      string
		rawJSON       string
	}
	if err := scan(&row.externalID, &row.content, &row.contentType, &row.mediaURLs, &row.hashtags,
		&row.mentions, &row.likesCount, &row.commentsCount, &row.sharesCount, &row.viewsCount,
		&row.postedAt, &row.location, &row.rawJSON); err != nil {
		return nil, err
	}
	return &platform.Post{
		ExternalID:    row.externalID,
		Content:       row.content,
		ContentType:   row.contentType,
		MediaURLs:     sliceFromJSON(row.mediaURLs),
		Hashtags:      sliceFromJSON(row.hashtags),
		Mentions:      sliceFromJSON(row.mentions),
		LikesCount:    row.likesCount,
		CommentsCount: row.commentsCount,
		SharesCount:   row.sharesCount,
		ViewsCount:    row.viewsCount,
		PostedAt:      msToTime(row.postedAt),
		Location:      row.location,
		Raw:           mapFromJSON(row.rawJSON),
	}, nil
}

// PostsByInfluencer returns an influencer's stored posts, newest first.
// A limit of zero or less means no limit.
func (s *Store) PostsByInfluencer(ctx context.Context, influencerID string, limit int) ([]*platform.Post, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE influencer_id = ? ORDER BY posted_at DESC LIMIT ?`,
		influencerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*platform.Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PostIDByExternalID maps a platform-side post ID back to its store ID.
func (s *Store) PostIDByExternalID(ctx context.Context, platformName, externalID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM posts WHERE platform = ? AND external_id = ?`, platformName, externalID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("post %s/%s: %w", platformName, externalID, err)
	}
	return id, nil
}

// UpsertComments stores a batch of collected comments for a post in one
// transaction, keyed on (platform, external_id) like posts.
func (s *Store) UpsertComments(ctx context.Context, postID string, comments []*platform.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	post, err := s.Post(ctx, postID)
	if err != nil {
		return fmt.Errorf("upsert comments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert comments: %w", err)
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	for _, c := range comments {
		if c == nil || c.ExternalID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, post_id, platform, external_id, content,
				author_username, author_display_name, likes_count, replies_count,
				posted_at, raw_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(platform, external_id) DO UPDATE SET
				content = excluded.content,
				author_username = excluded.author_username,
				author_display_name = excluded.author_display_name,
				likes_count = excluded.likes_count,
				replies_count = excluded.replies_count,
				posted_at = excluded.posted_at,
				raw_json = excluded.raw_json,
				updated_at = excluded.updated_at
		`, uuid.NewString(), postID, post.Platform, c.ExternalID, c.Content,
			c.AuthorUsername, c.AuthorDisplayName, c.LikesCount, c.RepliesCount,
			timeToMs(c.PostedAt), jsonMap(c.Raw), nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("upsert comment %s: %w", c.ExternalID, err)
		}
	}
	return tx.Commit()
}

// CommentsByPost returns a post's stored comments, oldest first. A limit
// of zero or less means no limit.
func (s *Store) CommentsByPost(ctx context.Context, postID string, limit int) ([]*platform.Comment, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id, content, author_username, author_display_name, likes_count, replies_count, posted_at, raw_json
		FROM comments WHERE post_id = ? ORDER BY posted_at ASC LIMIT ?
	`, postID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*platform.Comment
	for rows.Next() {
		var row struct {
			externalID   string
			content      string
			author       string
			authorName   string
			likesCount   int64
			repliesCount int64
			postedAt     int64
			rawJSON      string
		}
		if err := rows.Scan(&row.externalID, &row.content, &row.author, &row.authorName,
			&row.likesCount, &row.repliesCount, &row.postedAt, &row.rawJSON); err != nil {
			return nil, err
		}
		out = append(out, &platform.Comment{
			ExternalID:        row.externalID,
			Content:           row.content,
			AuthorUsername:    row.author,
			AuthorDisplayName: row.authorName,
			LikesCount:        row.likesCount,
			RepliesCount:      row.repliesCount,
			PostedAt:          msToTime(row.postedAt),
			Raw:               mapFromJSON(row.rawJSON),
		})
	}
	return out, rows.Err()
}
