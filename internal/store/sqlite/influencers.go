package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialharvest/pkg/platform"
)

// timeToMs stores zero times as 0 so absence survives the round trip.
func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// AddInfluencer registers an influencer to track. Adding the same
// (platform, username) pair again refreshes the row instead of
// duplicating it.
func (s *Store) AddInfluencer(ctx context.Context, inf *platform.Influencer) (*platform.Influencer, error) {
	if inf.Platform == "" || inf.Username == "" {
		return nil, errors.New("platform and username are required")
	}
	if inf.ID == "" {
		inf.ID = uuid.NewString()
	}
	if inf.CollectionFrequencyHours <= 0 {
		inf.CollectionFrequencyHours = 24
	}
	now := time.Now().UTC()
	if inf.CreatedAt.IsZero() {
		inf.CreatedAt = now
	}
	inf.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO influencers (id, external_id, platform, username, display_name, collection_frequency_hours, last_collected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, username) DO UPDATE SET
			external_id = CASE WHEN excluded.external_id != '' THEN excluded.external_id ELSE influencers.external_id END,
			display_name = excluded.display_name,
			collection_frequency_hours = excluded.collection_frequency_hours,
			updated_at = excluded.updated_at
	`, inf.ID, inf.ExternalID, inf.Platform, inf.Username, inf.DisplayName, inf.CollectionFrequencyHours,
		timeToMs(inf.LastCollected), timeToMs(inf.CreatedAt), timeToMs(inf.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return s.InfluencerByHandle(ctx, inf.Platform, inf.Username)
}

const influencerColumns = `id, external_id, platform, username, display_name, collection_frequency_hours, last_collected, created_at, updated_at`

func scanInfluencer(scan func(dest ...interface{}) error) (*platform.Influencer, error) {
	var row struct {
		id            string
		externalID    string
		platformName  string
		username      string
		displayName   string
		frequency     int
		lastCollected int64
		createdAt     int64
		updatedAt     int64
	}
	if err := scan(&row.id, &row.externalID, &row.platformName, &row.username, &row.displayName,
		&row.frequency, &row.lastCollected, &row.createdAt, &row.updatedAt); err != nil {
		return nil, err
	}
	return &platform.Influencer{
		ID:                       row.id,
		ExternalID:               row.externalID,
		Platform:                 row.platformName,
		Username:                 row.username,
		DisplayName:              row.displayName,
		CollectionFrequencyHours: row.frequency,
		LastCollected:            msToTime(row.lastCollected),
		CreatedAt:                msToTime(row.createdAt),
		UpdatedAt:                msToTime(row.updatedAt),
	}, nil
}

// Influencer loads one influencer by store ID.
func (s *Store) Influencer(ctx context.Context, influencerID string) (*platform.Influencer, error) {
	inf, err := scanInfluencer(s.db.QueryRowContext(ctx,
		`SELECT `+influencerColumns+` FROM influencers WHERE id = ?`, influencerID).Scan)
	if err != nil {
		return nil, fmt.Errorf("influencer %s: %w", influencerID, err)
	}
	return inf, nil
}

// InfluencerByHandle loads one influencer by its (platform, username) key.
func (s *Store) InfluencerByHandle(ctx context.Context, platformName, username string) (*platform.Influencer, error) {
	inf, err := scanInfluencer(s.db.QueryRowContext(ctx,
		`SELECT `+influencerColumns+` FROM influencers WHERE platform = ? AND username = ?`,
		platformName, username).Scan)
	if err != nil {
		return nil, fmt.Errorf("influencer %s/%s: %w", platformName, username, err)
	}
	return inf, nil
}

// ListInfluencers returns every tracked influencer, most recently
// collected last so the stalest appear first.
func (s *Store) ListInfluencers(ctx context.Context) ([]*platform.Influencer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+influencerColumns+` FROM influencers ORDER BY last_collected ASC, username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*platform.Influencer
	for rows.Next() {
		inf, err := scanInfluencer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// DueInfluencers returns influencers whose collection interval has
// elapsed as of now, stalest first.
func (s *Store) DueInfluencers(ctx context.Context, now time.Time) ([]*platform.Influencer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+influencerColumns+` FROM influencers
		 WHERE last_collected = 0 OR (? - last_collected) >= collection_frequency_hours * 3600000
		 ORDER BY last_collected ASC`, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*platform.Influencer
	for rows.Next() {
		inf, err := scanInfluencer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// TouchInfluencerCollected stamps a successful collection.
func (s *Store) TouchInfluencerCollected(ctx context.Context, influencerID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE influencers SET last_collected = ?, updated_at = ? WHERE id = ?`,
		at.UnixMilli(), time.Now().UTC().UnixMilli(), influencerID)
	return err
}

// RemoveInfluencer deletes an influencer. Collected content and tasks
// are kept for audit.
func (s *Store) RemoveInfluencer(ctx context.Context, influencerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM influencers WHERE id = ?`, influencerID)
	return err
}
