// Package store provides PostgreSQL persistence for LeadScout entities.
//
// Methods use plain database/sql with positional parameters. Single-row
// lookups return (nil, nil) when the row does not exist; callers decide
// whether absence is an error.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/leadscout/internal/domain"
)

// Store provides database operations for LeadScout entities.
type Store struct {
	db *sql.DB
}

// New creates a store over the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need advisory locks.
func (s *Store) DB() *sql.DB { return s.db }

// =============================================================================
// Users
// =============================================================================

const userColumns = `id, email, tier, status, trial_ends_at, subscription_ends_at, created_at, updated_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Tier, &u.Status,
		&u.TrialEndsAt, &u.SubscriptionEndsAt, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateUser inserts a user. Used by seeds and tests; signup lives in
// the web tier.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, tier, status, trial_ends_at, subscription_ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Tier, u.Status, u.TrialEndsAt, u.SubscriptionEndsAt, u.CreatedAt, u.UpdatedAt)
	return err
}

// ListUsersWithActiveCampaigns returns every user owning at least one
// ACTIVE campaign. Pollability is re-checked in Go against the clock;
// the query only prunes what SQL can prune cheaply.
func (s *Store) ListUsersWithActiveCampaigns(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.email, u.tier, u.status, u.trial_ends_at, u.subscription_ends_at, u.created_at, u.updated_at
		FROM users u
		JOIN campaigns c ON c.user_id = u.id
		WHERE c.status = 'ACTIVE'
		ORDER BY u.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Tier, &u.Status,
			&u.TrialEndsAt, &u.SubscriptionEndsAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// Campaigns
// =============================================================================

const campaignColumns = `id, user_id, status, business_description, search_queries,
	poll_interval_hours, last_poll_at, custom_comment_prompt, custom_dm_prompt, created_at, updated_at`

// CreateCampaign inserts a new campaign.
func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = domain.CampaignDiscovering
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, user_id, status, business_description, search_queries,
			poll_interval_hours, custom_comment_prompt, custom_dm_prompt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.UserID, c.Status, c.BusinessDescription, pq.Array([]string(c.SearchQueries)),
		c.PollIntervalHours, c.CustomCommentPrompt, c.CustomDmPrompt, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCampaign retrieves a campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.Status, &c.BusinessDescription, &c.SearchQueries,
		&c.PollIntervalHours, &c.LastPollAt, &c.CustomCommentPrompt, &c.CustomDmPrompt,
		&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListCampaignsByUser returns the user's campaigns, hiding DELETED rows.
func (s *Store) ListCampaignsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		WHERE user_id = $1 AND status != 'DELETED' ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c := &domain.Campaign{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Status, &c.BusinessDescription, &c.SearchQueries,
			&c.PollIntervalHours, &c.LastPollAt, &c.CustomCommentPrompt, &c.CustomDmPrompt,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ListActiveCampaignIDs returns the IDs of the user's ACTIVE campaigns,
// oldest first, for the scheduler sweep.
func (s *Store) ListActiveCampaignIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM campaigns WHERE user_id = $1 AND status = 'ACTIVE' ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountCampaigns counts the user's non-deleted campaigns, for the
// per-plan profile gate.
func (s *Store) CountCampaigns(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE user_id = $1 AND status != 'DELETED'`, userID).Scan(&n)
	return n, err
}

// UpdateCampaignStatus transitions a campaign's status.
func (s *Store) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("campaign %s not found", id)
	}
	return nil
}

// SetCampaignLastPoll stamps the campaign's last completed poll time.
func (s *Store) SetCampaignLastPoll(ctx context.Context, id uuid.UUID, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET last_poll_at = $2, updated_at = NOW() WHERE id = $1`, id, t)
	return err
}

// =============================================================================
// Campaign subreddits
// =============================================================================

// ReplaceCampaignSubreddits atomically replaces a campaign's subreddit
// selection: delete-then-insert in one transaction.
func (s *Store) ReplaceCampaignSubreddits(ctx context.Context, campaignID uuid.UUID, subs []domain.CampaignSubreddit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM campaign_subreddits WHERE campaign_id = $1`, campaignID); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}

	for i := range subs {
		sub := &subs[i]
		if sub.ID == uuid.Nil {
			sub.ID = uuid.New()
		}
		sub.CampaignID = campaignID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_subreddits (id, campaign_id, name, title, description, subscribers, relevance_score, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (campaign_id, name) DO NOTHING`,
			sub.ID, campaignID, sub.Name, sub.Title, sub.Description, sub.Subscribers, sub.RelevanceScore, sub.Active); err != nil {
			return fmt.Errorf("insert subreddit %s: %w", sub.Name, err)
		}
	}

	return tx.Commit()
}

// ListActiveSubreddits returns the campaign's pollable subreddits in
// stored order.
func (s *Store) ListActiveSubreddits(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error) {
	return s.listSubreddits(ctx, campaignID, true)
}

// ListCampaignSubreddits returns all of the campaign's subreddits,
// active or not.
func (s *Store) ListCampaignSubreddits(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error) {
	return s.listSubreddits(ctx, campaignID, false)
}

func (s *Store) listSubreddits(ctx context.Context, campaignID uuid.UUID, activeOnly bool) ([]domain.CampaignSubreddit, error) {
	query := `SELECT id, campaign_id, name, title, description, subscribers, relevance_score, active, created_at
		FROM campaign_subreddits WHERE campaign_id = $1`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at, name`

	rows, err := s.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.CampaignSubreddit
	for rows.Next() {
		var sub domain.CampaignSubreddit
		if err := rows.Scan(&sub.ID, &sub.CampaignID, &sub.Name, &sub.Title, &sub.Description,
			&sub.Subscribers, &sub.RelevanceScore, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
