package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
)

// =============================================================================
// Poll jobs
// =============================================================================

const pollJobColumns = `id, campaign_id, status, trigger, subreddits_polled, posts_fetched,
	posts_scored, leads_created, leads_deleted, suggestions_generated, error_message, started_at, completed_at`

// CreatePollJob inserts a RUNNING job row. Nothing is written before
// pre-validation passes; callers create the job only once a run begins.
func (s *Store) CreatePollJob(ctx context.Context, job *domain.PollJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.PollJobRunning
	}
	job.StartedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO poll_jobs (id, campaign_id, status, trigger, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.CampaignID, job.Status, job.Trigger, job.StartedAt)
	return err
}

// GetPollJob retrieves a poll job by ID.
func (s *Store) GetPollJob(ctx context.Context, id uuid.UUID) (*domain.PollJob, error) {
	job := &domain.PollJob{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+pollJobColumns+` FROM poll_jobs WHERE id = $1`, id).Scan(
		&job.ID, &job.CampaignID, &job.Status, &job.Trigger,
		&job.SubredditsPolled, &job.PostsFetched, &job.PostsScored,
		&job.LeadsCreated, &job.LeadsDeleted, &job.SuggestionsGenerated,
		&job.ErrorMessage, &job.StartedAt, &job.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// UpdatePollJobProgress writes the job's counters mid-run. Each phase
// commits its progress so a crash leaves an inspectable partial record.
func (s *Store) UpdatePollJobProgress(ctx context.Context, job *domain.PollJob) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE poll_jobs SET subreddits_polled = $2, posts_fetched = $3, posts_scored = $4,
			leads_created = $5, leads_deleted = $6, suggestions_generated = $7
		WHERE id = $1`,
		job.ID, job.SubredditsPolled, job.PostsFetched, job.PostsScored,
		job.LeadsCreated, job.LeadsDeleted, job.SuggestionsGenerated)
	return err
}

// FinalizePollJob moves the job to a terminal status, stamping
// completed_at and persisting the final counters and error message.
func (s *Store) FinalizePollJob(ctx context.Context, job *domain.PollJob) error {
	now := time.Now()
	job.CompletedAt = &now
	_, err := s.db.ExecContext(ctx, `
		UPDATE poll_jobs SET status = $2, subreddits_polled = $3, posts_fetched = $4,
			posts_scored = $5, leads_created = $6, leads_deleted = $7,
			suggestions_generated = $8, error_message = $9, completed_at = $10
		WHERE id = $1`,
		job.ID, job.Status, job.SubredditsPolled, job.PostsFetched, job.PostsScored,
		job.LeadsCreated, job.LeadsDeleted, job.SuggestionsGenerated,
		job.ErrorMessage, job.CompletedAt)
	return err
}

// ListPollJobsByCampaign returns the campaign's runs, newest first.
func (s *Store) ListPollJobsByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*domain.PollJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pollJobColumns+` FROM poll_jobs
		WHERE campaign_id = $1 ORDER BY started_at DESC LIMIT $2`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.PollJob
	for rows.Next() {
		job := &domain.PollJob{}
		if err := rows.Scan(&job.ID, &job.CampaignID, &job.Status, &job.Trigger,
			&job.SubredditsPolled, &job.PostsFetched, &job.PostsScored,
			&job.LeadsCreated, &job.LeadsDeleted, &job.SuggestionsGenerated,
			&job.ErrorMessage, &job.StartedAt, &job.CompletedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// =============================================================================
// Leads
// =============================================================================

const leadColumns = `id, campaign_id, poll_job_id, reddit_post_id, subreddit_name, title, content,
	author, post_url, reddit_score, num_comments, created_at_utc, relevancy_score, relevancy_reason,
	suggested_comment, suggested_dm, has_suggestions, suggestions_generated_at, status, discovered_at, updated_at`

func scanLead(sc interface{ Scan(...any) error }) (*domain.Lead, error) {
	l := &domain.Lead{}
	err := sc.Scan(&l.ID, &l.CampaignID, &l.PollJobID, &l.RedditPostID, &l.SubredditName,
		&l.Title, &l.Content, &l.Author, &l.PostURL, &l.RedditScore, &l.NumComments,
		&l.CreatedAtUTC, &l.RelevancyScore, &l.RelevancyReason, &l.SuggestedComment,
		&l.SuggestedDm, &l.HasSuggestions, &l.SuggestionsGeneratedAt, &l.Status,
		&l.DiscoveredAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ExistingPostIDs returns the set of Reddit post IDs already saved for
// the campaign, for pre-score deduplication.
func (s *Store) ExistingPostIDs(ctx context.Context, campaignID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reddit_post_id FROM leads WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// InsertLead saves a lead, returning false when the campaign already
// holds the same Reddit post. The unique constraint is the last line of
// defense behind the in-memory dedup.
func (s *Store) InsertLead(ctx context.Context, l *domain.Lead) (bool, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	if l.Author == "" {
		l.Author = "[deleted]"
	}
	now := time.Now()
	l.DiscoveredAt = now
	l.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, campaign_id, poll_job_id, reddit_post_id, subreddit_name, title, content,
			author, post_url, reddit_score, num_comments, created_at_utc, relevancy_score, relevancy_reason,
			status, discovered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (campaign_id, reddit_post_id) DO NOTHING`,
		l.ID, l.CampaignID, l.PollJobID, l.RedditPostID, l.SubredditName, l.Title, l.Content,
		l.Author, l.PostURL, l.RedditScore, l.NumComments, l.CreatedAtUTC,
		l.RelevancyScore, l.RelevancyReason, l.Status, l.DiscoveredAt, l.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetLead retrieves a lead by ID.
func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lead, err
}

// UpdateLeadScore writes the relevancy verdict for one lead.
func (s *Store) UpdateLeadScore(ctx context.Context, id uuid.UUID, score int, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE leads SET relevancy_score = $2, relevancy_reason = $3, updated_at = NOW() WHERE id = $1`,
		id, score, reason)
	return err
}

// DeleteLowScoreLeads removes this run's leads that scored below the
// cutoff or never received a score, returning how many were removed.
// Only rows created by the given job are touched.
func (s *Store) DeleteLowScoreLeads(ctx context.Context, jobID uuid.UUID, minScore int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM leads
		WHERE poll_job_id = $1 AND (relevancy_score IS NULL OR relevancy_score < $2)`,
		jobID, minScore)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListLeadsByJob returns the job's surviving leads, highest score first.
func (s *Store) ListLeadsByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		WHERE poll_job_id = $1
		ORDER BY relevancy_score DESC NULLS LAST, discovered_at`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListLeadsByCampaign returns the campaign's leads, highest score first.
func (s *Store) ListLeadsByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		WHERE campaign_id = $1
		ORDER BY relevancy_score DESC NULLS LAST, discovered_at DESC LIMIT $2`,
		campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListUnscoredLeads returns leads that never received a score, oldest
// first, for the rescore sweep.
func (s *Store) ListUnscoredLeads(ctx context.Context, limit int) ([]*domain.Lead, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		WHERE relevancy_score IS NULL
		ORDER BY discovered_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

func collectLeads(rows *sql.Rows) ([]*domain.Lead, error) {
	var leads []*domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// DeleteLead removes a single lead.
func (s *Store) DeleteLead(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	return err
}

// UpdateLeadSuggestions stores generated outreach drafts on a lead.
func (s *Store) UpdateLeadSuggestions(ctx context.Context, id uuid.UUID, comment, dm string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE leads SET suggested_comment = $2, suggested_dm = $3,
			has_suggestions = TRUE, suggestions_generated_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id, comment, dm)
	return err
}

// UpdateLeadStatus moves a lead through the outreach workflow.
func (s *Store) UpdateLeadStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

// =============================================================================
// Subreddit poll observability
// =============================================================================

// RecordSubredditPoll upserts per-subreddit poll stats. The newest post
// timestamp only moves forward.
func (s *Store) RecordSubredditPoll(ctx context.Context, name string, lastPostTimestamp int64, postsFound int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subreddit_polls (name, last_poll_at, last_post_timestamp, poll_count, total_posts_found)
		VALUES ($1, NOW(), $2, 1, $3)
		ON CONFLICT (name) DO UPDATE SET
			last_poll_at = NOW(),
			last_post_timestamp = GREATEST(subreddit_polls.last_post_timestamp, EXCLUDED.last_post_timestamp),
			poll_count = subreddit_polls.poll_count + 1,
			total_posts_found = subreddit_polls.total_posts_found + EXCLUDED.total_posts_found`,
		name, lastPostTimestamp, postsFound)
	return err
}

// GetSubredditPoll retrieves poll stats for a subreddit.
func (s *Store) GetSubredditPoll(ctx context.Context, name string) (*domain.SubredditPoll, error) {
	sp := &domain.SubredditPoll{}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, last_poll_at, last_post_timestamp, poll_count, total_posts_found
		FROM subreddit_polls WHERE name = $1`, name).Scan(
		&sp.Name, &sp.LastPollAt, &sp.LastPostTimestamp, &sp.PollCount, &sp.TotalPostsFound)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sp, err
}
