package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CampaignStatus enumerates the lifecycle states of a lead-gen campaign.
type CampaignStatus string

const (
	CampaignDiscovering CampaignStatus = "DISCOVERING"
	CampaignActive      CampaignStatus = "ACTIVE"
	CampaignPaused      CampaignStatus = "PAUSED"
	CampaignCompleted   CampaignStatus = "COMPLETED"
	CampaignDeleted     CampaignStatus = "DELETED"
)

// Campaign is a user's persistent query: a business description, derived
// search phrases, and a selected subreddit set.
type Campaign struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	UserID              uuid.UUID      `json:"user_id" db:"user_id"`
	Status              CampaignStatus `json:"status" db:"status"`
	BusinessDescription string         `json:"business_description" db:"business_description"`
	SearchQueries       pq.StringArray `json:"search_queries" db:"search_queries"`
	PollIntervalHours   int            `json:"poll_interval_hours" db:"poll_interval_hours"`
	LastPollAt          *time.Time     `json:"last_poll_at" db:"last_poll_at"`
	CustomCommentPrompt string         `json:"custom_comment_prompt" db:"custom_comment_prompt"`
	CustomDmPrompt      string         `json:"custom_dm_prompt" db:"custom_dm_prompt"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// CampaignSubreddit is one community in a campaign's working set.
// Unique on (campaign_id, name). Inactive rows are excluded from polling
// without deleting history.
type CampaignSubreddit struct {
	ID             uuid.UUID `json:"id" db:"id"`
	CampaignID     uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Name           string    `json:"name" db:"name"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Subscribers    int       `json:"subscribers" db:"subscribers"`
	RelevanceScore *float64  `json:"relevance_score" db:"relevance_score"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// SubredditPoll is the global observability record per subreddit name.
type SubredditPoll struct {
	Name              string     `json:"name" db:"name"`
	LastPollAt        *time.Time `json:"last_poll_at" db:"last_poll_at"`
	LastPostTimestamp int64      `json:"last_post_timestamp" db:"last_post_timestamp"`
	PollCount         int        `json:"poll_count" db:"poll_count"`
	TotalPostsFound   int        `json:"total_posts_found" db:"total_posts_found"`
}
