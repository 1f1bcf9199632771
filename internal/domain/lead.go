package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus enumerates the outreach workflow states of a lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "NEW"
	LeadContacted LeadStatus = "CONTACTED"
	LeadDismissed LeadStatus = "DISMISSED"
)

// AllowedScores is the closed set of relevancy values the scorer may
// assign. Out-of-set model output is snapped to the nearest member.
var AllowedScores = []int{0, 50, 60, 70, 80, 90, 100}

// SnapScore maps an arbitrary model-returned score onto AllowedScores.
// Ties snap downward, keeping the >=50 survivor gate conservative.
func SnapScore(score int) int {
	best := AllowedScores[0]
	bestDist := score - best
	if bestDist < 0 {
		bestDist = -bestDist
	}
	for _, s := range AllowedScores[1:] {
		d := score - s
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}

// Lead is a Reddit post saved against a campaign with a computed
// relevancy score and (optionally) outreach suggestions.
//
// PollJobID is nullable: rows created before poll jobs existed are
// still valid, and run-scoped stats must filter on poll_job_id rather
// than discovery time.
type Lead struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	CampaignID             uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	PollJobID              *uuid.UUID `json:"poll_job_id" db:"poll_job_id"`
	RedditPostID           string     `json:"reddit_post_id" db:"reddit_post_id"`
	SubredditName          string     `json:"subreddit_name" db:"subreddit_name"`
	Title                  string     `json:"title" db:"title"`
	Content                string     `json:"content" db:"content"`
	Author                 string     `json:"author" db:"author"`
	PostURL                string     `json:"post_url" db:"post_url"`
	RedditScore            int        `json:"reddit_score" db:"reddit_score"`
	NumComments            int        `json:"num_comments" db:"num_comments"`
	CreatedAtUTC           int64      `json:"created_at_utc" db:"created_at_utc"`
	RelevancyScore         *int       `json:"relevancy_score" db:"relevancy_score"`
	RelevancyReason        string     `json:"relevancy_reason" db:"relevancy_reason"`
	SuggestedComment       string     `json:"suggested_comment" db:"suggested_comment"`
	SuggestedDm            string     `json:"suggested_dm" db:"suggested_dm"`
	HasSuggestions         bool       `json:"has_suggestions" db:"has_suggestions"`
	SuggestionsGeneratedAt *time.Time `json:"suggestions_generated_at" db:"suggestions_generated_at"`
	Status                 LeadStatus `json:"status" db:"status"`
	DiscoveredAt           time.Time  `json:"discovered_at" db:"discovered_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}
