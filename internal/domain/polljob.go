package domain

import (
	"time"

	"github.com/google/uuid"
)

// PollJobStatus enumerates the states of one pipeline execution.
type PollJobStatus string

const (
	PollJobRunning   PollJobStatus = "RUNNING"
	PollJobCompleted PollJobStatus = "COMPLETED"
	PollJobFailed    PollJobStatus = "FAILED"
	PollJobPartial   PollJobStatus = "PARTIAL"
)

// PollTrigger records what started a poll run.
type PollTrigger string

const (
	TriggerManual    PollTrigger = "manual"
	TriggerScheduled PollTrigger = "scheduled"
	TriggerFirstPoll PollTrigger = "first_poll"
)

// PollJob is the durable record of one pass of the polling pipeline.
// StartedAt is set on creation; CompletedAt is set iff the status is no
// longer RUNNING. Counters are monotone non-decreasing within one run.
type PollJob struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	CampaignID           uuid.UUID     `json:"campaign_id" db:"campaign_id"`
	Status               PollJobStatus `json:"status" db:"status"`
	Trigger              PollTrigger   `json:"trigger" db:"trigger"`
	SubredditsPolled     int           `json:"subreddits_polled" db:"subreddits_polled"`
	PostsFetched         int           `json:"posts_fetched" db:"posts_fetched"`
	PostsScored          int           `json:"posts_scored" db:"posts_scored"`
	LeadsCreated         int           `json:"leads_created" db:"leads_created"`
	LeadsDeleted         int           `json:"leads_deleted" db:"leads_deleted"`
	SuggestionsGenerated int           `json:"suggestions_generated" db:"suggestions_generated"`
	ErrorMessage         string        `json:"error_message" db:"error_message"`
	StartedAt            time.Time     `json:"started_at" db:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at" db:"completed_at"`
}
