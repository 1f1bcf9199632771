package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIKind identifies which external API a usage record counts against.
type APIKind string

const (
	APIRedditApify    APIKind = "REDDIT_APIFY"
	APIRedditRapidAPI APIKind = "REDDIT_RAPIDAPI"
	APILLMGemini      APIKind = "LLM_GEMINI"
	APILLMOpenAI      APIKind = "LLM_OPENAI"
	APILLMBedrock     APIKind = "LLM_BEDROCK"
	APIEmbedding      APIKind = "EMBEDDING"
)

// UsageRecord accumulates per-user API calls for one UTC day.
// Unique on (user_id, api_kind, utc_day); rows only grow.
type UsageRecord struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	APIKind      APIKind   `json:"api_kind" db:"api_kind"`
	UTCDay       time.Time `json:"utc_day" db:"utc_day"`
	CallCount    int       `json:"call_count" db:"call_count"`
	InputTokens  int64     `json:"input_tokens" db:"input_tokens"`
	OutputTokens int64     `json:"output_tokens" db:"output_tokens"`
}

// UTCDay truncates t to the UTC midnight that keys a usage row.
func UTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
