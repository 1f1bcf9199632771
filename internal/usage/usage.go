// Package usage accumulates per-user external API consumption.
//
// Every provider call increments one (user, api_kind, utc_day) row.
// Recording failures never fail the caller's operation; metering is
// best effort and losing a count is cheaper than losing a poll run.
package usage

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
)

// Recorder is the interface providers use to meter their calls.
type Recorder interface {
	Record(ctx context.Context, userID uuid.UUID, kind domain.APIKind, inTokens, outTokens int64)
}

// Counter records usage rows in PostgreSQL.
type Counter struct {
	db *sql.DB
}

// NewCounter creates a usage counter over the given database handle.
func NewCounter(db *sql.DB) *Counter {
	return &Counter{db: db}
}

// Record increments the user's call counter for kind on today's UTC
// day. Token counts are zero for non-LLM calls.
func (c *Counter) Record(ctx context.Context, userID uuid.UUID, kind domain.APIKind, inTokens, outTokens int64) {
	day := domain.UTCDay(time.Now())
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO usage_records (user_id, api_kind, utc_day, call_count, input_tokens, output_tokens)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (user_id, api_kind, utc_day) DO UPDATE SET
			call_count = usage_records.call_count + 1,
			input_tokens = usage_records.input_tokens + EXCLUDED.input_tokens,
			output_tokens = usage_records.output_tokens + EXCLUDED.output_tokens`,
		userID, kind, day, inTokens, outTokens)
	if err != nil {
		log.Printf("[Usage] record %s for user %s: %v", kind, userID, err)
	}
}

// ForUser returns the user's usage rows for the last `days` UTC days,
// newest first.
func (c *Counter) ForUser(ctx context.Context, userID uuid.UUID, days int) ([]domain.UsageRecord, error) {
	if days <= 0 {
		days = 30
	}
	since := domain.UTCDay(time.Now().AddDate(0, 0, -days))
	rows, err := c.db.QueryContext(ctx, `
		SELECT user_id, api_kind, utc_day, call_count, input_tokens, output_tokens
		FROM usage_records
		WHERE user_id = $1 AND utc_day >= $2
		ORDER BY utc_day DESC, api_kind`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var r domain.UsageRecord
		if err := rows.Scan(&r.UserID, &r.APIKind, &r.UTCDay,
			&r.CallCount, &r.InputTokens, &r.OutputTokens); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// NopRecorder discards usage records. Used in tests and when metering
// is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, uuid.UUID, domain.APIKind, int64, int64) {}
