// Package llm provides interchangeable chat-completion clients used for
// search-query derivation, lead scoring, and outreach suggestions.
// Adapters exist for OpenAI, Google Gemini, and AWS Bedrock; all return
// plain text and token usage, and leave JSON parsing to the caller.
package llm

import (
	"context"

	"github.com/ignite/leadscout/internal/domain"
)

// Usage carries token counts from one completion call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Client is a single-turn chat completion client.
type Client interface {
	// Complete sends one prompt and returns the model's text reply.
	Complete(ctx context.Context, prompt string) (string, Usage, error)

	// Kind identifies the provider for usage metering.
	Kind() domain.APIKind
}
