// Package scoring runs LLM relevancy scoring over candidate leads and
// generates outreach suggestions for the best of them.
//
// Scoring is batched: N leads produce ceil(N/batchSize) completion
// calls, fanned out under a concurrency cap. A failed batch degrades to
// the default score rather than failing the run; a post the model skips
// gets the default score too. Every call is metered per user.
package scoring

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/llm"
	"github.com/ignite/leadscout/internal/usage"
)

// DefaultScore is assigned when the model fails to score a post, either
// by omitting it from the reply or because the whole batch errored.
const DefaultScore = 50

// Result is the verdict for one lead.
type Result struct {
	LeadID uuid.UUID
	Score  int
	Reason string
}

// Suggestion holds generated outreach drafts for one lead.
type Suggestion struct {
	Comment string `json:"comment"`
	Dm      string `json:"dm"`
}

// Service scores leads and drafts outreach through an LLM client.
type Service struct {
	client        llm.Client
	usage         usage.Recorder
	batchSize     int
	maxConcurrent int
}

// NewService creates a scoring service. Non-positive batchSize defaults
// to 20; non-positive maxConcurrent defaults to 5.
func NewService(client llm.Client, recorder usage.Recorder, batchSize, maxConcurrent int) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Service{
		client:        client,
		usage:         recorder,
		batchSize:     batchSize,
		maxConcurrent: maxConcurrent,
	}
}

// ScoreLeads scores every lead and returns one Result per lead in input
// order. It never returns an error: failures degrade to DefaultScore so
// the pipeline keeps moving. onBatch, if non-nil, is called after each
// batch finishes with (batchesDone, totalBatches).
func (s *Service) ScoreLeads(ctx context.Context, userID uuid.UUID, business string, leads []*domain.Lead, onBatch func(done, total int)) []Result {
	if len(leads) == 0 {
		return nil
	}

	batches := chunkLeads(leads, s.batchSize)
	results := make([][]Result, len(batches))

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, s.maxConcurrent)
		mu   sync.Mutex
		done int
	)

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []*domain.Lead) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = s.scoreBatch(ctx, userID, business, batch)

			mu.Lock()
			done++
			d := done
			mu.Unlock()
			if onBatch != nil {
				onBatch(d, len(batches))
			}
		}(i, batch)
	}
	wg.Wait()

	out := make([]Result, 0, len(leads))
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// scoreBatch makes one completion call for a batch and maps the reply
// back onto the batch's leads.
func (s *Service) scoreBatch(ctx context.Context, userID uuid.UUID, business string, batch []*domain.Lead) []Result {
	reply, u, err := s.client.Complete(ctx, buildBatchPrompt(business, batch))
	s.usage.Record(ctx, userID, s.client.Kind(), u.InputTokens, u.OutputTokens)
	if err != nil {
		log.Printf("[Scoring] batch of %d failed: %v", len(batch), err)
		return defaultResults(batch, "Batch error: "+err.Error())
	}

	raw, err := llm.ExtractJSONArray(reply)
	if err != nil {
		log.Printf("[Scoring] batch reply unparseable: %v", err)
		return defaultResults(batch, "Batch error: "+err.Error())
	}

	var entries []struct {
		ID     string `json:"id"`
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("[Scoring] batch reply invalid JSON: %v", err)
		return defaultResults(batch, "Batch error: "+err.Error())
	}

	byID := make(map[string]Result, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			continue
		}
		byID[id.String()] = Result{
			LeadID: id,
			Score:  domain.SnapScore(e.Score),
			Reason: e.Reason,
		}
	}

	results := make([]Result, 0, len(batch))
	for _, lead := range batch {
		if r, ok := byID[lead.ID.String()]; ok {
			results = append(results, r)
			continue
		}
		results = append(results, Result{
			LeadID: lead.ID,
			Score:  DefaultScore,
			Reason: "Score not returned",
		})
	}
	return results
}

// GenerateSuggestions drafts a comment and a DM for one lead.
func (s *Service) GenerateSuggestions(ctx context.Context, userID uuid.UUID, business string, lead *domain.Lead, customComment, customDm string) (Suggestion, error) {
	reply, u, err := s.client.Complete(ctx, buildSuggestionPrompt(business, lead, customComment, customDm))
	s.usage.Record(ctx, userID, s.client.Kind(), u.InputTokens, u.OutputTokens)
	if err != nil {
		return Suggestion{}, err
	}

	raw, err := llm.ExtractJSONObject(reply)
	if err != nil {
		return Suggestion{}, err
	}

	var sg Suggestion
	if err := json.Unmarshal([]byte(raw), &sg); err != nil {
		return Suggestion{}, err
	}
	return sg, nil
}

// TopCandidates picks the leads eligible for automatic suggestions:
// scored at or above threshold, best first, at most max.
func TopCandidates(leads []*domain.Lead, threshold, max int) []*domain.Lead {
	var top []*domain.Lead
	for _, l := range leads {
		if l.RelevancyScore != nil && *l.RelevancyScore >= threshold {
			top = append(top, l)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return *top[i].RelevancyScore > *top[j].RelevancyScore
	})
	if max >= 0 && len(top) > max {
		top = top[:max]
	}
	return top
}

func chunkLeads(leads []*domain.Lead, size int) [][]*domain.Lead {
	var batches [][]*domain.Lead
	for start := 0; start < len(leads); start += size {
		end := start + size
		if end > len(leads) {
			end = len(leads)
		}
		batches = append(batches, leads[start:end])
	}
	return batches
}

func defaultResults(batch []*domain.Lead, reason string) []Result {
	results := make([]Result, 0, len(batch))
	for _, lead := range batch {
		results = append(results, Result{LeadID: lead.ID, Score: DefaultScore, Reason: reason})
	}
	return results
}
