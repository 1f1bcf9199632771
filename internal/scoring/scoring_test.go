package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/llm"
	"github.com/ignite/leadscout/internal/usage"
)

// fakeLLM replies to each prompt by scoring every id it finds, or with
// a canned error.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	score   int
	skipIDs map[string]bool
	err     error
	reply   string // overrides generated reply when set
}

var idPattern = regexp.MustCompile(`id: ([0-9a-f-]{36})`)

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, llm.Usage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return "", llm.Usage{}, f.err
	}
	if f.reply != "" {
		return f.reply, llm.Usage{InputTokens: 100, OutputTokens: 20}, nil
	}

	var entries []map[string]any
	for _, m := range idPattern.FindAllStringSubmatch(prompt, -1) {
		if f.skipIDs[m[1]] {
			continue
		}
		entries = append(entries, map[string]any{
			"id": m[1], "score": f.score, "reason": "test reason",
		})
	}
	out, _ := json.Marshal(entries)
	return "```json\n" + string(out) + "\n```", llm.Usage{InputTokens: 100, OutputTokens: 20}, nil
}

func (f *fakeLLM) Kind() domain.APIKind { return domain.APILLMGemini }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func makeLeads(n int) []*domain.Lead {
	leads := make([]*domain.Lead, n)
	for i := range leads {
		leads[i] = &domain.Lead{
			ID:            uuid.New(),
			RedditPostID:  fmt.Sprintf("t3_%03d", i),
			SubredditName: "r/saas",
			Title:         fmt.Sprintf("post %d", i),
		}
	}
	return leads
}

func TestScoreLeadsBatchCount(t *testing.T) {
	fake := &fakeLLM{score: 80}
	svc := NewService(fake, usage.NopRecorder{}, 20, 5)

	leads := makeLeads(99)
	results := svc.ScoreLeads(context.Background(), uuid.New(), "a B2B tool", leads, nil)

	if got := fake.callCount(); got != 5 {
		t.Errorf("LLM calls = %d, want ceil(99/20) = 5", got)
	}
	if len(results) != 99 {
		t.Fatalf("results = %d, want 99", len(results))
	}
	for _, r := range results {
		if r.Score != 80 {
			t.Errorf("score = %d, want 80", r.Score)
		}
	}
}

func TestScoreLeadsPreservesInputOrder(t *testing.T) {
	fake := &fakeLLM{score: 70}
	svc := NewService(fake, usage.NopRecorder{}, 10, 5)

	leads := makeLeads(35)
	results := svc.ScoreLeads(context.Background(), uuid.New(), "a tool", leads, nil)

	if len(results) != len(leads) {
		t.Fatalf("results = %d, want %d", len(results), len(leads))
	}
	for i, r := range results {
		if r.LeadID != leads[i].ID {
			t.Fatalf("result %d is for lead %s, want %s", i, r.LeadID, leads[i].ID)
		}
	}
}

func TestScoreLeadsSnapsScores(t *testing.T) {
	fake := &fakeLLM{score: 85}
	svc := NewService(fake, usage.NopRecorder{}, 20, 1)

	results := svc.ScoreLeads(context.Background(), uuid.New(), "a tool", makeLeads(3), nil)
	for _, r := range results {
		if r.Score != 80 {
			t.Errorf("score = %d, want 85 snapped to 80", r.Score)
		}
	}
}

func TestScoreLeadsMissingIDGetsDefault(t *testing.T) {
	leads := makeLeads(3)
	fake := &fakeLLM{score: 90, skipIDs: map[string]bool{leads[1].ID.String(): true}}
	svc := NewService(fake, usage.NopRecorder{}, 20, 1)

	results := svc.ScoreLeads(context.Background(), uuid.New(), "a tool", leads, nil)
	if results[1].Score != DefaultScore {
		t.Errorf("skipped lead score = %d, want %d", results[1].Score, DefaultScore)
	}
	if results[1].Reason != "Score not returned" {
		t.Errorf("reason = %q", results[1].Reason)
	}
	if results[0].Score != 90 || results[2].Score != 90 {
		t.Error("other leads should keep their model scores")
	}
}

func TestScoreLeadsBatchErrorDegrades(t *testing.T) {
	fake := &fakeLLM{err: errors.New("rate limited")}
	svc := NewService(fake, usage.NopRecorder{}, 20, 1)

	results := svc.ScoreLeads(context.Background(), uuid.New(), "a tool", makeLeads(2), nil)
	for _, r := range results {
		if r.Score != DefaultScore {
			t.Errorf("score = %d, want %d", r.Score, DefaultScore)
		}
		if r.Reason != "Batch error: rate limited" {
			t.Errorf("reason = %q", r.Reason)
		}
	}
}

func TestScoreLeadsProgressCallback(t *testing.T) {
	fake := &fakeLLM{score: 60}
	svc := NewService(fake, usage.NopRecorder{}, 10, 2)

	var mu sync.Mutex
	var seen []int
	svc.ScoreLeads(context.Background(), uuid.New(), "a tool", makeLeads(25), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		seen = append(seen, done)
	})

	if len(seen) != 3 {
		t.Errorf("callback fired %d times, want 3", len(seen))
	}
}

func TestGenerateSuggestions(t *testing.T) {
	fake := &fakeLLM{reply: "```json\n{\"comment\": \"great question!\", \"dm\": \"hey there\"}\n```"}
	svc := NewService(fake, usage.NopRecorder{}, 20, 5)

	lead := makeLeads(1)[0]
	sg, err := svc.GenerateSuggestions(context.Background(), uuid.New(), "a tool", lead, "", "")
	if err != nil {
		t.Fatalf("GenerateSuggestions: %v", err)
	}
	if sg.Comment != "great question!" || sg.Dm != "hey there" {
		t.Errorf("suggestion = %+v", sg)
	}
}

func TestTopCandidates(t *testing.T) {
	score := func(n int) *int { return &n }
	leads := []*domain.Lead{
		{ID: uuid.New(), RelevancyScore: score(90)},
		{ID: uuid.New(), RelevancyScore: score(100)},
		{ID: uuid.New(), RelevancyScore: score(80)},
		{ID: uuid.New(), RelevancyScore: nil},
		{ID: uuid.New(), RelevancyScore: score(90)},
	}

	top := TopCandidates(leads, 90, 2)
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2 (capped)", len(top))
	}
	if *top[0].RelevancyScore != 100 {
		t.Errorf("first = %d, want 100", *top[0].RelevancyScore)
	}
	if *top[1].RelevancyScore != 90 {
		t.Errorf("second = %d, want 90", *top[1].RelevancyScore)
	}
}
