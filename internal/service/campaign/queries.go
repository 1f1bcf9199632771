package campaign

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/llm"
)

// maxSearchQueries caps how many search phrases a campaign carries.
const maxSearchQueries = 5

const queryPrompt = `Given this business description, produce short search phrases a
potential customer might use on Reddit when looking for communities
about this problem space. Phrases should be 1-3 words, lowercase, no
punctuation.

Business:
%s

Reply with ONLY a JSON array of strings, at most 5 entries:
["phrase one", "phrase two"]`

// deriveQueries asks the LLM for search phrases, falling back to
// keyword extraction when the model is unavailable or unparseable.
func (s *Service) deriveQueries(ctx context.Context, userID uuid.UUID, business string) []string {
	reply, u, err := s.llm.Complete(ctx, strings.Replace(queryPrompt, "%s", business, 1))
	s.usage.Record(ctx, userID, s.llm.Kind(), u.InputTokens, u.OutputTokens)
	if err == nil {
		if raw, jerr := llm.ExtractJSONArray(reply); jerr == nil {
			var queries []string
			if json.Unmarshal([]byte(raw), &queries) == nil {
				queries = cleanQueries(queries)
				if len(queries) > 0 {
					return queries
				}
			}
		}
	}
	if err != nil {
		log.Printf("[Campaign] query derivation failed, using keyword fallback: %v", err)
	}
	return extractKeywords(business, maxSearchQueries)
}

func cleanQueries(queries []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range queries {
		q = strings.ToLower(strings.TrimSpace(q))
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if len(out) == maxSearchQueries {
			break
		}
	}
	return out
}

// stopwords excluded from keyword extraction. Short and unapologetically
// incomplete; the LLM path is the primary one.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "our": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "they": {}, "this": {}, "to": {},
	"was": {}, "we": {}, "which": {}, "who": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

// extractKeywords pulls the most frequent non-stopword terms from the
// business description.
func extractKeywords(text string, max int) []string {
	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) < 3 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}
