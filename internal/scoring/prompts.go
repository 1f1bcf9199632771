package scoring

import (
	"fmt"
	"strings"

	"github.com/ignite/leadscout/internal/domain"
)

// scoringGuidelines pins the model to the closed score set. Anything
// else that comes back is snapped by domain.SnapScore.
const scoringGuidelines = `Score each post on how likely the author is a potential customer:
- 100: explicitly asking for a product like this one
- 90: describing the exact problem this product solves
- 80: discussing the problem space and open to solutions
- 70: adjacent problem, plausible fit
- 60: topically related, weak buying signal
- 50: barely related
- 0: unrelated, spam, or clearly not a potential customer

Use ONLY the scores 0, 50, 60, 70, 80, 90, 100.`

func buildBatchPrompt(business string, leads []*domain.Lead) string {
	var b strings.Builder
	b.WriteString("You are a lead qualification analyst for the following business:\n\n")
	b.WriteString(business)
	b.WriteString("\n\n")
	b.WriteString(scoringGuidelines)
	b.WriteString("\n\nPosts to score:\n")

	for _, lead := range leads {
		fmt.Fprintf(&b, "\n---\nid: %s\nsubreddit: %s\ntitle: %s\nbody: %s\n",
			lead.ID, lead.SubredditName, lead.Title, truncate(lead.Content, 1500))
	}

	b.WriteString(`
---
Reply with ONLY a JSON array, one entry per post, no prose:
[{"id": "<post id>", "score": <number>, "reason": "<one sentence>"}]`)
	return b.String()
}

func buildSuggestionPrompt(business string, lead *domain.Lead, customComment, customDm string) string {
	var b strings.Builder
	b.WriteString("You write outreach drafts for the following business:\n\n")
	b.WriteString(business)
	fmt.Fprintf(&b, "\n\nA promising post was found in %s:\ntitle: %s\nbody: %s\nauthor: %s\n",
		lead.SubredditName, lead.Title, truncate(lead.Content, 2000), lead.Author)

	b.WriteString(`
Write two drafts:
1. "comment": a public reply to the post. Helpful first, product mention second. No links unless asked.
2. "dm": a short direct message to the author. Personal, references their post, one clear call to action.
`)
	if customComment != "" {
		b.WriteString("\nAdditional comment instructions from the campaign owner:\n" + customComment + "\n")
	}
	if customDm != "" {
		b.WriteString("\nAdditional DM instructions from the campaign owner:\n" + customDm + "\n")
	}
	b.WriteString(`
Reply with ONLY a JSON object, no prose:
{"comment": "<text>", "dm": "<text>"}`)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
