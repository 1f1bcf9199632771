// Package reddit fetches subreddit and post data through interchangeable
// upstream providers. Two adapters exist: an Apify actor (scraper) and a
// RapidAPI endpoint (direct). Both normalize into the same Community and
// Post shapes so the rest of the pipeline never sees provider JSON.
package reddit

import (
	"context"
	"sort"
	"strings"

	"github.com/ignite/leadscout/internal/domain"
)

// Community is a normalized subreddit search result.
type Community struct {
	Name        string `json:"name"` // canonical "r/<name>" form
	Title       string `json:"title"`
	Description string `json:"description"`
	Subscribers int    `json:"subscribers"`
	NSFW        bool   `json:"nsfw"`
}

// Post is a normalized subreddit post.
type Post struct {
	ID           string `json:"id"`
	Subreddit    string `json:"subreddit"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Author       string `json:"author"`
	URL          string `json:"url"`
	Score        int    `json:"score"`
	NumComments  int    `json:"num_comments"`
	CreatedAtUTC int64  `json:"created_at_utc"`
	NSFW         bool   `json:"nsfw"`
}

// Rule is one subreddit self-promotion rule entry.
type Rule struct {
	ShortName   string `json:"short_name"`
	Description string `json:"description"`
}

// Provider is the upstream Reddit data source.
type Provider interface {
	// SearchCommunities runs each query and returns a merged,
	// deduplicated, SFW-only community list sorted by subscriber
	// count descending.
	SearchCommunities(ctx context.Context, queries []string, limit int) ([]Community, error)

	// ScrapePosts fetches up to maxPosts recent posts from one
	// subreddit.
	ScrapePosts(ctx context.Context, subreddit string, maxPosts int) ([]Post, error)

	// Kind identifies the provider for usage metering.
	Kind() domain.APIKind
}

// RuleFetcher is implemented by providers that can fetch subreddit
// rules. The scraper provider cannot; callers type-assert.
type RuleFetcher interface {
	SubredditRules(ctx context.Context, subreddit string) ([]Rule, error)
}

// CanonicalName normalizes a subreddit name to the "r/<name>" form.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if !strings.HasPrefix(name, "r/") {
		name = "r/" + name
	}
	return name
}

// mergeCommunities deduplicates by canonical name, keeping the entry
// with the highest subscriber count, drops NSFW communities, and sorts
// by subscribers descending.
func mergeCommunities(found []Community, limit int) []Community {
	byName := make(map[string]Community)
	for _, c := range found {
		if c.NSFW {
			continue
		}
		c.Name = CanonicalName(c.Name)
		if prev, ok := byName[c.Name]; !ok || c.Subscribers > prev.Subscribers {
			byName[c.Name] = c
		}
	}

	merged := make([]Community, 0, len(byName))
	for _, c := range byName {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Subscribers != merged[j].Subscribers {
			return merged[i].Subscribers > merged[j].Subscribers
		}
		return merged[i].Name < merged[j].Name
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// filterPosts drops NSFW posts and fills in the author placeholder for
// deleted accounts.
func filterPosts(posts []Post) []Post {
	out := posts[:0]
	for _, p := range posts {
		if p.NSFW {
			continue
		}
		if p.Author == "" {
			p.Author = "[deleted]"
		}
		out = append(out, p)
	}
	return out
}
