package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/leadscout/internal/config"
	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/pkg/httpretry"
)

// DirectProvider fetches Reddit data through a RapidAPI gateway. Calls
// are plain GETs with the x-rapidapi auth headers; post listings
// paginate with an "after" cursor.
type DirectProvider struct {
	cfg    config.RapidAPIConfig
	client httpretry.HTTPDoer

	// sleep between paginated requests, injectable for tests
	sleep func(time.Duration)
}

// NewDirectProvider creates a RapidAPI-backed provider.
func NewDirectProvider(cfg config.RapidAPIConfig) *DirectProvider {
	return &DirectProvider{
		cfg:    cfg,
		client: httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 3),
		sleep:  time.Sleep,
	}
}

// Kind identifies this provider for usage metering.
func (p *DirectProvider) Kind() domain.APIKind { return domain.APIRedditRapidAPI }

// pageSize is the upstream's max results per listing request.
const pageSize = 100

func (p *DirectProvider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := url.URL{
		Scheme:   "https",
		Host:     p.cfg.Host,
		Path:     path,
		RawQuery: params.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-host", p.cfg.Host)
	req.Header.Set("x-rapidapi-key", p.cfg.Key)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// rapidCommunity mirrors the /subreddits_search result entries.
type rapidCommunity struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	Description string `json:"public_description"`
	Subscribers int    `json:"subscribers"`
	Over18      bool   `json:"over18"`
}

// SearchCommunities runs a /subreddits_search per query and merges.
func (p *DirectProvider) SearchCommunities(ctx context.Context, queries []string, limit int) ([]Community, error) {
	var all []Community
	for _, q := range queries {
		params := url.Values{}
		params.Set("query", q)

		body, err := p.get(ctx, "/subreddits_search", params)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}

		var payload struct {
			Data []rapidCommunity `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("search %q: decode: %w", q, err)
		}

		for _, rc := range payload.Data {
			name := rc.DisplayName
			if name == "" {
				name = rc.Name
			}
			all = append(all, Community{
				Name:        name,
				Title:       rc.Title,
				Description: rc.Description,
				Subscribers: rc.Subscribers,
				NSFW:        rc.Over18,
			})
		}
	}
	return mergeCommunities(all, limit), nil
}

// rapidPost mirrors the /subreddit_new listing entries.
type rapidPost struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Over18      bool    `json:"over_18"`
}

// ScrapePosts pages through /subreddit_new until maxPosts posts are
// collected or the listing runs out.
func (p *DirectProvider) ScrapePosts(ctx context.Context, subreddit string, maxPosts int) ([]Post, error) {
	name := strings.TrimPrefix(CanonicalName(subreddit), "r/")

	var posts []Post
	after := ""
	for len(posts) < maxPosts {
		params := url.Values{}
		params.Set("subreddit", name)
		params.Set("limit", fmt.Sprintf("%d", pageSize))
		if after != "" {
			params.Set("after", after)
		}

		body, err := p.get(ctx, "/subreddit_new", params)
		if err != nil {
			return nil, fmt.Errorf("scrape %s: %w", subreddit, err)
		}

		var payload struct {
			Data  []rapidPost `json:"data"`
			After string      `json:"after"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("scrape %s: decode: %w", subreddit, err)
		}
		if len(payload.Data) == 0 {
			break
		}

		for _, rp := range payload.Data {
			link := rp.URL
			if rp.Permalink != "" {
				link = "https://www.reddit.com" + rp.Permalink
			}
			posts = append(posts, Post{
				ID:           rp.ID,
				Subreddit:    CanonicalName(rp.Subreddit),
				Title:        rp.Title,
				Content:      rp.Selftext,
				Author:       rp.Author,
				URL:          link,
				Score:        rp.Score,
				NumComments:  rp.NumComments,
				CreatedAtUTC: int64(rp.CreatedUTC),
				NSFW:         rp.Over18,
			})
		}

		if payload.After == "" {
			break
		}
		after = payload.After

		if p.cfg.SleepMillis > 0 {
			p.sleep(time.Duration(p.cfg.SleepMillis) * time.Millisecond)
		}
	}

	posts = filterPosts(posts)
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	return posts, nil
}

// SubredditRules fetches the subreddit's posted rules for the outreach
// compliance view.
func (p *DirectProvider) SubredditRules(ctx context.Context, subreddit string) ([]Rule, error) {
	name := strings.TrimPrefix(CanonicalName(subreddit), "r/")

	params := url.Values{}
	params.Set("subreddit", name)

	body, err := p.get(ctx, "/subreddit_rules", params)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", subreddit, err)
	}

	var payload struct {
		Rules []struct {
			ShortName   string `json:"short_name"`
			Description string `json:"description"`
		} `json:"rules"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("rules %s: decode: %w", subreddit, err)
	}

	rules := make([]Rule, 0, len(payload.Rules))
	for _, r := range payload.Rules {
		rules = append(rules, Rule{ShortName: r.ShortName, Description: r.Description})
	}
	return rules, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
