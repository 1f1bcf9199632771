package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/leadscout/internal/config"
	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/pkg/httpretry"
)

// ScraperProvider fetches Reddit data through Apify actors. Each call
// starts an actor run, polls its status until a terminal state, then
// downloads the run's dataset items.
type ScraperProvider struct {
	cfg    config.ApifyConfig
	client httpretry.HTTPDoer
}

// NewScraperProvider creates an Apify-backed provider.
func NewScraperProvider(cfg config.ApifyConfig) *ScraperProvider {
	return &ScraperProvider{
		cfg: cfg,
		client: httpretry.NewRetryClient(&http.Client{
			Timeout: 60 * time.Second,
		}, 3),
	}
}

// Kind identifies this provider for usage metering.
func (p *ScraperProvider) Kind() domain.APIKind { return domain.APIRedditApify }

// actorRun is the subset of Apify's run envelope we read.
type actorRun struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// SearchCommunities runs the community-search actor once per query and
// merges the results.
func (p *ScraperProvider) SearchCommunities(ctx context.Context, queries []string, limit int) ([]Community, error) {
	var all []Community
	for _, q := range queries {
		input := map[string]any{
			"searches":   []string{q},
			"type":       "community",
			"maxItems":   limit,
			"skipPosts":  true,
			"searchSort": "relevance",
		}
		items, err := p.runActor(ctx, p.cfg.SearchActorID, input)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
		for _, raw := range items {
			all = append(all, decodeCommunity(raw))
		}
	}
	return mergeCommunities(all, limit), nil
}

// ScrapePosts fetches the subreddit's newest posts through the scrape
// actor.
func (p *ScraperProvider) ScrapePosts(ctx context.Context, subreddit string, maxPosts int) ([]Post, error) {
	input := map[string]any{
		"startUrls": []map[string]string{
			{"url": "https://www.reddit.com/" + CanonicalName(subreddit) + "/new/"},
		},
		"maxItems":     maxPosts,
		"skipComments": true,
		"sort":         "new",
	}
	items, err := p.runActor(ctx, p.cfg.ScrapeActorID, input)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", subreddit, err)
	}

	posts := make([]Post, 0, len(items))
	for _, raw := range items {
		post := decodePost(raw)
		if post.Subreddit == "" {
			post.Subreddit = CanonicalName(subreddit)
		}
		posts = append(posts, post)
	}
	posts = filterPosts(posts)
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	return posts, nil
}

// runActor starts an actor run, waits for it to finish, and returns the
// dataset items as raw JSON objects.
func (p *ScraperProvider) runActor(ctx context.Context, actorID string, input map[string]any) ([]json.RawMessage, error) {
	run, err := p.startRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	datasetID, err := p.waitForRun(ctx, run)
	if err != nil {
		return nil, err
	}

	return p.fetchDataset(ctx, datasetID)
}

func (p *ScraperProvider) startRun(ctx context.Context, actorID string, input map[string]any) (*actorRun, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs?token=%s",
		p.cfg.BaseURL, url.PathEscape(actorID), url.QueryEscape(p.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("start actor run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("start actor run: status %d: %s", resp.StatusCode, data)
	}

	var run actorRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode actor run: %w", err)
	}
	return &run, nil
}

// waitForRun polls the run status until SUCCEEDED or a failure state.
// The overall deadline comes from the configured timeout.
func (p *ScraperProvider) waitForRun(ctx context.Context, run *actorRun) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()

	ticker := time.NewTicker(p.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("actor run %s: %w", run.Data.ID, ctx.Err())
		case <-ticker.C:
		}

		status, datasetID, err := p.runStatus(ctx, run.Data.ID)
		if err != nil {
			return "", err
		}

		switch status {
		case "SUCCEEDED":
			return datasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("actor run %s ended with status %s", run.Data.ID, status)
		default:
			// READY or RUNNING, keep polling
			log.Printf("[Reddit] actor run %s status %s", run.Data.ID, status)
		}
	}
}

func (p *ScraperProvider) runStatus(ctx context.Context, runID string) (status, datasetID string, err error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s?token=%s",
		p.cfg.BaseURL, url.PathEscape(runID), url.QueryEscape(p.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("poll actor run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("poll actor run: status %d", resp.StatusCode)
	}

	var run actorRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return "", "", fmt.Errorf("decode run status: %w", err)
	}
	return run.Data.Status, run.Data.DefaultDatasetID, nil
}

func (p *ScraperProvider) fetchDataset(ctx context.Context, datasetID string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?token=%s&format=json",
		p.cfg.BaseURL, url.PathEscape(datasetID), url.QueryEscape(p.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch dataset: status %d", resp.StatusCode)
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

// apifyItem covers the field aliases the actors emit. Different actor
// versions disagree on names, so each logical field has fallbacks.
type apifyItem struct {
	// community fields
	Name            string `json:"name"`
	DisplayName     string `json:"displayName"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	PublicDesc      string `json:"publicDescription"`
	NumberOfMembers int    `json:"numberOfMembers"`
	Subscribers     int    `json:"subscribers"`
	Over18          *bool  `json:"over18"`
	NSFW            *bool  `json:"nsfw"`

	// post fields
	ID             string  `json:"id"`
	ParsedID       string  `json:"parsedId"`
	CommunityName  string  `json:"communityName"`
	Body           string  `json:"body"`
	Text           string  `json:"text"`
	AuthorName     string  `json:"authorName"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"authorFullname"`
	URL            string  `json:"url"`
	Link           string  `json:"link"`
	UpVotes        int     `json:"upVotes"`
	Score          int     `json:"score"`
	NumComments    int     `json:"numberOfComments"`
	CommentCount   int     `json:"numComments"`
	CreatedAt      string  `json:"createdAt"`
	CreatedUTC     float64 `json:"created_utc"`
}

func (it apifyItem) isNSFW() bool {
	if it.Over18 != nil {
		return *it.Over18
	}
	if it.NSFW != nil {
		return *it.NSFW
	}
	return false
}

func decodeCommunity(raw json.RawMessage) Community {
	var it apifyItem
	_ = json.Unmarshal(raw, &it)

	name := it.Name
	if name == "" {
		name = it.DisplayName
	}
	subs := it.NumberOfMembers
	if subs == 0 {
		subs = it.Subscribers
	}
	desc := it.Description
	if desc == "" {
		desc = it.PublicDesc
	}
	return Community{
		Name:        name,
		Title:       it.Title,
		Description: desc,
		Subscribers: subs,
		NSFW:        it.isNSFW(),
	}
}

func decodePost(raw json.RawMessage) Post {
	var it apifyItem
	_ = json.Unmarshal(raw, &it)

	id := it.ParsedID
	if id == "" {
		id = it.ID
	}
	content := it.Body
	if content == "" {
		content = it.Text
	}
	author := it.AuthorName
	if author == "" {
		author = it.Author
	}
	if author == "" {
		author = it.AuthorFullname
	}
	link := it.URL
	if link == "" {
		link = it.Link
	}
	score := it.UpVotes
	if score == 0 {
		score = it.Score
	}
	comments := it.NumComments
	if comments == 0 {
		comments = it.CommentCount
	}

	created := int64(it.CreatedUTC)
	if created == 0 && it.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, it.CreatedAt); err == nil {
			created = t.Unix()
		}
	}

	sub := ""
	if it.CommunityName != "" {
		sub = CanonicalName(it.CommunityName)
	}

	return Post{
		ID:           id,
		Subreddit:    sub,
		Title:        it.Title,
		Content:      content,
		Author:       author,
		URL:          link,
		Score:        score,
		NumComments:  comments,
		CreatedAtUTC: created,
		NSFW:         it.isNSFW(),
	}
}
