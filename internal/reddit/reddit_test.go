package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ignite/leadscout/internal/config"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"golang", "r/golang"},
		{"r/golang", "r/golang"},
		{"/r/golang", "r/golang"},
		{"  saas ", "r/saas"},
	}
	for _, tt := range tests {
		if got := CanonicalName(tt.in); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeCommunities(t *testing.T) {
	found := []Community{
		{Name: "saas", Subscribers: 100},
		{Name: "r/saas", Subscribers: 120000}, // duplicate, keep bigger
		{Name: "startups", Subscribers: 900000},
		{Name: "gonewild", Subscribers: 5000000, NSFW: true},
	}

	merged := mergeCommunities(found, 10)
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2 (dedup + NSFW filter): %+v", len(merged), merged)
	}
	if merged[0].Name != "r/startups" {
		t.Errorf("first = %q, want r/startups (sorted by subscribers)", merged[0].Name)
	}
	if merged[1].Subscribers != 120000 {
		t.Errorf("dedup kept subscribers = %d, want 120000", merged[1].Subscribers)
	}
}

func TestMergeCommunitiesLimit(t *testing.T) {
	found := []Community{
		{Name: "a", Subscribers: 3},
		{Name: "b", Subscribers: 2},
		{Name: "c", Subscribers: 1},
	}
	merged := mergeCommunities(found, 2)
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2", len(merged))
	}
}

// --- Direct (RapidAPI) provider ---

func newDirectProvider(t *testing.T, handler http.Handler) (*DirectProvider, func()) {
	t.Helper()
	server := httptest.NewTLSServer(handler)
	p := NewDirectProvider(config.RapidAPIConfig{
		Host:           strings.TrimPrefix(server.URL, "https://"),
		Key:            "test-key",
		TimeoutSeconds: 5,
	})
	p.client = server.Client()
	p.sleep = func(time.Duration) {}
	return p, server.Close
}

func TestDirectSearchCommunities(t *testing.T) {
	p, done := newDirectProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subreddits_search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-rapidapi-key") != "test-key" {
			t.Error("missing auth header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"display_name": "saas", "title": "SaaS", "subscribers": 120000},
				{"display_name": "nsfwsub", "subscribers": 999, "over18": true},
			},
		})
	}))
	defer done()

	communities, err := p.SearchCommunities(context.Background(), []string{"analytics"}, 10)
	if err != nil {
		t.Fatalf("SearchCommunities: %v", err)
	}
	if len(communities) != 1 {
		t.Fatalf("len = %d, want 1 (NSFW filtered)", len(communities))
	}
	if communities[0].Name != "r/saas" {
		t.Errorf("name = %q, want r/saas", communities[0].Name)
	}
}

func TestDirectScrapePostsPaginates(t *testing.T) {
	page := 0
	p, done := newDirectProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subreddit_new" {
			t.Errorf("path = %q", r.URL.Path)
		}
		page++
		switch page {
		case 1:
			if r.URL.Query().Get("after") != "" {
				t.Error("first page should carry no cursor")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "t3_a", "subreddit": "saas", "title": "one", "author": "alice", "created_utc": 1724500000},
					{"id": "t3_b", "subreddit": "saas", "title": "two", "author": ""},
				},
				"after": "t3_b",
			})
		default:
			if r.URL.Query().Get("after") != "t3_b" {
				t.Errorf("after = %q, want t3_b", r.URL.Query().Get("after"))
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "t3_c", "subreddit": "saas", "title": "three", "author": "carol"},
				},
				"after": "",
			})
		}
	}))
	defer done()

	posts, err := p.ScrapePosts(context.Background(), "r/saas", 150)
	if err != nil {
		t.Fatalf("ScrapePosts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("len = %d, want 3", len(posts))
	}
	if posts[1].Author != "[deleted]" {
		t.Errorf("empty author = %q, want [deleted]", posts[1].Author)
	}
	if posts[0].CreatedAtUTC != 1724500000 {
		t.Errorf("CreatedAtUTC = %d", posts[0].CreatedAtUTC)
	}
	if page != 2 {
		t.Errorf("requests = %d, want 2", page)
	}
}

func TestDirectScrapePostsStopsAtMax(t *testing.T) {
	p, done := newDirectProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, pageSize)
		for i := range data {
			data[i] = map[string]any{"id": "t3_x", "subreddit": "saas", "title": "t", "author": "a"}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data, "after": "next"})
	}))
	defer done()

	posts, err := p.ScrapePosts(context.Background(), "saas", 50)
	if err != nil {
		t.Fatalf("ScrapePosts: %v", err)
	}
	if len(posts) != 50 {
		t.Errorf("len = %d, want 50 (capped)", len(posts))
	}
}

func TestDirectSubredditRules(t *testing.T) {
	p, done := newDirectProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subreddit_rules" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rules": []map[string]any{
				{"short_name": "No self promotion", "description": "Do not advertise."},
			},
		})
	}))
	defer done()

	rules, err := p.SubredditRules(context.Background(), "r/saas")
	if err != nil {
		t.Fatalf("SubredditRules: %v", err)
	}
	if len(rules) != 1 || rules[0].ShortName != "No self promotion" {
		t.Errorf("rules = %+v", rules)
	}
}

// --- Scraper (Apify) provider ---

func TestScraperScrapePosts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/acts/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run1", "status": "RUNNING", "defaultDatasetId": "ds1"},
		})
	})
	statusCalls := 0
	mux.HandleFunc("GET /v2/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		statusCalls++
		status := "RUNNING"
		if statusCalls >= 2 {
			status = "SUCCEEDED"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run1", "status": status, "defaultDatasetId": "ds1"},
		})
	})
	mux.HandleFunc("GET /v2/datasets/ds1/items", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"parsedId": "t3_a", "communityName": "saas", "title": "one", "authorName": "alice", "upVotes": 12},
			{"id": "t3_b", "title": "two", "author": "", "over18": true},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	p := NewScraperProvider(config.ApifyConfig{
		Token:               "tok",
		BaseURL:             server.URL,
		ScrapeActorID:       "acme~reddit-scraper",
		PollIntervalSeconds: 1,
		TimeoutSeconds:      30,
	})
	p.client = server.Client()

	posts, err := p.ScrapePosts(context.Background(), "r/saas", 20)
	if err != nil {
		t.Fatalf("ScrapePosts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("len = %d, want 1 (NSFW filtered)", len(posts))
	}
	if posts[0].ID != "t3_a" || posts[0].Score != 12 {
		t.Errorf("post = %+v", posts[0])
	}
	if statusCalls < 2 {
		t.Errorf("status polled %d times, want at least 2", statusCalls)
	}
}

func TestScraperRunFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/acts/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run2", "status": "RUNNING"},
		})
	})
	mux.HandleFunc("GET /v2/actor-runs/run2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run2", "status": "FAILED"},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	p := NewScraperProvider(config.ApifyConfig{
		Token:               "tok",
		BaseURL:             server.URL,
		ScrapeActorID:       "acme~reddit-scraper",
		PollIntervalSeconds: 1,
		TimeoutSeconds:      10,
	})
	p.client = server.Client()

	if _, err := p.ScrapePosts(context.Background(), "r/saas", 20); err == nil {
		t.Fatal("expected error for FAILED actor run")
	}
}
