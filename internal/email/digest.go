package email

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/leadscout/internal/domain"
)

// digestTemplate is the Liquid source for the new-leads digest. It is
// parsed once at startup.
const digestTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #1a1a2e; max-width: 640px; margin: 0 auto;">
  <h2 style="color: #e85d2a;">{{ leads_created }} new lead{% if leads_created != 1 %}s{% endif %} for your campaign</h2>
  <p>Your latest poll checked {{ subreddits_polled }} subreddit{% if subreddits_polled != 1 %}s{% endif %} and scored {{ posts_scored }} posts.</p>

  <h3>Score distribution</h3>
  <table cellpadding="4" cellspacing="0" style="border-collapse: collapse;">
    {% for bucket in buckets %}
    <tr>
      <td style="padding-right: 12px;"><strong>{{ bucket.label }}</strong></td>
      <td>{{ bucket.count }}</td>
    </tr>
    {% endfor %}
  </table>

  <h3>Top leads</h3>
  {% for lead in top_leads %}
  <div style="border: 1px solid #e0e0e0; border-radius: 6px; padding: 12px; margin-bottom: 10px;">
    <div style="font-size: 13px; color: #666;">{{ lead.subreddit }} &middot; score {{ lead.score }}</div>
    <div style="font-weight: 600; margin: 4px 0;"><a href="{{ lead.url }}" style="color: #1a1a2e;">{{ lead.title | escape_text }}</a></div>
    <div style="font-size: 13px; color: #444;">{{ lead.snippet | escape_text }}</div>
    {% if lead.reason != "" %}<div style="font-size: 12px; color: #888; margin-top: 6px;">{{ lead.reason | escape_text }}</div>{% endif %}
  </div>
  {% endfor %}

  <p style="font-size: 12px; color: #999;">You receive this digest because scheduled polling is enabled for this campaign.</p>
</body>
</html>`

// topLeadLimit caps how many leads the digest shows inline.
const topLeadLimit = 10

// scoreBuckets are the digest's distribution rows, best first.
var scoreBuckets = []struct {
	label    string
	min, max int
}{
	{"90+", 90, 100},
	{"80-89", 80, 89},
	{"70-79", 70, 79},
	{"60-69", 60, 69},
	{"50-59", 50, 59},
}

// Digest renders the new-leads notification email.
type Digest struct {
	tmpl *liquid.Template
}

// NewDigest parses the digest template.
func NewDigest() (*Digest, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("escape_text", func(s string) string {
		return html.EscapeString(s)
	})

	tmpl, err := engine.ParseString(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &Digest{tmpl: tmpl}, nil
}

// Render builds the digest subject and HTML body from a finished run's
// surviving leads.
func (d *Digest) Render(job *domain.PollJob, leads []*domain.Lead) (subject, body string, err error) {
	sorted := make([]*domain.Lead, len(leads))
	copy(sorted, leads)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreOf(sorted[i]) > scoreOf(sorted[j])
	})

	top := make([]map[string]any, 0, topLeadLimit)
	for _, lead := range sorted {
		if len(top) == topLeadLimit {
			break
		}
		top = append(top, map[string]any{
			"subreddit": lead.SubredditName,
			"score":     scoreOf(lead),
			"title":     lead.Title,
			"url":       lead.PostURL,
			"snippet":   snippet(lead.Content, 160),
			"reason":    lead.RelevancyReason,
		})
	}

	buckets := make([]map[string]any, 0, len(scoreBuckets))
	for _, b := range scoreBuckets {
		count := 0
		for _, lead := range leads {
			if s := scoreOf(lead); s >= b.min && s <= b.max {
				count++
			}
		}
		buckets = append(buckets, map[string]any{"label": b.label, "count": count})
	}

	out, err := d.tmpl.RenderString(map[string]any{
		"leads_created":     job.LeadsCreated,
		"subreddits_polled": job.SubredditsPolled,
		"posts_scored":      job.PostsScored,
		"top_leads":         top,
		"buckets":           buckets,
	})
	if err != nil {
		return "", "", fmt.Errorf("render digest: %w", err)
	}

	subject = fmt.Sprintf("LeadScout: %d new lead%s found", job.LeadsCreated, plural(job.LeadsCreated))
	return subject, out, nil
}

func scoreOf(l *domain.Lead) int {
	if l.RelevancyScore == nil {
		return 0
	}
	return *l.RelevancyScore
}

func snippet(s string, n int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
