package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/leadscout/internal/config"
)

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain text", "plain text"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", "[1,2]"},
		{"  ```json\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	in := "Here is the result:\n```json\n{\"score\": 90, \"reason\": \"mentions {pricing}\"}\n```\nHope that helps!"
	got, err := ExtractJSONObject(in)
	if err != nil {
		t.Fatalf("ExtractJSONObject: %v", err)
	}

	var parsed struct {
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("extracted region is not valid JSON: %v", err)
	}
	if parsed.Score != 90 {
		t.Errorf("score = %d, want 90", parsed.Score)
	}
}

func TestExtractJSONObjectBracesInStrings(t *testing.T) {
	in := `{"text": "a } inside a string", "n": 1}`
	got, err := ExtractJSONObject(in)
	if err != nil {
		t.Fatalf("ExtractJSONObject: %v", err)
	}
	if got != in {
		t.Errorf("got %q, want full object", got)
	}
}

func TestExtractJSONArray(t *testing.T) {
	in := "Sure:\n[{\"id\": \"a\", \"score\": 80}, {\"id\": \"b\", \"score\": 50}]"
	got, err := ExtractJSONArray(in)
	if err != nil {
		t.Fatalf("ExtractJSONArray: %v", err)
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(got), &items); err != nil {
		t.Fatalf("extracted region is not valid JSON: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestExtractJSONObjectMissing(t *testing.T) {
	if _, err := ExtractJSONObject("no json here"); err == nil {
		t.Error("expected error for prose-only reply")
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 1 {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello"}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 3},
		})
	}))
	defer server.Close()

	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"})
	c.endpoint = server.URL
	c.client = server.Client()

	text, usage, err := c.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q", text)
	}
	if usage.InputTokens != 12 || usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestOpenAICompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "bad key", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "bad", Model: "gpt-4o-mini"})
	c.endpoint = server.URL
	c.client = server.Client()

	if _, _, err := c.Complete(context.Background(), "hi"); err == nil {
		t.Error("expected error for API error response")
	}
}

func TestGeminiComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "g-test" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "wor"}, {"text": "ld"}}}},
			},
			"usageMetadata": map[string]any{"promptTokenCount": 8, "candidatesTokenCount": 2},
		})
	}))
	defer server.Close()

	c := NewGeminiClient(config.GeminiConfig{APIKey: "g-test", Model: "gemini-2.0-flash"})
	c.baseURL = server.URL
	c.client = server.Client()

	text, usage, err := c.Complete(context.Background(), "say world")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "world" {
		t.Errorf("text = %q, want parts joined", text)
	}
	if usage.InputTokens != 8 || usage.OutputTokens != 2 {
		t.Errorf("usage = %+v", usage)
	}
}
