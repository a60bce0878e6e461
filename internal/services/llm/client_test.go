package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func contentServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientHealthCheck(t *testing.T) {
	for _, content := range []string{`{"ok":true}`, "```json\n{\"ok\":true}\n```"} {
		client := NewClient(Config{APIKey: "test", BaseURL: contentServer(t, content).URL, Model: "demo-model"})
		if err := client.HealthCheck(context.Background()); err != nil {
			t.Fatalf("HealthCheck(%q) returned error: %v", content, err)
		}
	}
}

func TestClientHealthCheckUnauthorizedDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	var status *httpStatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if strings.Contains(err.Error(), "failed after") {
		t.Fatalf("non-transient error reported as exhausted: %v", err)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, time.Second}, slept); diff != "" {
		t.Fatalf("sleeps (-want +got):\n%s", diff)
	}
}

func TestClientRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var sleeps int
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithRetryMaxAttempts(2), WithSleeper(func(time.Duration) { sleeps++ }))
	_, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	var status *httpStatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusBadGateway {
		t.Fatalf("exhausted error lost its cause: %v", err)
	}
	if calls.Load() != 2 || sleeps != 1 {
		t.Fatalf("calls = %d, sleeps = %d; want 2 and 1", calls.Load(), sleeps)
	}
}

func TestRateSimilarity(t *testing.T) {
	var got similarityRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if err := json.Unmarshal([]byte(req.Messages[1].Content), &got); err != nil {
			t.Errorf("decode user prompt: %v", err)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"content": "Here you go:\n{\"scores\":[0.9, 1.4, -0.2]}",
			}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	scores, err := client.RateSimilarity(context.Background(), "Cool Pack", []string{"Cool Pack", "Cool Pack 2", "Other"})
	if err != nil {
		t.Fatalf("RateSimilarity: %v", err)
	}
	if diff := cmp.Diff([]float64{0.9, 1, 0}, scores); diff != "" {
		t.Fatalf("scores (-want +got):\n%s", diff)
	}
	if got.Query != "Cool Pack" || len(got.Candidates) != 3 {
		t.Fatalf("unexpected prompt payload: %+v", got)
	}
}

func TestRateSimilarityCountMismatch(t *testing.T) {
	client := NewClient(Config{APIKey: "k", BaseURL: contentServer(t, `{"scores":[0.5]}`).URL})
	if _, err := client.RateSimilarity(context.Background(), "Cool Pack", []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	for _, in := range []string{`{"a":1}`, "```json\n{\"a\":1}\n```", `answer: {"a":1} done`} {
		out.A = 0
		if err := DecodeLLMJSON(in, &out); err != nil || out.A != 1 {
			t.Fatalf("DecodeLLMJSON(%q) = %v, a=%d", in, err, out.A)
		}
	}
	if err := DecodeLLMJSON("  ", &out); err == nil {
		t.Fatal("expected empty payload error")
	}
}

func TestBackoffCaps(t *testing.T) {
	p := retryPolicy{attempts: 10, base: time.Second, max: 10 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}
