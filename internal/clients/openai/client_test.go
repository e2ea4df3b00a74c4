package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_FALLBACK_MODEL", "gpt-3.5-turbo")
	t.Setenv("OPENAI_MAX_RETRIES", "0")

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	c, err := NewClient(log, WithBaseURL(baseURL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCompleteSendsSystemAsLeadingMessage(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "What do you already know about fractions?"}},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	out, err := c.Complete(context.Background(), "You are Lilibet.", []tutor.Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello! What shall we learn?"},
	}, "teach me fractions")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "What do you already know about fractions?" {
		t.Fatalf("completion = %q", out)
	}

	if got.Model != "gpt-4o-mini" {
		t.Fatalf("model = %s", got.Model)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("messages = %d, want 4 (system + 2 history + user)", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "You are Lilibet." {
		t.Fatalf("first message = %+v, want system prompt", got.Messages[0])
	}
	if got.Messages[3].Role != "user" || got.Messages[3].Content != "teach me fractions" {
		t.Fatalf("last message = %+v, want the new user turn", got.Messages[3])
	}
}

func TestCompleteTruncatesHistory(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	history := make([]tutor.Turn, 0, 20)
	for i := 0; i < 20; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, tutor.Turn{Role: role, Content: "turn"})
	}

	c := testClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), "sys", history, "next"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// system + trimmed history + user
	if want := 1 + maxHistoryTurns + 1; len(got.Messages) != want {
		t.Fatalf("messages = %d, want %d", len(got.Messages), want)
	}
}

func TestCompleteRetriesWithFallbackModelOn404(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req.Model)
		if req.Model == "gpt-4o-mini" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"The model does not exist"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "fallback reply"}}},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	out, err := c.Complete(context.Background(), "sys", nil, "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "fallback reply" {
		t.Fatalf("completion = %q", out)
	}
	if len(models) != 2 || models[0] != "gpt-4o-mini" || models[1] != "gpt-3.5-turbo" {
		t.Fatalf("models tried = %v", models)
	}
}

func TestCompleteSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), "sys", nil, "hello"); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestCompleteRejectsEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "   "}}},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), "sys", nil, "hello"); err == nil {
		t.Fatal("expected error on blank completion")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	if _, err := NewClient(log); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}
}
