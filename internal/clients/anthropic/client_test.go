package anthropic

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
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest")
	t.Setenv("ANTHROPIC_FALLBACK_MODEL", "claude-3-5-haiku-latest")
	t.Setenv("ANTHROPIC_MAX_RETRIES", "0")

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

func TestCompleteUsesTopLevelSystemField(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("x-api-key header = %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v != apiVersion {
			t.Errorf("anthropic-version header = %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Let's think about where rain comes from."},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	out, err := c.Complete(context.Background(), "You are Lilibet.", []tutor.Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello!"},
	}, "why does it rain?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Let's think about where rain comes from." {
		t.Fatalf("completion = %q", out)
	}

	if got.System != "You are Lilibet." {
		t.Fatalf("system field = %q, want the prompt at the top level", got.System)
	}
	if got.MaxTokens <= 0 {
		t.Fatalf("max_tokens = %d, want positive", got.MaxTokens)
	}
	// No system-role message in the array; just history + new turn.
	if len(got.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(got.Messages))
	}
	for _, m := range got.Messages {
		if m.Role == "system" {
			t.Fatalf("system role leaked into messages array: %+v", got.Messages)
		}
	}
	if last := got.Messages[2]; last.Role != "user" || last.Content != "why does it rain?" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestCompleteConcatenatesTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "part one "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "part two"},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	out, err := c.Complete(context.Background(), "sys", nil, "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "part one part two" {
		t.Fatalf("completion = %q", out)
	}
}

func TestCompleteRetriesWithFallbackModelOn404(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req.Model)
		if req.Model == "claude-3-5-sonnet-latest" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"not_found_error","message":"model not found"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "fallback reply"}},
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
	if len(models) != 2 || models[1] != "claude-3-5-haiku-latest" {
		t.Fatalf("models tried = %v", models)
	}
}

func TestCompleteSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"type":"permission_error"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), "sys", nil, "hello"); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	if _, err := NewClient(log); err == nil {
		t.Fatal("expected error without ANTHROPIC_API_KEY")
	}
}
