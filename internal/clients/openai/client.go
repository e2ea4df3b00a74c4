package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
	"github.com/jcondon11/lilibet-backend/internal/pkg/httpx"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

// maxHistoryTurns bounds how much conversation history is forwarded upstream.
const maxHistoryTurns = 8

// Client talks to the OpenAI chat completions API and satisfies
// tutor.Provider.
type Client struct {
	log           *logger.Logger
	baseURL       string
	apiKey        string
	model         string
	fallbackModel string
	httpClient    *http.Client

	maxRetries int
}

// Option overrides client defaults. Used by tests to point at a fake server.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(log *logger.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	fallbackModel := strings.TrimSpace(os.Getenv("OPENAI_FALLBACK_MODEL"))
	if fallbackModel == "" {
		fallbackModel = "gpt-3.5-turbo"
	}

	timeoutSec := 30
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	c := &Client{
		log:           log.With("service", "OpenAIClient"),
		baseURL:       baseURL,
		apiKey:        apiKey,
		model:         model,
		fallbackModel: fallbackModel,
		httpClient:    &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:    maxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "openai" }

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one tutoring turn. The system prompt travels as a leading
// system-role message; only the most recent history turns are forwarded.
func (c *Client) Complete(ctx context.Context, system string, history []tutor.Turn, user string) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", fmt.Errorf("missing user message")
	}

	messages := make([]chatMessage, 0, len(history)+2)
	if s := strings.TrimSpace(system); s != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s})
	}
	for _, t := range trimHistory(history) {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	text, err := c.complete(ctx, c.model, messages)
	if err == nil {
		return text, nil
	}

	// A 404 here means the configured model is gone from the account;
	// one attempt with the fallback model before surfacing the error.
	if isModelNotFound(err) && c.fallbackModel != "" && c.fallbackModel != c.model {
		c.log.Warn("OpenAI model unavailable; retrying with fallback model",
			"model", c.model,
			"fallback_model", c.fallbackModel,
		)
		return c.complete(ctx, c.fallbackModel, messages)
	}

	return "", err
}

func (c *Client) complete(ctx context.Context, model string, messages []chatMessage) (string, error) {
	req := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
	}

	var resp chatCompletionResponse
	if err := c.do(ctx, "POST", "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: empty completion")
	}
	return text, nil
}

func isModelNotFound(err error) bool {
	he, ok := err.(*openAIHTTPError)
	if !ok {
		return false
	}
	if he.StatusCode == 404 {
		return true
	}
	return he.StatusCode == 400 && strings.Contains(he.Body, "model")
}

func trimHistory(history []tutor.Turn) []tutor.Turn {
	clean := make([]tutor.Turn, 0, len(history))
	for _, t := range history {
		role := strings.TrimSpace(t.Role)
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if role != "user" && role != "assistant" {
			continue
		}
		clean = append(clean, tutor.Turn{Role: role, Content: content})
	}
	if len(clean) > maxHistoryTurns {
		clean = clean[len(clean)-maxHistoryTurns:]
	}
	return clean
}
