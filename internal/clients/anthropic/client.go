package anthropic

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

const (
	apiVersion      = "2023-06-01"
	maxHistoryTurns = 8
)

// Client talks to the Anthropic messages API and satisfies tutor.Provider.
// Unlike the OpenAI wire shape, the system prompt is a top-level field and
// the messages array carries only user/assistant turns.
type Client struct {
	log           *logger.Logger
	baseURL       string
	apiKey        string
	model         string
	fallbackModel string
	maxTokens     int
	httpClient    *http.Client

	maxRetries int
}

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

	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}

	fallbackModel := strings.TrimSpace(os.Getenv("ANTHROPIC_FALLBACK_MODEL"))
	if fallbackModel == "" {
		fallbackModel = "claude-3-5-haiku-latest"
	}

	maxTokens := 1024
	if v := os.Getenv("ANTHROPIC_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			maxTokens = parsed
		}
	}

	timeoutSec := 30
	if v := os.Getenv("ANTHROPIC_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := os.Getenv("ANTHROPIC_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	c := &Client{
		log:           log.With("service", "AnthropicClient"),
		baseURL:       baseURL,
		apiKey:        apiKey,
		model:         model,
		fallbackModel: fallbackModel,
		maxTokens:     maxTokens,
		httpClient:    &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:    maxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "anthropic" }

type anthropicHTTPError struct {
	StatusCode int
	Body       string
}

func (e *anthropicHTTPError) Error() string {
	return fmt.Sprintf("anthropic http %d: %s", e.StatusCode, e.Body)
}

func (e *anthropicHTTPError) HTTPStatusCode() int {
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
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
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
		return resp, raw, &anthropicHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
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
				return fmt.Errorf("anthropic decode error: %w", uErr)
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

		c.log.Warn("Anthropic request retrying",
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

type messageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string         `json:"model"`
	System    string         `json:"system,omitempty"`
	Messages  []messageParam `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) Complete(ctx context.Context, system string, history []tutor.Turn, user string) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", fmt.Errorf("missing user message")
	}

	messages := make([]messageParam, 0, len(history)+1)
	for _, t := range trimHistory(history) {
		messages = append(messages, messageParam{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, messageParam{Role: "user", Content: user})

	text, err := c.complete(ctx, c.model, strings.TrimSpace(system), messages)
	if err == nil {
		return text, nil
	}

	if isModelNotFound(err) && c.fallbackModel != "" && c.fallbackModel != c.model {
		c.log.Warn("Anthropic model unavailable; retrying with fallback model",
			"model", c.model,
			"fallback_model", c.fallbackModel,
		)
		return c.complete(ctx, c.fallbackModel, strings.TrimSpace(system), messages)
	}

	return "", err
}

func (c *Client) complete(ctx context.Context, model, system string, messages []messageParam) (string, error) {
	req := messagesRequest{
		Model:     model,
		System:    system,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}

	var resp messagesResponse
	if err := c.do(ctx, "POST", "/v1/messages", req, &resp); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("anthropic: empty completion")
	}
	return text, nil
}

func isModelNotFound(err error) bool {
	he, ok := err.(*anthropicHTTPError)
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
