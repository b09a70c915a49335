package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"focusflow/internal/domain"
)

const (
	DefaultModel               = "claude-sonnet-4-20250514"
	DefaultMaxTokens           = 1024
	DefaultCategorizeMaxTokens = 256
	DefaultEndpoint            = "http://localhost:3001/api/claude"
	APIVersion                 = "2023-06-01"

	// PlaceholderKey is the sample value shipped in env templates.
	PlaceholderKey = "your_claude_api_key_here"
)

type Config struct {
	APIKey              string
	Endpoint            string
	Model               string
	MaxTokens           int
	CategorizeMaxTokens int
	Timeout             time.Duration
	HTTPClient          *http.Client
	Logger              *log.Logger
}

// Client calls the completion proxy. It holds no conversation state.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.CategorizeMaxTokens <= 0 {
		cfg.CategorizeMaxTokens = DefaultCategorizeMaxTokens
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, client: client}
}

func (c *Client) logger() *log.Logger {
	if c.cfg.Logger != nil {
		return c.cfg.Logger
	}
	return log.Default()
}

// Configured reports whether a usable credential is present.
func (c *Client) Configured() bool {
	return KeyConfigured(c.cfg.APIKey)
}

func KeyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderKey
}

type BreakdownRequest struct {
	Title            string
	EstimatedMinutes *int
	MoodScore        int
}

// Breakdown asks the model to split a task into steps. It never returns an
// error: every failure is logged and reported as Outcome Failed.
func (c *Client) Breakdown(ctx context.Context, req BreakdownRequest) Result {
	if !c.Configured() {
		c.logger().Printf("ai: breakdown skipped: api key not configured")
		return Result{Outcome: Failed, Err: ErrNotConfigured}
	}
	mood := req.MoodScore
	if mood < 1 || mood > 5 {
		mood = domain.DefaultMoodScore
	}
	text, err := c.complete(ctx, BuildBreakdownPrompt(req.Title, req.EstimatedMinutes, mood), c.cfg.MaxTokens)
	if err != nil {
		c.logger().Printf("ai: breakdown request failed: %v", err)
		return Result{Outcome: Failed, Err: err}
	}
	res := ParseSteps(text)
	if !res.OK() {
		c.logger().Printf("ai: breakdown parse failed: %v", res.Err)
		if res.Err == nil {
			res.Err = errNoSteps
		}
		res.Outcome = Failed
	}
	return res
}

// Suggestion is a model-proposed classification for a new task.
type Suggestion struct {
	Category   domain.Category `json:"category"`
	Urgency    int             `json:"urgency"`
	Importance int             `json:"importance"`
}

// Categorize returns false when the key is missing or the reply is unusable.
func (c *Client) Categorize(ctx context.Context, title string) (Suggestion, bool) {
	if !c.Configured() {
		return Suggestion{}, false
	}
	text, err := c.complete(ctx, BuildCategorizePrompt(title), c.cfg.CategorizeMaxTokens)
	if err != nil {
		c.logger().Printf("ai: categorize request failed: %v", err)
		return Suggestion{}, false
	}
	s, err := ParseSuggestion(text)
	if err != nil {
		c.logger().Printf("ai: categorize parse failed: %v", err)
		return Suggestion{}, false
	}
	return s, true
}

// ParseSuggestion decodes a categorize reply, clamping scores to 1-10.
func ParseSuggestion(text string) (Suggestion, error) {
	var raw struct {
		Category   string          `json:"category"`
		Urgency    json.RawMessage `json:"urgency"`
		Importance json.RawMessage `json:"importance"`
	}
	if err := json.Unmarshal([]byte(fencedOrWhole(text)), &raw); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	cat := domain.Category(strings.ToLower(strings.TrimSpace(raw.Category)))
	if !cat.Valid() {
		cat = domain.CategoryOther
	}
	return Suggestion{
		Category:   cat,
		Urgency:    clampScore(positiveInt(raw.Urgency)),
		Importance: clampScore(positiveInt(raw.Importance)),
	}, nil
}

func clampScore(v int) int {
	switch {
	case v <= 0:
		return 5
	case v > 10:
		return 10
	default:
		return v
	}
}

var ErrNotConfigured = errors.New("ai api key not configured")

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling proxy: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("response has no text content")
}
