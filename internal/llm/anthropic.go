package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	defaultTimeout   = 120 * time.Second

	maxAttempts      = 3
	retryBackoffBase = 500 * time.Millisecond
)

// ErrNotConfigured is returned when no API key is set. Callers that can
// run without the model check for it and degrade.
var ErrNotConfigured = errors.New("anthropic API key not configured")

// AnthropicClient calls the Anthropic messages API over plain HTTP.
// Rate-limited and 5xx responses are retried with exponential backoff.
type AnthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewAnthropicClient(apiKey, model string, logger *logrus.Logger) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *AnthropicClient) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout overrides the per-call deadline applied when the caller's
// context carries none.
func (c *AnthropicClient) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system,omitempty"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

type messagesResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage sends one conversation turn to the model. A timeout is
// applied when the caller's context carries no deadline.
func (c *AnthropicClient) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
		Tools:     req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, retryable, err := c.doRequest(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			break
		}

		backoff := retryBackoffBase * time.Duration(1<<(attempt-1))
		c.logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": backoff,
		}).Warn("Retrying messages request")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

// doRequest performs one HTTP exchange. The second return reports whether
// the failure is worth retrying (429 or 5xx).
func (c *AnthropicClient) doRequest(ctx context.Context, body []byte) (*Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, false, fmt.Errorf("messages request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read messages response: %w", err)
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, retryable, fmt.Errorf("failed to decode messages response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, retryable, fmt.Errorf("anthropic API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return nil, retryable, fmt.Errorf("anthropic API returned status %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{
		"stop_reason":   parsed.StopReason,
		"input_tokens":  parsed.Usage.InputTokens,
		"output_tokens": parsed.Usage.OutputTokens,
	}).Debug("Model response received")

	return &Response{
		Content:    parsed.Content,
		StopReason: parsed.StopReason,
		Usage:      parsed.Usage,
	}, false, nil
}
