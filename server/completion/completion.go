// Package completion implements the outbound call to the chat-completion
// provider. The relay speaks the provider's wire format directly: a JSON
// body with model, messages, and temperature, answered by a choices array
// whose first element carries the assistant message.
//
// Complete returns an explicit (text, error) result. Whether a failure is
// surfaced to the end user as text or as a structured error is the
// caller's policy decision, not this package's.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qiwen/wxrelay/config"
	"go.uber.org/zap"
)

// noReply is returned when the provider answers successfully but the first
// choice carries no content.
const noReply = "(no reply)"

// maxErrorBodyBytes caps how much of an upstream error body is read for
// logging.
const maxErrorBodyBytes = 4 << 10

// Client issues synchronous chat-completion requests. It holds no state
// between calls beyond the underlying http.Client's connection pool.
type Client struct {
	cfg        config.CompletionConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a completion client from the given configuration.
// The request timeout is enforced both on the http.Client and through the
// per-request context.
func NewClient(cfg config.CompletionConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Configured reports whether an API credential is present. Without one the
// client runs in echo mode.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// chatMessage is one role/content pair in the provider's wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the provider's chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatResponse is the subset of the provider's response the relay reads.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt to the chat-completion endpoint and returns the
// first choice's message content, trimmed. No retries, no streaming, no
// caching of identical prompts.
//
// Echo policy: when no API credential is configured, Complete returns
// "You said: <prompt>" with a nil error instead of calling out. This keeps
// the relay usable in the platform's test console before credentials exist.
//
// Timeouts, transport errors, non-2xx statuses, and malformed response
// bodies are returned as errors; a successful response with no content
// yields the "(no reply)" placeholder rather than an empty string.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return fmt.Sprintf("You said: %s", prompt), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read a bounded slice of the body for the log; the caller only
		// sees the status.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Warn("completion provider returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("model", c.cfg.Model),
			zap.ByteString("body", snippet),
		)
		return "", fmt.Errorf("completion provider returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	c.logger.Debug("completion succeeded",
		zap.String("model", c.cfg.Model),
		zap.Duration("duration", time.Since(start)),
	)

	if len(parsed.Choices) == 0 {
		return noReply, nil
	}
	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		return noReply, nil
	}
	return answer, nil
}
