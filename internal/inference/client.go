// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yasser8111/HUAI/internal/model"
)

// Configuration constants for the inference endpoint.
const (
	// DefaultEndpoint is the Hugging Face router chat-completions URL.
	DefaultEndpoint = "https://router.huggingface.co/v1/chat/completions"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of extra attempts after a 5xx.
	DefaultMaxRetries = 2

	// DefaultMaxTokens is sent as max_tokens on every request.
	DefaultMaxTokens = 9999

	// DefaultUserAgent identifies the client to the endpoint.
	DefaultUserAgent = "huai/1.0"

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient pools connections across clients. Deadlines come from the
// per-attempt context, so the client itself has no timeout.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Config configures a Client. Zero values take the package defaults, except
// MaxRetries where a negative value means "no retries".
type Config struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ChatRequest is the body sent to the chat-completions endpoint.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

// ChatResponse is the subset of the chat-completions response we read.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      model.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// Client sends chat-completion requests. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	maxTokens  int
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client from cfg. An empty API key is allowed; Execute
// then fails with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		maxTokens:  cfg.MaxTokens,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.httpClient == nil {
		c.httpClient = sharedHTTPClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Endpoint returns the chat-completions URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// MaxAttempts returns the total number of attempts per Execute call.
func (c *Client) MaxAttempts() int {
	return 1 + c.maxRetries
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key, safe
// for logs.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// Execute sends messages to modelID and returns the trimmed reply text.
//
// Attempts are made until one succeeds, a non-retryable error occurs, or
// 1+MaxRetries attempts have been made. Cancelling ctx stops the loop.
func (c *Client) Execute(ctx context.Context, messages []model.Message, modelID string, temperature float64) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(ChatRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		reply, err := c.attempt(ctx, body)
		c.logger.Debug("inference attempt",
			"model", modelID,
			"attempt", attempt,
			"duration", time.Since(start),
			"key", c.KeyFingerprint(),
			"error", err)
		if err == nil {
			return reply, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	c.logger.Warn("inference retries exhausted", "model", modelID, "attempts", c.MaxAttempts(), "error", lastErr)
	return "", lastErr
}

// attempt performs a single request under its own deadline.
func (c *Client) attempt(parent context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.transportError(parent, ctx, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			return "", ErrTimeout
		}
		return "", &UpstreamError{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "response contained no choices"}
	}
	return strings.TrimSpace(chatResp.GetContent()), nil
}

// transportError classifies a failure where no response was received.
func (c *Client) transportError(parent, attemptCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	default:
		return &UpstreamError{Message: err.Error(), Err: err}
	}
}

// setHeaders sets the required headers for chat-completions requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
