// Package telegram is a minimal Bot API client covering what the
// delivery pipeline needs: sendMessage with MarkdownV2 and typed
// rate-limit errors.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// defaultRetryAfter is used when a 429 carries no retry_after.
	defaultRetryAfter = 30 * time.Second
)

// RateLimitError reports a provider-signaled rate limit and how long
// to wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

type Config struct {
	Token   string
	ChatID  string
	TopicID string
	Timeout time.Duration
	// BaseURL overrides the Bot API host, for tests.
	BaseURL string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatID     string
	topicID    string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		topicID: cfg.TopicID,
		logger:  logger,
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	MessageThreadID       int    `json:"message_thread_id,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts one message to the configured chat. A 429 from the API is
// returned as *RateLimitError; every other failure is a plain error.
func (c *Client) Send(ctx context.Context, text string) error {
	payload := sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	}
	if c.topicID != "" {
		threadID, err := strconv.Atoi(c.topicID)
		if err != nil {
			return fmt.Errorf("invalid topic id %q: %w", c.topicID, err)
		}
		payload.MessageThreadID = threadID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if apiResp.OK {
		c.logger.Debug("message sent")
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests || apiResp.ErrorCode == http.StatusTooManyRequests {
		retryAfter := defaultRetryAfter
		if apiResp.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	return fmt.Errorf("telegram api error %d: %s", apiResp.ErrorCode, apiResp.Description)
}
