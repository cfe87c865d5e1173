// Package telegram posts notifications through the Telegram Bot API.
// It escapes messages for MarkdownV2, retries transient failures, and
// respects the API's per-chat rate limit.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// Client sends messages to a single chat.
type Client struct {
	baseURL  string
	token    string
	chatID   string
	threadID string

	httpClient *http.Client

	// Rate limiting: the Bot API allows roughly 1 message/second per chat
	mu           sync.Mutex
	lastPostTime time.Time
	rateInterval time.Duration

	// Retry configuration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff sets the initial and maximum backoff durations for retries.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// WithThreadID routes messages to a forum topic within the chat.
func WithThreadID(id string) Option {
	return func(c *Client) {
		c.threadID = id
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates a Telegram client for one bot token and chat.
func NewClient(token, chatID string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		chatID:  chatID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateInterval:   time.Second,
		maxRetries:     3,
		initialBackoff: 1 * time.Second,
		maxBackoff:     30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send posts a MarkdownV2 message. Quiet messages arrive without a
// notification sound; loud ones override the receiver's mute.
func (c *Client) Send(ctx context.Context, text string, loud bool) error {
	q := url.Values{}
	q.Set("chat_id", c.chatID)
	q.Set("parse_mode", "MarkdownV2")
	q.Set("text", EscapeMarkdownV2(text))
	q.Set("disable_notification", strconv.FormatBool(!loud))
	if c.threadID != "" {
		q.Set("message_thread_id", c.threadID)
	}

	return c.callWithRetry(ctx, "sendMessage", q)
}

// EscapeMarkdownV2 escapes periods, which MarkdownV2 reserves but which
// show up constantly in power readings and durations. Other reserved
// characters are left alone so device names can carry markup.
func EscapeMarkdownV2(s string) string {
	return strings.ReplaceAll(s, ".", "\\.")
}

// callWithRetry invokes an API method with exponential backoff retry.
func (c *Client) callWithRetry(ctx context.Context, method string, q url.Values) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			// Exponential backoff with cap
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		// Rate limiting: ensure at least 1 second between posts
		c.enforceRateLimit()

		err := c.call(ctx, method, q)
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// enforceRateLimit spaces out requests to stay under the API limit.
func (c *Client) enforceRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastPostTime)
	if elapsed < c.rateInterval {
		time.Sleep(c.rateInterval - elapsed)
	}

	c.lastPostTime = time.Now()
}

// call performs one GET against the Bot API and checks the envelope.
func (c *Client) call(ctx context.Context, method string, q url.Values) error {
	u := fmt.Sprintf("%s/bot%s/%s?%s", c.baseURL, c.token, method, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RetryableError{Err: fmt.Errorf("calling %s: %w", method, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RetryableError{
			Err:       fmt.Errorf("rate limited (429): %s", string(body)),
			RateLimit: true,
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &RetryableError{Err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	var envelope struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(body))
	}
	if !envelope.OK {
		return fmt.Errorf("%s rejected: %s", method, envelope.Description)
	}
	return nil
}

// RetryableError indicates an error that may be retried.
type RetryableError struct {
	Err       error
	RateLimit bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// isRetryableError checks if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*RetryableError)
	return ok
}

// ReadCredential loads a one-line secret from a file, expanding a leading
// ~ to the user's home directory.
func ReadCredential(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("credential file %s is empty", path)
	}
	return secret, nil
}
