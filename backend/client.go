// Package backend implements concierge.Streamer against the assistant's
// HTTP streaming endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/concierge"
)

const (
	defaultBaseURL = "http://localhost:8000"
	chatPath       = "/api/chat/stream"
	loginPath      = "/api/auth/login"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4 << 10
)

// Interface compliance check.
var _ concierge.Streamer = (*Client)(nil)

// Client streams chat turns from the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	retry      RetryConfig
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with chat requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger. Defaults to discarding all output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the backoff wait. Tests use it to record delays
// without waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// New creates a new [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		retry:      DefaultRetryConfig(),
		logger:     slog.New(slog.DiscardHandler),
		sleep:      sleep,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// chatRequest is the JSON body of a chat request.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// StreamChat sends req and delivers the response through h. Transient
// failures are retried with exponential backoff; h.OnReconnecting fires
// before each retry and h.OnReconnected once a retry is accepted. The turn
// ends with exactly one h.OnError or h.OnComplete call.
func (c *Client) StreamChat(ctx context.Context, req concierge.ChatRequest, h concierge.Handler) {
	body, err := json.Marshal(chatRequest{Message: req.Message, SessionID: req.SessionID})
	if err != nil {
		h.Fail(fmt.Errorf("backend: encode request: %w", err))
		return
	}

	maxAttempts := max(c.retry.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		delivered, err := c.attempt(ctx, body, h, attempt > 1)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			h.Fail(ctx.Err())
			return
		}
		if !IsRetryable(err) || attempt >= maxAttempts {
			c.logger.Error("chat stream failed", "attempt", attempt, "error", err)
			h.Fail(err)
			return
		}

		c.logger.Warn("chat stream interrupted, retrying",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if delivered {
			// The retry replays the turn from the start.
			h.Handle(concierge.EventClear{})
		}
		h.Reconnecting(attempt, maxAttempts)
		if err := c.sleep(ctx, c.retry.Backoff(attempt)); err != nil {
			h.Fail(err)
			return
		}
	}
}

// attempt performs one request. It returns nil once a terminal event has
// been delivered. delivered reports whether any token reached the handler.
func (c *Client) attempt(ctx context.Context, body []byte, h concierge.Handler, reconnect bool) (delivered bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return false, &permanentError{fmt.Errorf("backend: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, parseHTTPError(resp)
	}
	if reconnect {
		c.logger.Info("chat stream reconnected")
		h.Reconnected()
	}

	dec := newDecoder(resp.Body, c.logger)
	for {
		evt, err := dec.Next()
		if err == io.EOF {
			return delivered, concierge.ErrUnexpectedEnd
		}
		if err != nil {
			return delivered, err
		}
		if _, ok := evt.(concierge.EventToken); ok {
			delivered = true
		}
		h.Handle(evt)
		if concierge.IsTerminal(evt) {
			// Remaining bytes are discarded when the deferred Close runs.
			return delivered, nil
		}
	}
}

func parseHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}
