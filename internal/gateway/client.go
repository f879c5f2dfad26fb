// Package gateway is the only network boundary: it relays chat messages to
// the task backend.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/amirbrooks/taskcards/internal/logger"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:8000"

const chatPath = "/chat"

var ErrMalformedResponse = errors.New("malformed response body")

// StatusError is returned for non-2xx replies. Body holds whatever the
// backend sent back, for diagnostics.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("chat request failed: %s", e.Status)
	if e.Status == "" {
		msg = fmt.Sprintf("chat request failed: status %d", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Payload is a decoded response body. Its shape belongs to the backend.
type Payload struct {
	Raw   json.RawMessage
	Value any
}

// Get reads a value from the payload with a gjson path.
func (p Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p.Raw, path)
}

// Reply picks the human-readable answer out of the payload, falling back to
// the raw JSON when no known field is present.
func (p Payload) Reply() string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	for _, key := range []string{"response", "reply", "message"} {
		if r := p.Get(key); r.Type == gjson.String {
			return r.String()
		}
	}
	return string(p.Raw)
}

type chatRequest struct {
	Message string `json:"message"`
}

// Client posts chat messages to a fixed base URL. It keeps no state between
// calls and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *resty.Client
	log     logger.Logger
}

type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// WithDebug turns on resty request/response dumps.
func WithDebug(on bool) Option {
	return func(c *Client) {
		c.http.SetDebug(on)
	}
}

// WithLogger routes resty's own warnings and debug dumps through l.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

type restyLogger struct {
	l logger.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL must have a host, got: %s", baseURL)
	}

	c := &Client{baseURL: baseURL, http: resty.New(), log: logger.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetCookieJar(nil).
		SetRetryCount(0).
		SetLogger(restyLogger{l: c.log})
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// SendChatMessage posts {"message": message} to /chat and returns the
// decoded reply. Transport errors, non-2xx statuses and bodies that are not
// JSON all fail the call; nothing is retried.
func (c *Client) SendChatMessage(ctx context.Context, message string) (Payload, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Message: message}).
		Post(chatPath)
	if err != nil {
		return Payload{}, fmt.Errorf("chat request: %w", err)
	}
	c.log.Debug("chat reply", "status", resp.StatusCode(), "bytes", len(resp.Body()))
	if !resp.IsSuccess() {
		return Payload{}, &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       string(resp.Body()),
		}
	}
	body := resp.Body()
	if !json.Valid(body) {
		return Payload{}, fmt.Errorf("chat request: %w", ErrMalformedResponse)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Payload{}, fmt.Errorf("chat request: %w: %v", ErrMalformedResponse, err)
	}
	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return Payload{Raw: raw, Value: v}, nil
}
