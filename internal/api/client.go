package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Defaults used when Config fields are zero.
const (
	DefaultBaseURL      = "http://localhost:8000/api"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 250 * time.Millisecond
)

// Config holds the externally configurable client settings.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int // retries for idempotent GET requests
	RetryBackoff time.Duration
	Debug        bool // log requests and responses
}

// DefaultConfig returns the client configuration used by a fresh install.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// Client talks to the alden backend REST API. It returns wire-format
// records unchanged; mapping to the domain model happens in transform.
type Client struct {
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	debug      bool
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for debug request logging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client from cfg, filling zero fields with defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{},
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		debug:      cfg.Debug,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// request sends a JSON request and decodes the JSON response into out.
// out may be nil when the response body is not needed.
func (c *Client) request(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, endpoint, err)
		}
	}
	return c.do(ctx, method, endpoint, "application/json", payload, c.timeout, out)
}

// do runs a request, retrying GETs on transient failures with exponential backoff.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, payload []byte, timeout time.Duration, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.maxRetries
	}

	delay := c.backoff
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.log.Debug().
				Str("method", method).
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Err(err).
				Msg("retrying request")

			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return err
			case <-t.C:
			}
			delay *= 2
		}

		err = c.once(ctx, method, endpoint, contentType, payload, timeout, out)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, method, endpoint, contentType string, payload []byte, timeout time.Duration, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.baseURL + endpoint
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, endpoint, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	if c.debug {
		ev := c.log.Debug().Str("method", method).Str("url", url)
		if payload != nil && contentType == "application/json" {
			ev = ev.RawJSON("body", payload)
		} else if payload != nil {
			ev = ev.Int("bytes", len(payload))
		}
		ev.Msg("api request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportErr(ctx, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportErr(ctx, method, endpoint, err)
	}

	if c.debug {
		c.log.Debug().
			Str("method", method).
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("bytes", len(data)).
			Msg("api response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := newHTTPError(resp, data)
		if c.debug {
			c.log.Debug().Int("status", httpErr.StatusCode).Str("detail", httpErr.Message).Msg("api error")
		}
		return httpErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, endpoint, err)
	}
	return nil
}

// transportErr classifies a failure that happened before an HTTP status was read.
func (c *Client) transportErr(parent context.Context, method, endpoint string, err error) error {
	// The caller's own cancellation is not a timeout or connectivity problem.
	if parent.Err() != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, parent.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.log.Debug().Str("method", method).Str("endpoint", endpoint).Err(err).Msg("request timed out")
		return &transportError{kind: ErrTimeout, cause: err}
	}

	c.log.Debug().Str("method", method).Str("endpoint", endpoint).Err(err).Msg("request failed")
	return &transportError{kind: ErrConnectivity, cause: err}
}
