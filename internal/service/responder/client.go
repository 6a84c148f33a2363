// Package responder talks to the remote HTTP endpoint that answers chat prompts.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// Request is the body posted to the responder.
type Request struct {
	Message string `json:"message"`
}

// Response is the body the responder returns on success.
type Response struct {
	Response string `json:"response"`
}

// Client posts prompts to a responder endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each exchange. Zero leaves the call unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for endpoint. No timeout is applied unless WithTimeout is given.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Endpoint returns the URL prompts are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Respond sends prompt as the sole payload and returns the reply text.
// Every failure is an *Error.
func (c *Client) Respond(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(Request{Message: prompt})
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: errors.Wrap(err, "encode request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: errors.Wrap(err, "post prompt")}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("responder answered")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &Error{
			Kind:   KindServer,
			Status: resp.StatusCode,
			Err:    errors.Errorf("server error: %d %s", resp.StatusCode, bytes.TrimSpace(snippet)),
		}
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &Error{Kind: KindServer, Status: resp.StatusCode, Err: errors.Wrap(err, "decode reply")}
	}
	return payload.Response, nil
}
