package mpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout = 60 * time.Second
	backoffBase    = 2 * time.Second
	maxRetries     = 3
)

// Client talks to the marketplace platform API with one credential. Stages
// hold two of these: one with the operations token and one with the vendor
// token, since the two scopes see different field sets.
type Client struct {
	BaseURL    string
	Token      string
	UserAgent  string
	HTTPClient *http.Client
	// Backoff is the base delay for retry backoff. Tests shrink it.
	Backoff time.Duration

	logger zerolog.Logger
}

// Response is a decoded platform reply.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

func NewClient(baseURL, token, userAgent string, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		Backoff: backoffBase,
		logger:  logger,
	}
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// do issues one request with exponential backoff on transport errors, 5xx,
// 408 and 429. Other 4xx are final and mapped onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = data
	}

	var resp *Response
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(c.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := c.once(ctx, method, path, payload)
		if err != nil {
			c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed, retrying")
			return retry.RetryableError(fmt.Errorf("%s %s: %w", method, path, err))
		}
		resp = r
		if r.StatusCode >= 500 || r.StatusCode == http.StatusRequestTimeout || r.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn().Int("status", r.StatusCode).Str("method", method).Str("path", path).Msg("retryable status, retrying")
			return retry.RetryableError(c.statusError(method, path, r))
		}
		if r.StatusCode >= 400 {
			return c.statusError(method, path, r)
		}
		return nil
	})
	if err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", ensureBearer(c.Token))
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("platform request")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("platform response")

	return &Response{StatusCode: resp.StatusCode, Body: json.RawMessage(respBody)}, nil
}

func (c *Client) statusError(method, path string, r *Response) error {
	body := truncate(string(r.Body), 500)
	switch {
	case r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden:
		return &AuthError{Method: method, Path: path, Status: r.StatusCode, Body: body}
	case r.StatusCode == http.StatusNotFound:
		return &NotFoundError{Method: method, Path: path, Body: body}
	default:
		return &RemoteError{Method: method, Path: path, Status: r.StatusCode, Body: body}
	}
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Document decodes the response body as a platform record.
func (r *Response) Document() (Document, error) {
	var d Document
	if err := r.Decode(&d); err != nil {
		return nil, err
	}
	return d, nil
}

func ensureBearer(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return token
	}
	return "Bearer " + token
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
