// Package client is the dashboard's view of the CollabHub HTTP API and live
// channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	maxTries   uint
	backoff    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry sets how many times an idempotent GET is attempted and the
// initial wait between attempts.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *Client) {
		c.maxTries = max(maxTries, 1)
		c.backoff = initial
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
		maxTries:   3,
		backoff:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api_client")
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string { return c.token }

// SetToken replaces the bearer token, e.g. after login.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er dto.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Message != "" {
			apiErr.Message = er.Message
		}
		return nil, apiErr
	}
	return data, nil
}

// get retries transport failures and temporary API errors with exponential
// backoff. Client errors are returned at once.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	attempt := 0

	return backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err == nil {
			return data, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		c.logger.Warn("api request failed, retrying", "path", path, "attempt", attempt, "error", err)
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := decode[dto.AuthResponse](data)
	if err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

// FetchProfile implements onboarding.Fetcher. Sections whose shape does not
// match are decoded as empty.
func (c *Client) FetchProfile(ctx context.Context) (onboarding.Record, error) {
	data, err := c.get(ctx, "/api/profile")
	if err != nil {
		return onboarding.Record{}, err
	}
	return onboarding.DecodeRecord(data, c.logger)
}

func (c *Client) Onboarding(ctx context.Context) (*dto.OnboardingResponse, error) {
	data, err := c.get(ctx, "/api/onboarding")
	if err != nil {
		return nil, err
	}
	resp, err := decode[dto.OnboardingResponse](data)
	return &resp, err
}

// FetchUnread implements unread.SnapshotSource.
func (c *Client) FetchUnread(ctx context.Context, stream unread.Stream) ([]unread.Entry, error) {
	data, err := c.get(ctx, "/api/inbox/"+string(stream))
	if err != nil {
		return nil, err
	}
	resp, err := decode[dto.UnreadListResponse](data)
	if err != nil {
		return nil, err
	}
	entries := make([]unread.Entry, 0, len(resp.Items))
	for _, item := range resp.Items {
		entries = append(entries, item.Entry(stream))
	}
	return entries, nil
}

// SubmitStep writes the form of a wizard step.
func (c *Client) SubmitStep(ctx context.Context, step onboarding.StepID, payload any) error {
	_, err := c.do(ctx, http.MethodPut, "/api/profile/"+string(step), payload)
	return err
}

func (c *Client) SendMessage(ctx context.Context, req dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/conversations", req)
	if err != nil {
		return nil, err
	}
	resp, err := decode[dto.SendMessageResponse](data)
	return &resp, err
}

func itemPath(stream unread.Stream, id string) (string, error) {
	switch stream {
	case unread.Messages:
		return "/api/conversations/" + id, nil
	case unread.Notifications:
		return "/api/notifications/" + id, nil
	default:
		return "", fmt.Errorf("unknown stream %q", stream)
	}
}

// MarkRead records that the viewer opened an item.
func (c *Client) MarkRead(ctx context.Context, stream unread.Stream, id string) error {
	path, err := itemPath(stream, id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, path+"/read", nil)
	return err
}

func (c *Client) Delete(ctx context.Context, stream unread.Stream, id string) error {
	path, err := itemPath(stream, id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, path, nil)
	return err
}
