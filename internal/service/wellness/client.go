// Package wellness is the widget's client for the StromBreaker AI and
// mood-tracking backend.
package wellness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
)

// API is the backend surface consumed by the chat controller.
type API interface {
	SendChatTurn(ctx context.Context, req wellness.ChatRequest) (*wellness.ChatResponse, error)
	FetchDashboard(ctx context.Context, userID string) (*wellness.Dashboard, error)
	SubmitMood(ctx context.Context, entry wellness.MoodEntry) error
	LogActivity(ctx context.Context, entry wellness.ActivityLog) error
	FetchMeditationScript(ctx context.Context, minutes int) (*wellness.MeditationScript, error)
	FetchJournalingPrompts(ctx context.Context) ([]string, error)
}

// DefaultTimeout bounds a single backend call when the caller sets none.
const DefaultTimeout = 15 * time.Second

// Client talks to the backend over JSON/HTTP. No retries are attempted.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a Client for baseURL, e.g. "http://localhost:8000".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("wellness: base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, errors.Wrapf(err, "wellness: invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendChatTurn posts one user message. A reply without a response text is an error.
func (c *Client) SendChatTurn(ctx context.Context, req wellness.ChatRequest) (*wellness.ChatResponse, error) {
	var raw struct {
		Response *string `json:"response"`
		wellness.ChatResponse
	}
	if err := c.do(ctx, "chat", http.MethodPost, "/api/chat", req, &raw); err != nil {
		return nil, err
	}
	if raw.Response == nil {
		return nil, &NetworkError{Op: "chat", Err: errors.New("response field missing")}
	}
	resp := raw.ChatResponse
	resp.Response = *raw.Response
	return &resp, nil
}

func (c *Client) FetchDashboard(ctx context.Context, userID string) (*wellness.Dashboard, error) {
	var dashboard wellness.Dashboard
	path := "/api/dashboard/" + url.PathEscape(userID)
	if err := c.do(ctx, "dashboard", http.MethodGet, path, nil, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (c *Client) SubmitMood(ctx context.Context, entry wellness.MoodEntry) error {
	return c.do(ctx, "mood", http.MethodPost, "/api/mood", entry, nil)
}

func (c *Client) LogActivity(ctx context.Context, entry wellness.ActivityLog) error {
	return c.do(ctx, "activity", http.MethodPost, "/api/activities", entry, nil)
}

func (c *Client) FetchMeditationScript(ctx context.Context, minutes int) (*wellness.MeditationScript, error) {
	var script wellness.MeditationScript
	path := fmt.Sprintf("/api/meditation/%d", minutes)
	if err := c.do(ctx, "meditation", http.MethodGet, path, nil, &script); err != nil {
		return nil, err
	}
	return &script, nil
}

func (c *Client) FetchJournalingPrompts(ctx context.Context) ([]string, error) {
	var prompts wellness.JournalingPrompts
	if err := c.do(ctx, "journaling", http.MethodGet, "/api/journaling-prompts", nil, &prompts); err != nil {
		return nil, err
	}
	return prompts.Prompts, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Op: op, Err: errors.Wrap(err, "encode request")}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("component", "wellness").
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
