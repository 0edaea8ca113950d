// Package client is a typed HTTP client for the Pocket WinDryft API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"windryft.app/pocket-windryft/internal/store"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError carries a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New targets baseURL (e.g. http://localhost:8080). A nil httpClient gets a 60s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) SetToken(token string) { c.token = token }

type Session struct {
	User  store.User `json:"user"`
	Token string     `json:"token"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var resp struct {
		store.User
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &Session{User: resp.User, Token: resp.Token}, nil
}

func (c *Client) Me(ctx context.Context) (*store.User, error) {
	var u store.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Projects(ctx context.Context, userID int64) ([]store.Project, error) {
	var out []store.Project
	err := c.do(ctx, http.MethodGet, "/api/projects?userId="+strconv.FormatInt(userID, 10), nil, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context, userID int64, projectID *int64, sessionType string) (*store.WorkSession, error) {
	var ws store.WorkSession
	body := map[string]any{"userId": userID, "projectId": projectID, "type": sessionType}
	if err := c.do(ctx, http.MethodPost, "/api/work-sessions", body, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID int64) (*store.WorkSession, error) {
	var ws store.WorkSession
	if err := c.do(ctx, http.MethodPost, "/api/work-session/"+strconv.FormatInt(sessionID, 10)+"/end", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// CurrentSession returns ErrNotFound when the user has no active session.
func (c *Client) CurrentSession(ctx context.Context, userID int64) (*store.WorkSession, error) {
	var ws store.WorkSession
	if err := c.do(ctx, http.MethodGet, "/api/work-session/current/"+strconv.FormatInt(userID, 10), nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) Messages(ctx context.Context, userID int64, projectID *int64) ([]store.AssistantMessage, error) {
	path := "/api/assistant-messages/" + strconv.FormatInt(userID, 10)
	if projectID != nil {
		path += "?" + url.Values{"projectId": {strconv.FormatInt(*projectID, 10)}}.Encode()
	}
	var out []store.AssistantMessage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

type Exchange struct {
	UserMessage      store.AssistantMessage `json:"userMessage"`
	AssistantMessage store.AssistantMessage `json:"assistantMessage"`
}

// Ask posts a user message and returns it together with the assistant's reply.
func (c *Client) Ask(ctx context.Context, userID int64, projectID *int64, content, provider string) (*Exchange, error) {
	body := map[string]any{"userId": userID, "projectId": projectID, "content": content, "sender": store.SenderUser}
	if provider != "" {
		body["provider"] = provider
	}
	var ex Exchange
	if err := c.do(ctx, http.MethodPost, "/api/assistant-messages", body, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

type SummarizeOptions struct {
	MaxLength int    `json:"maxLength,omitempty"`
	Format    string `json:"format,omitempty"`
	MaxPoints int    `json:"maxPoints,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

func (c *Client) Summarize(ctx context.Context, content string, opts SummarizeOptions) (string, error) {
	body := struct {
		Content string `json:"content"`
		SummarizeOptions
	}{content, opts}
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/summarize", body, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
