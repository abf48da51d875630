package client

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

	"github.com/google/uuid"

	"github.com/mergington/signup/pkg/domain"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Client is the Mergington activities API client.
// Tokens are passed per call; the client holds no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges teacher credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	req := domain.LoginRequest{Username: username, Password: password}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &resp, nil
}

// Verify asks the backend whether token is still valid.
func (c *Client) Verify(ctx context.Context, token string) (*domain.VerifyResponse, error) {
	var resp domain.VerifyResponse
	if err := c.doRequest(ctx, http.MethodGet, "/auth/verify", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Verify: %w", err)
	}
	return &resp, nil
}

// ListActivities fetches every activity in server order.
func (c *Client) ListActivities(ctx context.Context) (domain.ActivityList, error) {
	var list domain.ActivityList
	if err := c.doRequest(ctx, http.MethodGet, "/activities", "", nil, &list); err != nil {
		return nil, fmt.Errorf("client.ListActivities: %w", err)
	}
	return list, nil
}

// Signup registers a student for an activity.
func (c *Client) Signup(ctx context.Context, token, activity, email string) (*domain.MessageResponse, error) {
	var resp domain.MessageResponse
	path := "/activities/" + url.PathEscape(activity) + "/signup"
	if err := c.doRequest(ctx, http.MethodPost, path, token, domain.SignupRequest{Email: email}, &resp); err != nil {
		return nil, fmt.Errorf("client.Signup: %w", err)
	}
	return &resp, nil
}

// Unregister removes a student from an activity.
func (c *Client) Unregister(ctx context.Context, token, activity, email string) (*domain.MessageResponse, error) {
	var resp domain.MessageResponse
	params := url.Values{}
	params.Set("email", email)
	path := "/activities/" + url.PathEscape(activity) + "/unregister?" + params.Encode()
	if err := c.doRequest(ctx, http.MethodDelete, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Unregister: %w", err)
	}
	return &resp, nil
}

// doRequest tags the request with a fresh X-Request-ID and returns any
// failure as a *RequestError carrying that id.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body any, out any) error {
	id := uuid.NewString()
	if err := c.send(ctx, id, method, path, token, body, out); err != nil {
		return &RequestError{ID: id, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, id, method, path, token string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(RequestIDHeader, id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return newHTTPError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
