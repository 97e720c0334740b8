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
)

const defaultCookieName = "session"

// Client provides typed access to the reportdesk API for interactive tools.
// Identity travels as the server's session cookie; callers keep the token
// returned by Signup or Signin and pass it back on later calls.
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.cookieName = strings.TrimSpace(name)
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:3000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		cookieName: defaultCookieName,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// do sends the request with token as the session cookie and returns the
// session cookie value set by the response, if any.
func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: strings.TrimSpace(token)})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}

	var issued string
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName {
			issued = ck.Value
		}
	}
	if v == nil {
		return issued, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return issued, nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// User reflects API user payloads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in user plus the cookie token naming the session.
type Session struct {
	User  User
	Token string
}

// Signup registers a new account and returns its signed-in session.
func (c *Client) Signup(ctx context.Context, email, password string) (Session, error) {
	return c.credentials(ctx, "/auth/signup", email, password)
}

// Signin exchanges credentials for a signed-in session.
func (c *Client) Signin(ctx context.Context, email, password string) (Session, error) {
	return c.credentials(ctx, "/auth/signin", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (Session, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var user User
	token, err := c.do(ctx, http.MethodPost, path, body, "", &user)
	if err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, fmt.Errorf("api did not issue a %s cookie", c.cookieName)
	}
	return Session{User: user, Token: token}, nil
}

// Signout ends the session named by token.
func (c *Client) Signout(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/signout", nil, token, nil)
	return err
}

// Whoami returns the session's user. A nil user with no error means the
// session is valid but its user no longer exists.
func (c *Client) Whoami(ctx context.Context, token string) (*User, error) {
	var user *User
	if _, err := c.do(ctx, http.MethodGet, "/auth/whoami", nil, token, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindUsers lists users registered under email.
func (c *Client) FindUsers(ctx context.Context, token, email string) ([]User, error) {
	var users []User
	path := "/auth?email=" + url.QueryEscape(email)
	if _, err := c.do(ctx, http.MethodGet, path, nil, token, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ReportInput carries the fields of a new report.
type ReportInput struct {
	Price   int     `json:"price"`
	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Year    int     `json:"year"`
	Mileage int     `json:"mileage"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
}

// Report describes a submitted report. Approved is nil while pending.
type Report struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Price     int       `json:"price"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Mileage   int       `json:"mileage"`
	Lng       float64   `json:"lng"`
	Lat       float64   `json:"lat"`
	Approved  *bool     `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State returns pending, approved or rejected.
func (r Report) State() string {
	switch {
	case r.Approved == nil:
		return "pending"
	case *r.Approved:
		return "approved"
	default:
		return "rejected"
	}
}

// CreateReport submits a report owned by the session's user.
func (c *Client) CreateReport(ctx context.Context, token string, in ReportInput) (Report, error) {
	var report Report
	if _, err := c.do(ctx, http.MethodPost, "/reports", in, token, &report); err != nil {
		return Report{}, err
	}
	return report, nil
}

// GetReport fetches a report by id.
func (c *Client) GetReport(ctx context.Context, token, id string) (Report, error) {
	var report Report
	if _, err := c.do(ctx, http.MethodGet, "/reports/"+url.PathEscape(id), nil, token, &report); err != nil {
		return Report{}, err
	}
	return report, nil
}

// SetApproval approves or rejects a report.
func (c *Client) SetApproval(ctx context.Context, token, id string, approved bool) (Report, error) {
	body := map[string]bool{"approved": approved}
	var report Report
	if _, err := c.do(ctx, http.MethodPatch, "/reports/"+url.PathEscape(id), body, token, &report); err != nil {
		return Report{}, err
	}
	return report, nil
}
