// Package client is a Go client for the dashboard API. It keeps the signed-in
// state in a session.Context so callers get the same guard decisions and
// sign-out semantics as the server.
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
	"sync"
	"time"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/session"
)

// ErrStale is returned when the session was cleared or replaced while a
// request was in flight. The response is dropped.
var ErrStale = errors.New("session changed during request")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

// Unwrap lets 401 answers satisfy auth.IsUnauthenticated.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return auth.ErrTokenInvalid
	}
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items      []T `json:"items"`
	Pagination struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
}

// MemoryCredentials is an in-process CredentialStore.
type MemoryCredentials struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryCredentials) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *MemoryCredentials) Store(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryCredentials) Remove() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      session.CredentialStore

	// Session is the caller's signed-in state.
	Session *session.Context

	mu      sync.Mutex
	profile *models.User
}

// New returns a client for baseURL (for example http://localhost:8080/api/v1).
// creds may be nil for an in-memory store; hc may be nil for a 30s-timeout client.
func New(baseURL string, creds session.CredentialStore, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if creds == nil {
		creds = &MemoryCredentials{}
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		creds:      creds,
	}
	c.Session = session.New(creds, c, c)
	return c
}

// Verify resolves token by asking the server who it belongs to.
func (c *Client) Verify(ctx context.Context, token string) (auth.Identity, error) {
	var user models.User
	if err := c.send(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return auth.Identity{}, err
	}
	if !user.Role.Valid() {
		return auth.Identity{}, auth.ErrTokenInvalid
	}
	c.mu.Lock()
	c.profile = &user
	c.mu.Unlock()
	return auth.Identity{UserID: user.ID, Role: user.Role}, nil
}

// FetchProfile returns the profile fetched by the preceding Verify.
func (c *Client) FetchProfile(ctx context.Context, id auth.Identity) (*models.User, error) {
	c.mu.Lock()
	p := c.profile
	c.mu.Unlock()
	if p == nil || p.ID != id.UserID {
		return nil, auth.ErrTokenInvalid
	}
	if !p.Active() {
		return nil, auth.ErrInactiveAccount
	}
	return p, nil
}

// Login signs in and starts a new session. Bad credentials return
// auth.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	if err := c.send(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if _, err := c.Session.Begin(ctx, out.Token); err != nil {
		return nil, err
	}
	if c.Session.State() != session.Authenticated {
		return nil, auth.ErrInvalidCredentials
	}
	return out.User, nil
}

// Logout revokes the token on the server and clears the local session. The
// session is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	token, _ := c.creds.Token()
	c.Session.Clear()
	if token == "" {
		return nil
	}
	return c.send(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Navigate asks the server's guard whether the session may open path.
func (c *Client) Navigate(ctx context.Context, path string) (auth.Decision, error) {
	var raw struct {
		Kind     string `json:"kind"`
		Location string `json:"location"`
	}
	if err := c.do(ctx, http.MethodGet, "/navigate?path="+url.QueryEscape(path), nil, &raw); err != nil {
		return auth.Decision{}, err
	}
	d := auth.Decision{Location: raw.Location}
	switch raw.Kind {
	case auth.RedirectLogin.String():
		d.Kind = auth.RedirectLogin
	case auth.RedirectDefault.String():
		d.Kind = auth.RedirectDefault
	default:
		d.Kind = auth.Allow
	}
	return d, nil
}

// ListContent returns one page of content.
func (c *Client) ListContent(ctx context.Context, page, pageSize int) (*Page[models.Content], error) {
	var out Page[models.Content]
	if err := c.do(ctx, http.MethodGet, "/content"+pageQuery(page, pageSize), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPersonas returns one page of personas.
func (c *Client) ListPersonas(ctx context.Context, page, pageSize int) (*Page[models.Persona], error) {
	var out Page[models.Persona]
	if err := c.do(ctx, http.MethodGet, "/personas"+pageQuery(page, pageSize), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInsights returns one page of insights.
func (c *Client) ListInsights(ctx context.Context, page, pageSize int) (*Page[models.Insight], error) {
	var out Page[models.Insight]
	if err := c.do(ctx, http.MethodGet, "/insights"+pageQuery(page, pageSize), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page, pageSize int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// do performs a protected call with the session's token. A 401 clears the
// session unless it already moved on; answers for an older session are dropped.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	c.Session.Load(ctx)
	epoch := c.Session.Epoch()
	token, _ := c.creds.Token()

	err := c.send(ctx, method, path, token, body, out)
	if !c.Session.Current(epoch) {
		return ErrStale
	}
	if err != nil {
		c.Session.Invalidate(err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
