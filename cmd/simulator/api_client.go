package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// APIClient handles HTTP communication with the backend. Cookies set by the
// server live in the client's jar and, when sessionFile is set, survive
// between invocations.
type APIClient struct {
	baseURL     *url.URL
	httpClient  *http.Client
	cookieName  string
	sessionFile string
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, cookieName, sessionFile string) (*APIClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &APIClient{
		baseURL: u,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		cookieName:  cookieName,
		sessionFile: sessionFile,
	}
	if err := c.loadSession(); err != nil {
		return nil, err
	}
	return c, nil
}

// Response types matching backend

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ToggleResult struct {
	Success   bool      `json:"success"`
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type PhaseReading struct {
	ActivePhase int       `json:"activePhase"`
	Timestamp   time.Time `json:"timestamp"`
}

type MotorRecord struct {
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.message)
}

// Register creates a new user account. It does not log in.
func (c *APIClient) Register(username, password string) (*User, error) {
	var user User
	err := c.do(http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusCreated, &user)
	if err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}
	return &user, nil
}

// Login stores the session cookie in the jar and the session file.
func (c *APIClient) Login(username, password string) (*User, error) {
	var user User
	err := c.do(http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusOK, &user)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if err := c.saveSession(); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *APIClient) Me() (*User, error) {
	var user User
	if err := c.do(http.MethodGet, "/auth/me", nil, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *APIClient) Logout() error {
	if err := c.do(http.MethodPost, "/auth/logout", nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if c.sessionFile != "" {
		if err := os.Remove(c.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (c *APIClient) Toggle(on bool) (*ToggleResult, error) {
	var result ToggleResult
	if err := c.do(http.MethodPost, "/motor/toggle", map[string]bool{"status": on}, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("toggle failed: %w", err)
	}
	return &result, nil
}

func (c *APIClient) Phase() (*PhaseReading, error) {
	var reading PhaseReading
	if err := c.do(http.MethodGet, "/phase", nil, http.StatusOK, &reading); err != nil {
		return nil, fmt.Errorf("phase check failed: %w", err)
	}
	return &reading, nil
}

func (c *APIClient) MotorHistory(limit int) ([]MotorRecord, error) {
	var records []MotorRecord
	path := fmt.Sprintf("/motor/activity?limit=%d", limit)
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &records); err != nil {
		return nil, fmt.Errorf("history failed: %w", err)
	}
	return records, nil
}

func (c *APIClient) PhaseHistory(limit int) ([]PhaseReading, error) {
	var readings []PhaseReading
	path := fmt.Sprintf("/phase/history?limit=%d", limit)
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &readings); err != nil {
		return nil, fmt.Errorf("phase history failed: %w", err)
	}
	return readings, nil
}

// FeedEvent is one message from the live activity feed.
type FeedEvent struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Watch streams the caller's live activity feed to fn until ctx is done or
// the server closes the connection.
func (c *APIClient) Watch(ctx context.Context, fn func(FeedEvent)) error {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/ws"

	header := http.Header{}
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		header.Add("Cookie", cookie.String())
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			return &apiError{status: resp.StatusCode, message: "websocket upgrade refused"}
		}
		return fmt.Errorf("failed to connect to feed: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var event FeedEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fn(event)
	}
}

func (c *APIClient) do(method, path string, body interface{}, wantStatus int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL.String()+"/api"+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &apiError{status: resp.StatusCode, message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) loadSession() error {
	if c.sessionFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}
	if token := strings.TrimSpace(string(data)); token != "" {
		c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: c.cookieName, Value: token, Path: "/"}})
	}
	return nil
}

func (c *APIClient) saveSession() error {
	if c.sessionFile == "" {
		return nil
	}
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		if cookie.Name == c.cookieName {
			return os.WriteFile(c.sessionFile, []byte(cookie.Value), 0o600)
		}
	}
	return errors.New("server did not set a session cookie")
}
