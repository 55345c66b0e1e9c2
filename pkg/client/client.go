// Package client is a Go client for the vekonnect API with support for
// optimistic local updates reconciled against server-canonical state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrSessionExpired is returned when a call requires authentication and
	// the session is missing or past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Session holds a bearer token and its expiry.
type Session struct {
	Token     string
	ExpiresAt int64
}

// Valid reports whether the session can still authenticate requests.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && time.Now().Unix() < s.ExpiresAt
}

// Upload is a file attached to a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Client talks to the vekonnect API.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu      sync.RWMutex
	session *Session

	// OnSessionExpired, if set, is invoked once per call that fails due to a
	// missing, expired or rejected session.
	OnSessionExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New creates a Client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSession installs a session, e.g. one restored from persistent storage.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Register creates an account and installs the returned session.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register", params, false, &result); err != nil {
		return nil, err
	}
	c.SetSession(&Session{Token: result.Token, ExpiresAt: result.ExpiresAt})
	return &result, nil
}

// Login authenticates and installs the returned session.
func (c *Client) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", params, false, &result); err != nil {
		return nil, err
	}
	c.SetSession(&Session{Token: result.Token, ExpiresAt: result.ExpiresAt})
	return &result, nil
}

// Feed fetches recent posts newest first.
func (c *Client) Feed(ctx context.Context) ([]Post, error) {
	var result []Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/posts", nil, true, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreatePost uploads an image with a caption.
func (c *Client) CreatePost(ctx context.Context, caption string, image Upload) (*Post, error) {
	fields := map[string]string{"caption": caption}
	files := map[string]Upload{"image": image}

	var result Post
	if err := c.doMultipart(ctx, http.MethodPost, "/api/v1/posts", fields, files, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleLike flips the caller's like on a post and returns canonical state.
func (c *Client) ToggleLike(ctx context.Context, postID string) (*LikeState, error) {
	var result LikeState
	path := fmt.Sprintf("/api/v1/posts/%s/like", postID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddComment appends a comment and returns the full resulting sequence.
func (c *Client) AddComment(ctx context.Context, postID, text string) (*CommentState, error) {
	var result CommentState
	path := fmt.Sprintf("/api/v1/posts/%s/comment", postID)
	body := map[string]string{"text": text}
	if err := c.doJSON(ctx, http.MethodPost, path, body, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Profile fetches a user with their posts and follow edges.
func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	var result Profile
	path := fmt.Sprintf("/api/v1/users/%s", userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateProfile applies profile changes and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*User, error) {
	fields := make(map[string]string)
	if params.Username != nil {
		fields["username"] = *params.Username
	}
	if params.Email != nil {
		fields["email"] = *params.Email
	}
	if params.Bio != nil {
		fields["bio"] = *params.Bio
	}
	files := make(map[string]Upload)
	if params.Avatar != nil {
		files["avatar"] = *params.Avatar
	}

	var result User
	if err := c.doMultipart(ctx, http.MethodPut, "/api/v1/users/profile", fields, files, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleFollow flips the caller's follow edge and returns canonical state.
func (c *Client) ToggleFollow(ctx context.Context, targetID string) (*FollowState, error) {
	var result FollowState
	path := fmt.Sprintf("/api/v1/users/%s/follow", targetID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// requireSession returns the bearer token or fails the call before any
// network traffic when the session cannot authenticate.
func (c *Client) requireSession() (string, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	if !s.Valid() {
		c.sessionExpired()
		return "", ErrSessionExpired
	}
	return s.Token, nil
}

func (c *Client) sessionExpired() {
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, authed bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, authed, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, fields map[string]string, files map[string]Upload, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return err
		}
	}
	for name, upload := range files {
		part, err := w.CreateFormFile(name, upload.Filename)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, upload.Content); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(req, true, out)
}

func (c *Client) send(req *http.Request, authed bool, out interface{}) error {
	if authed {
		token, err := c.requireSession()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && authed {
		// The server rejected a token the client still considered valid.
		c.sessionExpired()
		return ErrSessionExpired
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env struct {
		envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &APIError{
			Status:  resp.StatusCode,
			Message: env.Message,
			Errors:  env.Errors,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
