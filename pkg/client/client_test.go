package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func futureExpiry() int64 {
	return time.Now().Add(time.Hour).Unix()
}

func TestLoginInstallsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, true, "login successful", AuthResult{
			User:      User{ID: "u1", Username: "alice"},
			Token:     "tok",
			ExpiresAt: futureExpiry(),
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Login(context.Background(), LoginParams{Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != "u1" {
		t.Errorf("user = %+v", result.User)
	}
	if s := c.Session(); s == nil || s.Token != "tok" || !s.Valid() {
		t.Errorf("session = %+v, want installed and valid", s)
	}
}

func TestAuthedCallWithoutSessionFailsBeforeNetwork(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := New(srv.URL)
	expired := false
	c.OnSessionExpired = func() { expired = true }

	_, err := c.Feed(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if hits != 0 {
		t.Error("no request should have been sent")
	}
	if !expired {
		t.Error("OnSessionExpired should fire")
	}
}

func TestExpiredSessionFailsAtCallBoundary(t *testing.T) {
	c := New("http://unreachable.invalid")
	c.SetSession(&Session{Token: "tok", ExpiresAt: time.Now().Add(-time.Minute).Unix()})

	_, err := c.Feed(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestServerRejectedTokenFiresCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, false, "invalid or expired token", nil)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetSession(&Session{Token: "revoked", ExpiresAt: futureExpiry()})
	expired := false
	c.OnSessionExpired = func() { expired = true }

	_, err := c.Feed(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !expired {
		t.Error("OnSessionExpired should fire on server-side rejection")
	}
}

func TestAPIErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, "post not found", nil)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetSession(&Session{Token: "tok", ExpiresAt: futureExpiry()})

	_, err := c.ToggleLike(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "post not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestToggleLikeSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/posts/p1/like" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, true, "like updated", LikeState{
			PostID: "p1", IsLiked: true, LikeCount: 3, UpdatedLikes: []string{"u1", "u2", "u3"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetSession(&Session{Token: "tok", ExpiresAt: futureExpiry()})

	state, err := c.ToggleLike(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !state.IsLiked || state.LikeCount != 3 {
		t.Errorf("state = %+v", state)
	}
}

func TestCreatePostSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("caption"); got != "sunset" {
			t.Errorf("caption = %q", got)
		}
		if _, fh, err := r.FormFile("image"); err != nil || fh.Filename != "sunset.jpg" {
			t.Errorf("image file missing or wrong: %v", err)
		}
		writeEnvelope(w, http.StatusCreated, true, "post created", Post{ID: "p1", Caption: "sunset"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetSession(&Session{Token: "tok", ExpiresAt: futureExpiry()})

	post, err := c.CreatePost(context.Background(), "sunset", Upload{
		Filename:    "sunset.jpg",
		ContentType: "image/jpeg",
		Content:     strings.NewReader("jpegdata"),
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.ID != "p1" {
		t.Errorf("post = %+v", post)
	}
}
