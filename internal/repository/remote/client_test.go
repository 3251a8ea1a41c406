package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/auth"
	"github.com/sakif/resourcehub/internal/model"
)

// newTestClient starts an httptest server running handler and returns a
// client pointed at it. token may be "" for an anonymous session.
func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session, err := auth.OpenSession(context.Background(), &auth.MemoryStore{})
	require.NoError(t, err)
	if token != "" {
		require.NoError(t, session.SetToken(context.Background(), token))
	}

	return New(srv.URL, session, WithHTTPClient(srv.Client()))
}

func TestDo_AttachesBearerWhenTokenPresent(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, "tok-123", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	_, err := c.ListMine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestDo_OmitsAuthorizationWhenAnonymous(t *testing.T) {
	var present bool
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	})

	_, err := c.Feed(context.Background())
	require.NoError(t, err)
	assert.False(t, present, "Authorization header must be omitted without a token")
}

func TestDo_JSONContentTypeOnBodies(t *testing.T) {
	var contentType string
	var body map[string]any
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"id": 1, "text": "hello", "author": {"id": 2, "username": "ann"}}`))
	})

	comment, err := c.AddComment(context.Background(), 5, "hello")
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "hello", body["text"])
	assert.Equal(t, int64(1), comment.ID)
	assert.Equal(t, "ann", comment.Author.Username)
}

func TestDo_NonSuccessCarriesBodyText(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "You already liked this resource", http.StatusBadRequest)
	})

	err := c.Like(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRemote))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "You already liked this resource", appErr.Message)
}

func TestDo_NonSuccessEmptyBodyFallsBackToStatus(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.GetByID(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, "HTTP 403", err.Error())
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, nil)
	_, err := c.Feed(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrTransport))
}

func TestDo_ExactlyOneAttempt(t *testing.T) {
	calls := 0
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_ = c.Delete(context.Background(), 3)
	assert.Equal(t, 1, calls)
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
	}{
		{"feed", func(c *Client) error { _, err := c.Feed(context.Background()); return err }, http.MethodGet, "/resources/feed"},
		{"list mine", func(c *Client) error { _, err := c.ListMine(context.Background()); return err }, http.MethodGet, "/resources"},
		{"get", func(c *Client) error { _, err := c.GetByID(context.Background(), 5); return err }, http.MethodGet, "/resources/5"},
		{"create", func(c *Client) error {
			_, err := c.Create(context.Background(), model.ResourceInput{Title: "t"})
			return err
		}, http.MethodPost, "/resources"},
		{"delete", func(c *Client) error { return c.Delete(context.Background(), 5) }, http.MethodDelete, "/resources/5"},
		{"like", func(c *Client) error { return c.Like(context.Background(), 5) }, http.MethodPost, "/likes/5"},
		{"unlike", func(c *Client) error { return c.Unlike(context.Background(), 5) }, http.MethodDelete, "/likes/5"},
		{"comment", func(c *Client) error { _, err := c.AddComment(context.Background(), 5, "x"); return err }, http.MethodPost, "/comments/5"},
		{"delete comment", func(c *Client) error { return c.DeleteComment(context.Background(), 8) }, http.MethodDelete, "/comments/8"},
		{"register", func(c *Client) error { return c.Register(context.Background(), "u", "e@x.io", "p") }, http.MethodPost, "/auth/register"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				if r.Method == http.MethodGet && (r.URL.Path == "/resources" || r.URL.Path == "/resources/feed") {
					w.Write([]byte(`[]`))
					return
				}
				w.Write([]byte(`{}`))
			})

			require.NoError(t, tt.call(c))
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestCreate_SendsInput(t *testing.T) {
	var got model.ResourceInput
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id": 42, "title": "Go", "tags": ["a","b"], "user": {"id": 3, "username": "ann"}}`))
	})

	in := model.ResourceInput{Title: "Go", Description: "d", URL: "https://go.dev", Type: "ARTICLE", Tags: []string{"a", "b"}}
	r, err := c.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, in, got)
	assert.Equal(t, int64(42), r.ID)
	assert.Equal(t, "ann", r.Author.Username)
}

func TestList_NullBecomesEmpty(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	resources, err := c.ListMine(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, resources)
	assert.Empty(t, resources)
}

func TestLogin(t *testing.T) {
	var body loginRequest
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Write([]byte(`{"token": "uuid-token"}`))
	})

	token, err := c.Login(context.Background(), "ann", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uuid-token", token)
	assert.Equal(t, "ann", body.Username)
	assert.Equal(t, "secret", body.Password)
}

func TestLogin_EmptyToken(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := c.Login(context.Background(), "ann", "secret")
	assert.Error(t, err)
}

func TestWhoAmI(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		called := false
		c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) { called = true })

		u, ok, err := c.WhoAmI(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, u)
		assert.False(t, called)
	})

	t.Run("configured", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/me", r.URL.Path)
			w.Write([]byte(`{"id": 7, "username": "ann", "email": "ann@example.com"}`))
		}))
		t.Cleanup(srv.Close)

		c := New(srv.URL, nil, WithHTTPClient(srv.Client()), WithIdentityPath("/auth/me"))
		u, ok, err := c.WhoAmI(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(7), u.ID)
	})
}
