// Package remote implements the repository interfaces against the
// ResourceHub HTTP API.
//
// REQUEST CONTRACT:
// Every call goes through Client.Do, which guarantees:
//   - one attempt, no retries (callers decide whether to try again)
//   - "Authorization: Bearer <token>" when the session has a token, no
//     header at all otherwise
//   - a JSON content type on every request that carries a body
//   - any status outside 2xx comes back as an *apperror.AppError wrapping
//     apperror.ErrRemote, with the response body text as its message
//   - a failure before any status is seen wraps apperror.ErrTransport
//
// Nothing here panics or swallows an error; each failure is a recoverable
// per-call error for the view that issued it.
package remote

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

	"golang.org/x/oauth2"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/auth"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 4 << 20

// DefaultTimeout bounds a single request when the caller's context doesn't.
const DefaultTimeout = 15 * time.Second

// Client is a thin JSON client for the remote API.
type Client struct {
	baseURL      string
	http         *http.Client
	tokens       oauth2.TokenSource
	identityPath string
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests use the one
// from httptest.Server).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithIdentityPath enables WhoAmI against a dedicated identity endpoint.
func WithIdentityPath(path string) Option {
	return func(c *Client) { c.identityPath = path }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for baseURL (e.g. "http://localhost:8080").
// tokens is usually an *auth.Session; it may be nil for anonymous use.
func New(baseURL string, tokens oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs one request and decodes a JSON response into out.
// body is JSON-encoded when non-nil; out may be nil to discard the response.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachToken(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return apperror.Transport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return apperror.Transport(fmt.Errorf("reading %s %s response: %w", method, path, err))
	}

	c.logger.Debug("api request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperror.Remote(resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("remote: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// attachToken sets the bearer header when the session has a token.
func (c *Client) attachToken(req *http.Request) {
	if c.tokens == nil {
		return
	}
	tok, err := c.tokens.Token()
	if err != nil {
		if !errors.Is(err, auth.ErrNoToken) {
			c.logger.Warn("session token unavailable, sending request anonymously",
				slog.String("error", err.Error()),
			)
		}
		return
	}
	tok.SetAuthHeader(req)
}
