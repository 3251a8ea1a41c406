package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/repository"
)

// Compile-time checks that *Client satisfies every remote-backed repository.
var (
	_ repository.ResourceRepository = (*Client)(nil)
	_ repository.LikeRepository     = (*Client)(nil)
	_ repository.CommentRepository  = (*Client)(nil)
	_ repository.AuthRepository     = (*Client)(nil)
	_ repository.IdentityRepository = (*Client)(nil)
)

// Feed returns the public feed (GET /resources/feed).
func (c *Client) Feed(ctx context.Context) ([]model.Resource, error) {
	return c.list(ctx, "/resources/feed")
}

// ListMine returns the caller's own resources (GET /resources).
func (c *Client) ListMine(ctx context.Context) ([]model.Resource, error) {
	return c.list(ctx, "/resources")
}

func (c *Client) list(ctx context.Context, path string) ([]model.Resource, error) {
	var resources []model.Resource
	if err := c.Do(ctx, http.MethodGet, path, nil, &resources); err != nil {
		return nil, err
	}
	if resources == nil {
		resources = []model.Resource{}
	}
	return resources, nil
}

// GetByID fetches one resource with its nested comments and likes.
func (c *Client) GetByID(ctx context.Context, id int64) (*model.Resource, error) {
	var r model.Resource
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/resources/%d", id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create publishes a new resource and returns the server's copy.
func (c *Client) Create(ctx context.Context, in model.ResourceInput) (*model.Resource, error) {
	var r model.Resource
	if err := c.Do(ctx, http.MethodPost, "/resources", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes a resource. The server only lets the author do this.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/resources/%d", id), nil, nil)
}

// Like adds the caller's like. The server rejects a second like.
func (c *Client) Like(ctx context.Context, resourceID int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/likes/%d", resourceID), nil, nil)
}

// Unlike removes the caller's like.
func (c *Client) Unlike(ctx context.Context, resourceID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/likes/%d", resourceID), nil, nil)
}

type commentRequest struct {
	Text string `json:"text"`
}

// AddComment posts a comment and returns it as the server stored it.
func (c *Client) AddComment(ctx context.Context, resourceID int64, text string) (*model.Comment, error) {
	var comment model.Comment
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/comments/%d", resourceID),
		commentRequest{Text: text}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes one of the caller's comments.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", commentID), nil, nil)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an opaque bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login",
		loginRequest{Username: username, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("remote: login response carried no token")
	}
	return resp.Token, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.Do(ctx, http.MethodPost, "/auth/register",
		registerRequest{Username: username, Email: email, Password: password}, nil)
}

// WhoAmI queries the dedicated identity endpoint when one is configured.
// ok is false when no endpoint is configured.
func (c *Client) WhoAmI(ctx context.Context) (*model.User, bool, error) {
	if c.identityPath == "" {
		return nil, false, nil
	}
	var u model.User
	if err := c.Do(ctx, http.MethodGet, c.identityPath, nil, &u); err != nil {
		return nil, true, err
	}
	return &u, true, nil
}
