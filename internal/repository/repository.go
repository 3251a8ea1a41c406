// Package repository defines the data-access interfaces the services depend on.
//
// Two kinds of storage sit behind these interfaces:
//
//	remote.Client  → the ResourceHub HTTP API (resources, likes, comments, auth)
//	sqlite.DB      → the local file that keeps the session token across restarts
//
// Services only ever see the interfaces, so tests swap in in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/resourcehub/internal/model"
)

// ResourceRepository reads and writes resources on the remote API.
type ResourceRepository interface {
	Feed(ctx context.Context) ([]model.Resource, error)
	ListMine(ctx context.Context) ([]model.Resource, error)
	GetByID(ctx context.Context, id int64) (*model.Resource, error)
	Create(ctx context.Context, in model.ResourceInput) (*model.Resource, error)
	Delete(ctx context.Context, id int64) error
}

// LikeRepository toggles the caller's like on a resource.
type LikeRepository interface {
	Like(ctx context.Context, resourceID int64) error
	Unlike(ctx context.Context, resourceID int64) error
}

// CommentRepository creates and removes comments.
type CommentRepository interface {
	AddComment(ctx context.Context, resourceID int64, text string) (*model.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
}

// AuthRepository talks to the remote /auth endpoints.
type AuthRepository interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, email, password string) error
}

// IdentityRepository is a dedicated "who am I" query. The stock server has
// none, so implementations report ok=false when it isn't configured.
type IdentityRepository interface {
	WhoAmI(ctx context.Context) (user *model.User, ok bool, err error)
}

// SessionRepository persists the opaque bearer token.
// GetToken returns "" (and no error) when nothing is stored.
type SessionRepository interface {
	GetToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}
