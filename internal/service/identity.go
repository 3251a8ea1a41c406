package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/repository"
)

// IdentitySource records how an Identity was obtained, which is also how
// much it can be trusted.
type IdentitySource int

const (
	// SourceAnonymous: no session token. Resolved without any network call.
	SourceAnonymous IdentitySource = iota
	// SourceUnknown: logged in, but nothing told us who we are. User is nil.
	SourceUnknown
	// SourceInferred: taken from the author of our own first resource.
	// Degraded confidence: it is only a compatibility shim.
	SourceInferred
	// SourceEndpoint: returned by a dedicated identity endpoint.
	SourceEndpoint
)

func (s IdentitySource) String() string {
	switch s {
	case SourceAnonymous:
		return "anonymous"
	case SourceUnknown:
		return "unknown"
	case SourceInferred:
		return "inferred"
	case SourceEndpoint:
		return "endpoint"
	}
	return "invalid"
}

func (s IdentitySource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *IdentitySource) UnmarshalText(text []byte) error {
	for _, src := range []IdentitySource{SourceAnonymous, SourceUnknown, SourceInferred, SourceEndpoint} {
		if src.String() == string(text) {
			*s = src
			return nil
		}
	}
	return fmt.Errorf("service: unknown identity source %q", text)
}

// Identity is the acting user as far as the client can tell.
//
// User is nil for SourceAnonymous and SourceUnknown. A caller that needs a
// user ID must check for nil; the resolver never substitutes a default user.
type Identity struct {
	User   *model.User
	Source IdentitySource
	Err    error // why resolution degraded to SourceUnknown, if it did
}

// Known reports whether the identity carries a usable user.
func (i Identity) Known() bool {
	return i.User != nil
}

// Degraded reports whether the user was inferred rather than confirmed.
func (i Identity) Degraded() bool {
	return i.Source == SourceInferred
}

// Resolver resolves the current user. *IdentityResolver is the production
// implementation; tests pass fixed identities.
type Resolver interface {
	Resolve(ctx context.Context) Identity
}

// TokenChecker reports whether a session token is present.
// *auth.Session satisfies it.
type TokenChecker interface {
	HasToken() bool
}

// IdentityResolver answers "who is the current user?".
//
// RESOLUTION ORDER:
//  1. No session token → SourceAnonymous, no network call.
//  2. A dedicated identity endpoint, if the API client has one configured.
//  3. The author embedded in the first entry of GET /resources.
//  4. Otherwise SourceUnknown. A user with zero resources lands here.
//
// Step 3 is a workaround for the server lacking a "who am I" endpoint. It is
// tagged SourceInferred so callers can tell it apart from a real answer.
type IdentityResolver struct {
	session   TokenChecker
	identity  repository.IdentityRepository
	resources repository.ResourceRepository
	logger    *slog.Logger

	// Concurrent views mounting at the same time share one resolution
	// instead of each listing the user's resources.
	group singleflight.Group
}

// NewIdentityResolver creates a resolver. identity may be nil.
func NewIdentityResolver(
	session TokenChecker,
	identity repository.IdentityRepository,
	resources repository.ResourceRepository,
	logger *slog.Logger,
) *IdentityResolver {
	return &IdentityResolver{
		session:   session,
		identity:  identity,
		resources: resources,
		logger:    logger,
	}
}

var _ Resolver = (*IdentityResolver)(nil)

// Resolve never fails: failures degrade to SourceUnknown with Err set.
func (r *IdentityResolver) Resolve(ctx context.Context) Identity {
	if !r.session.HasToken() {
		return Identity{Source: SourceAnonymous}
	}

	// The shared call outlives any one caller: a caller that goes away
	// must not hand its cancellation to the others in the flight.
	ch := r.group.DoChan("identity", func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Identity)
	case <-ctx.Done():
		return Identity{Source: SourceUnknown, Err: ctx.Err()}
	}
}

func (r *IdentityResolver) resolve(ctx context.Context) Identity {
	if r.identity != nil {
		user, ok, err := r.identity.WhoAmI(ctx)
		switch {
		case ok && err == nil && user != nil && user.ID != 0:
			return Identity{User: user, Source: SourceEndpoint}
		case ok && err != nil:
			r.logger.Warn("identity endpoint failed, falling back to inference",
				slog.String("error", err.Error()),
			)
		}
	}

	mine, err := r.resources.ListMine(ctx)
	if err != nil {
		r.logger.Warn("identity unresolved: listing own resources failed",
			slog.String("error", err.Error()),
		)
		return Identity{Source: SourceUnknown, Err: err}
	}

	ident := InferIdentity(mine)
	if !ident.Known() {
		r.logger.Info("identity unresolved: user has no resources to infer from")
	}
	return ident
}

// InferIdentity derives the owner of a "my resources" list from its first
// entry. An empty list, or an entry without an author ID, gives
// SourceUnknown.
func InferIdentity(mine []model.Resource) Identity {
	if len(mine) == 0 || mine[0].Author.ID == 0 {
		return Identity{Source: SourceUnknown}
	}
	author := mine[0].Author
	return Identity{User: &author, Source: SourceInferred}
}
