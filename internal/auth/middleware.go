package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// VisitCookie is the name of the cookie that carries the signed visit token.
const VisitCookie = "hub_visit"

type contextKey string

const visitIDKey contextKey = "visitID"

// OptionalVisit reads the visit cookie, if any, and puts the visit ID in
// the request context. Missing, expired, or tampered cookies are treated as
// "no visit" rather than rejected: the handler decides whether it needs one.
func OptionalVisit(tokens *VisitTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if visitID, err := extractVisitID(r, tokens); err == nil && visitID != "" {
				ctx := context.WithValue(r.Context(), visitIDKey, visitID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VisitIDFromContext returns the visit ID placed there by OptionalVisit.
func VisitIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitIDKey).(string)
	return id, ok && id != ""
}

// VisitPath is the cookie path of resourceID's visit. Scoping the cookie to
// the resource keeps visits to different resources from replacing each
// other in the browser's cookie jar.
func VisitPath(resourceID int64) string {
	return fmt.Sprintf("/api/resources/%d", resourceID)
}

// SetVisitCookie signs visitID and sets it as an HttpOnly cookie on path.
func SetVisitCookie(w http.ResponseWriter, tokens *VisitTokens, visitID, path string, ttl time.Duration) error {
	tokenStr, err := tokens.Generate(visitID, ttl)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     VisitCookie,
		Value:    tokenStr,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// ClearVisitCookie tells the browser to drop the visit cookie on path.
func ClearVisitCookie(w http.ResponseWriter, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitCookie,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func extractVisitID(r *http.Request, tokens *VisitTokens) (string, error) {
	cookie, err := r.Cookie(VisitCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
