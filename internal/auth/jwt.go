package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const visitIssuer = "resourcehub"

// VisitTokens signs and validates the visit cookie of the local web front.
//
// Any page open in the browser can send requests to localhost. A request
// only reaches a detail view if it carries a visit token signed here.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub": visitID, "iss": "resourcehub", "exp": …}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
type VisitTokens struct {
	secret []byte
}

// NewVisitTokens creates a signer with the given secret (at least 16 chars).
func NewVisitTokens(secret string) (*VisitTokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: visit secret must be at least 16 characters")
	}
	return &VisitTokens{secret: []byte(secret)}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a token for visitID that expires after ttl.
func (v *VisitTokens) Generate(visitID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   visitID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    visitIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing visit token: %w", err)
	}

	return signed, nil
}

// Validate parses a visit token and returns the visit ID it was issued for.
//
// The keyfunc rejects anything that isn't HMAC; WithValidMethods pins it to
// HS256 so an "alg: none" token can't slip through.
func (v *VisitTokens) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(visitIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: visit token expired")
		}
		return "", fmt.Errorf("auth: invalid visit token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid visit token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: visit token has no subject")
	}

	return c.Subject, nil
}
