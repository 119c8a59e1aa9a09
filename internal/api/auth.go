package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/taskify-app/taskify-chat/internal/types"
)

const tokenCookieKey = "token"

const (
	userIdClaim   = "user-id"
	userNameClaim = "user-name"
	userRoleClaim = "user-role"
	expClaim      = "exp"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom returns the identity the auth middleware resolved for
// this request.
func IdentityFrom(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(types.Identity)
	return identity, ok
}

func WithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityResolver validates a connection credential and returns the
// stable identity it belongs to. Token issuance is owned by the main
// TaskiFy API; this service only verifies.
type IdentityResolver interface {
	Resolve(credential string) (types.Identity, error)
}

// JwtIdentityResolver resolves identities from HS256 tokens signed by
// the TaskiFy API.
type JwtIdentityResolver struct {
	signingKey []byte
}

func NewJwtIdentityResolver(signingKey []byte) *JwtIdentityResolver {
	return &JwtIdentityResolver{signingKey: signingKey}
}

func (r *JwtIdentityResolver) Resolve(credential string) (types.Identity, error) {
	if credential == "" {
		return types.Identity{}, fmt.Errorf("no credential supplied")
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return r.signingKey, nil
	})
	if err != nil {
		return types.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return types.Identity{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.Identity{}, fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return types.Identity{}, fmt.Errorf("invalid user id claim")
	}

	identity := types.Identity{Id: userId}
	if name, ok := claims[userNameClaim].(string); ok {
		identity.DisplayName = name
	}
	if role, ok := claims[userRoleClaim].(string); ok {
		identity.Role = role
	}

	return identity, nil
}

// createToken mints a token in the same shape the TaskiFy API issues.
// Used by tests and local tooling only.
func createToken(signingKey []byte, identity types.Identity, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:   identity.Id,
		userNameClaim: identity.DisplayName,
		userRoleClaim: identity.Role,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(signingKey)
}

// credentialFromRequest extracts the token from the cookie, the
// Authorization header, or the query string. The query form exists for
// websocket handshakes, where browsers cannot set headers.
func credentialFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(tokenCookieKey); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}

	return r.URL.Query().Get("token")
}
