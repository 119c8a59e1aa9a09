package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/taskify-app/taskify-chat/internal/types"
)

var testSigningKey = []byte("0123456789abcdef")

func TestJwtIdentityResolver_Resolve(t *testing.T) {
	resolver := NewJwtIdentityResolver(testSigningKey)

	t.Run("valid token", func(t *testing.T) {
		want := types.Identity{Id: "u1", DisplayName: "alice", Role: types.RoleManager}
		token, err := createToken(testSigningKey, want, time.Hour)
		assert.NoError(t, err)

		identity, err := resolver.Resolve(token)
		assert.NoError(t, err)
		assert.Equal(t, want, identity)
	})

	t.Run("empty credential", func(t *testing.T) {
		_, err := resolver.Resolve("")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, err := createToken([]byte("not-the-shared-key"), types.Identity{Id: "u1"}, time.Hour)
		assert.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := createToken(testSigningKey, types.Identity{Id: "u1"}, -time.Hour)
		assert.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.Error(t, err)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{userIdClaim: "u1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		assert.NoError(t, err)

		_, err = resolver.Resolve(signed)
		assert.Error(t, err)
	})

	t.Run("missing user id claim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			expClaim: time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(testSigningKey)
		assert.NoError(t, err)

		_, err = resolver.Resolve(signed)
		assert.Error(t, err)
	})
}

func TestCredentialFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "cookie-token"})
		assert.Equal(t, "cookie-token", credentialFromRequest(req))
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "header-token", credentialFromRequest(req))
	})

	t.Run("query parameter for websocket handshakes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
		assert.Equal(t, "query-token", credentialFromRequest(req))
	})

	t.Run("cookie wins over header and query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "cookie-token", credentialFromRequest(req))
	})

	t.Run("no credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		assert.Empty(t, credentialFromRequest(req))
	})
}
