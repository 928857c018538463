package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/pkg/audit"
)

var signingKey = []byte("test-signing-key")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	require.NoError(t, err)
	return token
}

func actorProbe(out *audit.Actor) http.Handler {
	return http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*out = audit.CurrentActor(r.Context())
	})
}

func TestActor_ValidTokenSetsActingUser(t *testing.T) {
	var got audit.Actor
	handler := Actor(NewHMACVerifier(signingKey))(actorProbe(&got))

	token := signToken(t, jwt.MapClaims{
		"sub":      "u1",
		"sub_type": "admin",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, audit.Actor{ID: "u1", Type: "admin"}, got)
}

func TestActor_SubjectTypeDefaultsToUser(t *testing.T) {
	var got audit.Actor
	handler := Actor(NewHMACVerifier(signingKey))(actorProbe(&got))

	token := signToken(t, jwt.MapClaims{"sub": "u2"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, audit.Actor{ID: "u2", Type: "user"}, got)
}

func TestActor_NoTokenProceedsAnonymously(t *testing.T) {
	var got audit.Actor
	handler := Actor(NewHMACVerifier(signingKey))(actorProbe(&got))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, got.IsZero())
}

func TestActor_InvalidTokenRejected(t *testing.T) {
	handler := Actor(NewHMACVerifier(signingKey))(actorProbe(&audit.Actor{}))

	for name, header := range map[string]string{
		"garbage token":   "Bearer not-a-jwt",
		"wrong key":       "Bearer " + mustSignWith(t, []byte("other-key")),
		"missing subject": "Bearer " + signToken(t, jwt.MapClaims{"aud": "x"}),
		"no bearer":       "Basic dXNlcjpwYXNz",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func mustSignWith(t *testing.T, key []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString(key)
	require.NoError(t, err)
	return token
}
