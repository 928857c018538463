package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"chronicle/pkg/audit"
)

// TokenVerifier turns a bearer token into the acting user it represents.
type TokenVerifier interface {
	Verify(token string) (audit.Actor, error)
}

// HMACVerifier validates HS256 tokens and maps the subject claims onto an
// audit.Actor. The optional "sub_type" claim defaults to "user".
type HMACVerifier struct {
	key []byte
}

// NewHMACVerifier constructs a verifier over a shared signing key.
func NewHMACVerifier(key []byte) *HMACVerifier {
	return &HMACVerifier{key: key}
}

// Verify implements TokenVerifier.
func (v *HMACVerifier) Verify(token string) (audit.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return audit.Actor{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return audit.Actor{}, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return audit.Actor{}, fmt.Errorf("token has no subject")
	}

	actorType := "user"
	if t, ok := claims["sub_type"].(string); ok && t != "" {
		actorType = t
	}
	return audit.Actor{ID: sub, Type: actorType}, nil
}

// Actor installs the acting user from a bearer token into the execution
// context. Requests without a token proceed anonymously (a missing acting
// user is a legitimate state for audit records); requests with an invalid
// token are rejected.
func Actor(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}
			actor, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := audit.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
