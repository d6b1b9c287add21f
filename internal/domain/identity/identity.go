// Package identity is the boundary to the external identity provider. It
// turns a request's session credential into a profile; it never touches the
// database.
package identity

import (
	"errors"
	"net/http"
	"strings"

	"filevault/internal/pkg/apperr"
	"filevault/internal/pkg/jwt"
)

// SessionCookie is the cookie the identity provider's frontend SDK sets.
const SessionCookie = "__session"

// APIKeyPrefix marks bearer tokens that are API keys, not sessions.
const APIKeyPrefix = "sk_"

var ErrNoSession = apperr.New(apperr.KindUnauthenticated, "authentication required")

type Identity struct {
	SubjectID string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

type Provider interface {
	Resolve(r *http.Request) (*Identity, error)
}

// JWTProvider verifies HS256 session tokens.
type JWTProvider struct {
	tokens *jwt.Service
}

func NewJWTProvider(tokens *jwt.Service) *JWTProvider {
	return &JWTProvider{tokens: tokens}
}

func (p *JWTProvider) Resolve(r *http.Request) (*Identity, error) {
	raw := SessionToken(r)
	if raw == "" {
		return nil, ErrNoSession
	}

	claims, err := p.tokens.ValidateToken(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "invalid session", err)
	}

	return &Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		AvatarURL: claims.ImageURL,
	}, nil
}

// SessionToken extracts the session token from the Authorization header or
// the session cookie. Bearer API keys are ignored.
func SessionToken(r *http.Request) string {
	if token, ok := BearerToken(r); ok && !strings.HasPrefix(token, APIKeyPrefix) {
		return token
	}
	c, err := r.Cookie(SessionCookie)
	if errors.Is(err, http.ErrNoCookie) || c == nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}
