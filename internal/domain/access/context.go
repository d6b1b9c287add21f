package access

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/pkg/apperr"
	"filevault/internal/pkg/response"
)

const principalKey = "principal"

// SetPrincipal stores the resolved caller on the request context.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.UserID)
}

// PrincipalFrom returns the caller set by the authentication middleware.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

var (
	errNoPrincipal = apperr.New(apperr.KindUnauthenticated, "authentication required")
	errForbidden   = apperr.New(apperr.KindForbidden, "insufficient permissions")
	errSessionOnly = apperr.New(apperr.KindForbidden, "this operation requires a signed-in session")
)

// Require aborts unless the caller holds perm.
func Require(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			response.Abort(c, errNoPrincipal)
			return
		}
		if !p.Can(perm) {
			response.Abort(c, errForbidden)
			return
		}
		c.Next()
	}
}

// RequireSession aborts API-key callers.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			response.Abort(c, errNoPrincipal)
			return
		}
		if p.AuthType != AuthSession {
			response.Abort(c, errSessionOnly)
			return
		}
		c.Next()
	}
}

// MustPrincipal writes 401 and returns nil when no caller is set.
func MustPrincipal(c *gin.Context) *Principal {
	p, ok := PrincipalFrom(c)
	if !ok {
		response.Abort(c, errNoPrincipal)
		return nil
	}
	return p
}
