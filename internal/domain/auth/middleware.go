package auth

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
	"filevault/internal/pkg/response"
)

// Authenticate resolves the caller and stores the principal for the
// access guards. Unresolvable requests are rejected with 401.
func Authenticate(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := resolver.Resolve(c.Request)
		if err != nil {
			response.Abort(c, err)
			return
		}

		access.SetPrincipal(c, p)
		c.Next()
	}
}
