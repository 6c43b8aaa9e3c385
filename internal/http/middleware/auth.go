// README: Bearer-token auth middleware; stores the verified caller on the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"errandhub/internal/access"
	"errandhub/internal/infra"
	"errandhub/internal/types"
)

const (
	ctxUID  = "caller_uid"
	ctxRole = "caller_role"
)

// Auth verifies the Authorization: Bearer <id token> header. The role comes
// from the "role" custom claim; tokens without one act as requesters.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role := access.RoleRequester
		if v, ok := token.Claims["role"].(string); ok && v != "" {
			role = access.Role(v)
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, string(role))
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// Caller returns the authenticated identity for the core services.
func Caller(c *gin.Context) access.Caller {
	return access.Caller{UserID: types.ID(CallerUID(c)), Role: access.Role(CallerRole(c))}
}
