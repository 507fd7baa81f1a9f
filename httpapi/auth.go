package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// authScheme is the bearer scheme: "Authorization: Abel {token}".
const authScheme = "Abel "

const authenticatedKey = "abel.authenticated"

// Auth enforces the configured token on every request through it. An empty
// token disables auth entirely, which is the zero-config default for a
// local/dev host.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Set(authenticatedKey, true)
			c.Next()
			return
		}

		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, authScheme) || strings.TrimPrefix(h, authScheme) != token {
			c.Set(authenticatedKey, false)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(authenticatedKey, true)
		c.Next()
	}
}

// isAuthenticated reports whether the current request passed Auth, or
// whether Auth was never installed on this route at all (e.g. the public
// front door, which only matters for the 5xx redaction policy).
func isAuthenticated(c *gin.Context) bool {
	v, ok := c.Get(authenticatedKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
