package access

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix/response"
	"github.com/jom-io/gorig/mid/tokenx"
)

// BearerToken extracts the token from the Authorization header or, for
// clients that cannot set headers, the token query parameter.
func BearerToken(c *gin.Context) string {
	if sign := c.GetHeader("Authorization"); strings.HasPrefix(sign, "Bearer ") {
		return strings.TrimPrefix(sign, "Bearer ")
	}
	return c.Query("token")
}

// Sign rejects requests without a valid monitoring token.
func Sign() gin.HandlerFunc {
	return func(c *gin.Context) {
		sign := BearerToken(c)
		if sign == "" {
			response.ErrorForbidden(c)
			c.Abort()
			return
		}
		get := tokenx.Get(tokenx.Jwt, tokenx.Memory)
		if _, err := get.Generator.Parse(sign); err != nil {
			response.ErrorForbidden(c)
			c.Abort()
			return
		}
		userID, exist := get.Manager.GetUserID(sign)
		if !exist {
			response.ErrorTokenAuthFail(c)
			c.Abort()
			return
		}
		if !IsMonitor(userID) {
			response.ErrorForbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
