package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medichat/internal/pkg/token"
)

// AccessCookie is the cookie carrying the short-lived access token. The same
// cookie gates the REST surface and the websocket handshake.
const AccessCookie = "accessToken"

// RefreshCookie carries the long-lived refresh token.
const RefreshCookie = "refreshToken"

// Auth authenticates a request from the access-token cookie and stores the
// user id in the gin context. All failures produce the same generic 401.
func Auth(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(AccessCookie)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "Unauthorized"},
			})
			return
		}

		userID, err := issuer.VerifyAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "Unauthorized"},
			})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// UserID reads the authenticated user id set by Auth.
func UserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}
