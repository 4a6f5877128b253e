package middleware

import (
	"errors"
	"net/http"
	"strings"

	"relay-service/internal/auth"
	"relay-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// WSAuthMiddleware authenticates a WebSocket handshake before the
// connection is upgraded or admitted into any room. A rejected handshake
// never reaches the hub, so rejection is atomic with respect to room
// membership.
type WSAuthMiddleware struct {
	tokens *auth.TokenService
}

func NewWSAuthMiddleware(tokens *auth.TokenService) *WSAuthMiddleware {
	return &WSAuthMiddleware{tokens: tokens}
}

// Authenticate extracts the credential from the handshake. The "token"
// query parameter wins; the Authorization bearer header is the fallback.
func (m *WSAuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Reject(response.CodeNoToken, ""))
			return
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Reject(response.CodeTokenExpired, ""))
				return
			}
			// Generic marker only; validation details stay internal.
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Reject(response.CodeAuthError, "invalid token"))
			return
		}

		c.Set("user_id", claims.Identity())
		c.Set("username", claims.Username)
		c.Next()
	}
}
