package middlewares

import (
	"context"
	"errors"
	"net/http"

	"ecoxchange/internal/marketplace"
	"ecoxchange/utils"

	"github.com/gin-gonic/gin"
)

// SessionIDKey is the gin context key holding the authenticated session id.
const SessionIDKey = "sessionID"

// SessionLookup reports whether a session still exists.
type SessionLookup interface {
	State(ctx context.Context, id string) (marketplace.State, error)
}

// AuthMiddleware verifies the session token and sets the session id in context.
func AuthMiddleware(tokens *utils.TokenManager, sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := utils.BearerToken(c.GetHeader("Authorization"))
		if errors.Is(err, utils.ErrMissingToken) {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization token"})
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "message": err.Error()})
			return
		}

		state, err := sessions.State(c.Request.Context(), claims.SessionID)
		if err != nil || !state.SignedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session not found or expired"})
			return
		}

		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}

// SessionID returns the id set by AuthMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
