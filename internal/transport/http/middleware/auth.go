package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"

	// SessionCookie holds the session token set on login.
	SessionCookie = "session"
)

type authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*domain.Session, error)
}

// Auth accepts a session token from the Authorization header (Bearer) or
// the session cookie, and sets "userID" in the gin context.
func Auth(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := bearerToken(c.GetHeader("Authorization"))
		if rawToken == "" {
			rawToken, _ = c.Cookie(SessionCookie)
		}
		if rawToken == "" {
			abortUnauthorized(c)
			return
		}

		s, err := auth.Authenticate(c.Request.Context(), rawToken)
		if err != nil || s.UserID == "" {
			abortUnauthorized(c)
			return
		}

		c.Set("userID", s.UserID)
		c.Set("email", s.Email)
		c.Next()
	}
}

func bearerToken(header string) string {
	rawToken, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(rawToken)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"errors": []domain.ValidationError{{Kind: domain.KindBadCredentials, Message: errUnauthorized}},
	})
}
