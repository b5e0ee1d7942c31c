package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	msgEmailTaken     = "Email ID already registered"
	msgBadCredentials = "Invalid email or password"
	msgTokenInvalid   = "Incorrect or expired link! Please try again."
	msgConfig         = "Server is not configured to issue tokens"
	msgDatabase       = "Database error, please try again later"
	msgInternal       = "Internal server error"
)

// Errors renders the last error a handler attached with c.Error as
// {"errors":[{"kind","message"}]}. Handlers that already wrote a response
// are left alone.
func Errors(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http_errors")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := ErrorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		c.AbortWithStatusJSON(status, gin.H{"errors": body})
	}
}

// Recovery turns a panic into the same 500 error shape.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered", "path", c.FullPath(), "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"errors": []domain.ValidationError{{Kind: domain.KindInternal, Message: msgInternal}},
		})
	})
}

// ErrorResponse maps a usecase error onto a status code and error list.
func ErrorResponse(err error) (int, []domain.ValidationError) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, verrs
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, one(domain.KindEmailAlreadyRegistered, msgEmailTaken)
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusBadRequest, one(domain.KindTokenInvalid, msgTokenInvalid)
	case errors.Is(err, domain.ErrBadCredentials), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, one(domain.KindBadCredentials, msgBadCredentials)
	case errors.Is(err, domain.ErrSecretMissing):
		return http.StatusInternalServerError, one(domain.KindConfigError, msgConfig)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusInternalServerError, one(domain.KindDatabaseError, msgDatabase)
	default:
		return http.StatusInternalServerError, one(domain.KindInternal, msgInternal)
	}
}

func one(kind domain.ErrorKind, msg string) []domain.ValidationError {
	return []domain.ValidationError{{Kind: kind, Message: msg}}
}
