package middleware

import (
	ctxlog "github.com/ErlanBelekov/user-auth/internal/log"
	"github.com/gin-gonic/gin"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// RequestID stores a request ID in the request context, where the ctxlog
// handler picks it up, and echoes it in the response. An incoming
// X-Request-ID is kept when it is short printable ASCII.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = ctxlog.NewRequestID()
		}

		c.Request = c.Request.WithContext(ctxlog.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}
