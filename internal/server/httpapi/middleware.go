package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/morlov/photofeed/internal/server/auth"
)

const (
	// ownerIDKey is the gin context key holding the authenticated owner.
	ownerIDKey = "ownerID"
	// requestIDHeader is propagated from the fronting proxy when present.
	requestIDHeader = "X-Request-ID"

	shutdownTimeout = 5 * time.Second
)

// requestLogger tags every request with an id and logs method, path, status
// and duration. Internal failure detail never reaches the client; this log
// line is where it lands instead.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "request handled",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// authRequired extracts the owner identity from the bearer token. The token
// signature was verified by the identity integration in front of this
// service; here only the claim is read.
func (s *HTTPServer) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortWithError(c, errMissingIdentity)
			return
		}

		ownerID, err := auth.OwnerIDFromToken(token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ownerIDKey, ownerID)
		c.Next()
	}
}
