package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SizeLimit caps the request body. A contact submission is a few
// kilobytes at most, so anything larger is refused before JSON parsing
// touches it. MaxBytesReader covers bodies sent without Content-Length.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Code:    http.StatusRequestEntityTooLarge,
				Message: "request body too large",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
