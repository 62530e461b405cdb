package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the envelope middleware writes when it answers for a
// handler: panics, timeouts and errors deferred through c.Error.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler drains errors that handlers attach with c.Error and
// answers with the last one. Errors exposing a StatusCode pick their
// own HTTP status; everything else is a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
		}

		if c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		status := http.StatusInternalServerError
		if sc, ok := last.Err.(interface{ StatusCode() int }); ok {
			status = sc.StatusCode()
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: last.Error(),
			TraceID: requestID,
		})
	}
}
