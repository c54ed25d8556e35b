package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bankrec-engine/pkg/logger"
	"bankrec-engine/pkg/response"
)

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.GetLogger().WithFields(map[string]interface{}{
					"error": err,
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered")
				response.InternalError(c, "Internal server error", "An unexpected error occurred")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ErrorHandler answers with 500 for errors attached to the context by handlers
// that did not write a response themselves.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()
		logger.GetLogger().WithError(err.Err).Error("Request error")
		if c.Writer.Status() == http.StatusOK {
			response.InternalError(c, "Request failed", err.Error())
		}
	}
}

// MaxBodySize caps request bodies; uploads beyond the limit fail while being read
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
