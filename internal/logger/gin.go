package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// WithLogr returns a gin middleware that logs one line per request at the
// given logger's info level, mirroring the reference bundler's HTTP access
// logging.
func WithLogr(log interface{ Info(string, ...any) }) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
