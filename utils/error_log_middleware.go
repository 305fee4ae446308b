package utils

import (
	"strings"

	"gallery/logging"

	"github.com/gin-gonic/gin"
)

type errorLogWriter struct {
	gin.ResponseWriter
	gc *gin.Context
}

// Write logs the body of JSON error responses. Image bodies are never logged.
func (w errorLogWriter) Write(b []byte) (int, error) {
	status := w.gc.Writer.Status()
	if status >= 400 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		logging.FromContext(w.gc.Request.Context()).Debug("Error response",
			logging.Int("status", status),
			logging.String("path", w.gc.Request.URL.Path),
			logging.String("body", string(b)))
	}
	return w.ResponseWriter.Write(b)
}

// ErrorLogMiddleware doesn't work with GZIP
func ErrorLogMiddleware(c *gin.Context) {
	blw := &errorLogWriter{gc: c, ResponseWriter: c.Writer}
	c.Writer = blw
	c.Next()
}
