package utils

import (
	"time"

	"gallery/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogMiddleware tags every request with an id (kept from the client if
// sent) and logs one line per request once it is done
func RequestLogMiddleware(c *gin.Context) {
	start := time.Now()
	id := c.GetHeader(RequestIDHeader)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Header(RequestIDHeader, id)
	c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
	c.Next()

	status := c.Writer.Status()
	log := logging.FromContext(c.Request.Context())
	fields := []logging.Field{
		logging.String("method", c.Request.Method),
		logging.String("path", c.Request.URL.Path),
		logging.Int("status", status),
		logging.Duration("latency", time.Since(start)),
		logging.String("client_ip", c.ClientIP()),
	}
	switch {
	case status >= 500:
		log.Error("Request", fields...)
	case status >= 400:
		log.Warn("Request", fields...)
	default:
		log.Info("Request", fields...)
	}
}
