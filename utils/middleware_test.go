package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gallery/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Set(zap.New(core))
	t.Cleanup(func() { logging.Set(nil) })
	return logs
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogMiddleware, ErrorLogMiddleware)
	router.GET("/json", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
	})
	router.GET("/pixel", func(c *gin.Context) {
		c.Data(http.StatusBadGateway, "image/gif", []byte("GIF89a"))
	})
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRequestID(t *testing.T) {
	logs := observe(t)
	router := testRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "trace-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "trace-1", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 65))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, generated, entries[0].ContextMap()["request_id"])
	assert.Equal(t, "trace-1", entries[1].ContextMap()["request_id"])
}

func TestErrorLogOnlyJSON(t *testing.T) {
	logs := observe(t)
	router := testRouter()
	for _, path := range []string{"/json", "/pixel"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	bodies := logs.FilterMessage("Error response").All()
	require.Len(t, bodies, 1)
	assert.Equal(t, "/json", bodies[0].ContextMap()["path"])
	assert.Contains(t, bodies[0].ContextMap()["body"], "album not found")

	levels := map[string]zapcore.Level{}
	for _, e := range logs.FilterMessage("Request").All() {
		levels[e.ContextMap()["path"].(string)] = e.Level
	}
	assert.Equal(t, zapcore.WarnLevel, levels["/json"])
	assert.Equal(t, zapcore.ErrorLevel, levels["/pixel"])
}
