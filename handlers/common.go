package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"gallery/cache"
	"gallery/config"
	"gallery/errs"
	"gallery/logging"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

var OKResponse = Response{}

// RespondError writes err as a Response, logging server side failures
func RespondError(c *gin.Context, err error) {
	e := errs.From(err)
	if e.Status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("Request failed",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", e.Status),
			logging.Err(err))
	}
	c.AbortWithStatusJSON(e.Status, Response{Error: e.Message, Code: e.Code})
}

// bind parses the request, binding failures are validation errors
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		RespondError(c, errs.Validation(err.Error()))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, errs.Validation("invalid "+name))
		return 0, false
	}
	return id, true
}

// invalidate runs after a successful mutation and before the response
func invalidate(c *gin.Context, m cache.Mutation) bool {
	if err := cache.InvalidateFor(c.Request.Context(), m); err != nil {
		RespondError(c, errs.Internal(err))
		return false
	}
	return true
}

func storageContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), config.STORAGE_TIMEOUT)
}

func storageError(err error, message string) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}
	return errs.Storage(err, message)
}
