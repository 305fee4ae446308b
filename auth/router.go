package auth

import (
	"gallery/errs"

	"github.com/gin-gonic/gin"
)

type Level int

const (
	SignedIn Level = iota // the default: any identity, further scoped by album grants
	Owner
)

// Caller is authenticated and has the required level
type HandlerFunc func(c *gin.Context, identity *Identity)

// Router is a wrapper class that adds auth checks + identity loading
type Router struct {
	Base gin.IRouter
	// Reject is called instead of the handler when the check fails
	Reject func(c *gin.Context, err error)
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc, required []Level) {
	identity := IdentityFrom(c)
	if !identity.SignedIn() {
		cr.reject(c, errs.ErrUnauthorized)
		return
	}
	if requires(required, Owner) && !identity.IsOwner() {
		cr.reject(c, errs.Forbidden("owner only"))
		return
	}
	handler(c, &identity)
}

func requires(required []Level, level Level) bool {
	for _, l := range required {
		if l == level {
			return true
		}
	}
	return false
}

func (cr *Router) reject(c *gin.Context, err error) {
	if cr.Reject != nil {
		cr.Reject(c, err)
		return
	}
	e := errs.From(err)
	c.AbortWithStatusJSON(e.Status, gin.H{"error": e.Message, "code": e.Code})
}

func (cr *Router) POST(path string, handler HandlerFunc, required ...Level) {
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler, required)
	})
}

func (cr *Router) GET(path string, handler HandlerFunc, required ...Level) {
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler, required)
	})
}

func (cr *Router) PUT(path string, handler HandlerFunc, required ...Level) {
	cr.Base.PUT(path, func(c *gin.Context) {
		cr.baseExec(c, handler, required)
	})
}

func (cr *Router) PATCH(path string, handler HandlerFunc, required ...Level) {
	cr.Base.PATCH(path, func(c *gin.Context) {
		cr.baseExec(c, handler, required)
	})
}

func (cr *Router) DELETE(path string, handler HandlerFunc, required ...Level) {
	cr.Base.DELETE(path, func(c *gin.Context) {
		cr.baseExec(c, handler, required)
	})
}
