package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1 // the handler sets cache-control itself
	CacheWeek    = 7 * 24 * 3600
)

// CacheRouter sets the cache-control header for a group of routes. Shared
// caches (CDN, proxies) are only allowed to keep Public responses.
type CacheRouter struct {
	CacheTime int // seconds, defaults to CacheNoCache = 0
	Public    bool
}

func (cr *CacheRouter) Value() string {
	switch {
	case cr.CacheTime == CacheNoCache:
		return "no-cache"
	case cr.Public:
		age := strconv.Itoa(cr.CacheTime)
		return "public, max-age=" + age + ", s-maxage=" + age
	default:
		return "private, max-age=" + strconv.Itoa(cr.CacheTime)
	}
}

func (cr *CacheRouter) Handler() gin.HandlerFunc {
	value := cr.Value()
	return func(c *gin.Context) {
		if cr.CacheTime != CacheCustom {
			c.Header("cache-control", value)
		}
		c.Next()
	}
}
