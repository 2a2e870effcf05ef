package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_start"
	cacheHitKey     = "cache_hit"
)

// VersionSource reports the entity store version a request is served from.
type VersionSource interface {
	Version() uint64
}

// WithResponseMeta seeds per-request response metadata with the store version
// observed when the request entered the handler chain.
func WithResponseMeta(store VersionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := make(map[string]interface{}, 3)
		if store != nil {
			meta["store_version"] = store.Version()
		}
		c.Set(responseMetaKey, meta)
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the payload came from the dashboard cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ResponseMeta returns a copy of the request metadata with the elapsed
// processing time filled in.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	meta := ensureMeta(c)
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if v, ok := c.Get(requestStartKey); ok {
		if start, ok := v.(time.Time); ok {
			out["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	return out
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if v, ok := c.Get(responseMetaKey); ok {
		if meta, ok := v.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
