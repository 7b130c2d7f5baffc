package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registrar/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	requestIDKey    = "request_id"
)

// WithResponseMeta prepares the per-request meta map rendered in the response
// envelope and seeds it with the request id.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[requestIDKey] = id
		}
		c.Set(responseMetaKey, meta)
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	metaOf(c)[cacheHitKey] = hit
}

// ExtractMeta returns the meta map stored on the context, or nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}

func metaOf(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
