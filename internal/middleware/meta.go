package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_started_at"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetMeta records one metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, ok := c.Value(responseMetaKey).(map[string]interface{})
	if !ok {
		meta = map[string]interface{}{}
		c.Set(responseMetaKey, meta)
	}
	meta[key] = value
}

// ExtractMeta returns a copy of the metadata with the elapsed processing time.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	stored, _ := c.Value(responseMetaKey).(map[string]interface{})
	meta := make(map[string]interface{}, len(stored)+1)
	for k, v := range stored {
		meta[k] = v
	}
	if start, ok := c.Value(requestStartKey).(time.Time); ok {
		meta["processing_time_ms"] = time.Since(start).Milliseconds()
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
