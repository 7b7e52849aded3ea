package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names the request-id header, shared with the API client's outbound
// requests so debug-server log lines and catalog requests correlate.
const Header = "X-Request-ID"

const ctxKey = "request_id"

// Middleware tags every debug-server request with an id, honouring one the
// caller already sent.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(ctxKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Value returns the request id assigned to this request, or "".
func Value(c *gin.Context) string {
	v, _ := c.Get(ctxKey)
	id, _ := v.(string)
	return id
}
