package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// JSONBodyLimit caps JSON and urlencoded request bodies.
const JSONBodyLimit = 16 << 10

// BodyLimit wraps non-multipart bodies with http.MaxBytesReader. Multipart
// uploads are bounded per file by the image validator instead.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
