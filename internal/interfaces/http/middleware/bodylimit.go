package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// defaultMaxBody bounds request bodies when no limit is configured. Sized
// for a full submission batch of payload-heavy events.
const defaultMaxBody int64 = 2 << 20

// BodyLimit returns a middleware that limits request body size. Devices
// hitting the cap should split their queue into smaller submission batches.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBody
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "REQUEST_TOO_LARGE",
					"message": "Request body exceeds maximum allowed size; submit fewer events per batch",
				},
			})
			return
		}

		// Wrap the body with a limited reader for streaming requests
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
