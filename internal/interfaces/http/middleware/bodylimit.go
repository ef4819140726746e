package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies larger than maxBytes with 413. Declared lengths
// are checked up front; streamed bodies are capped by http.MaxBytesReader
// and surface as a bind error in the handler.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				http.StatusRequestEntityTooLarge,
				dto.ErrCodeBodyTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
