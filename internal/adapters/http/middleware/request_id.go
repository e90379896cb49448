package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader はリクエスト ID を運ぶヘッダです。
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	// requestIDMaxLen は引き継ぐ外部由来 ID の上限長です。
	requestIDMaxLen = 64
)

// RequestID は X-Request-ID を引き継ぐか、無ければ UUID を採番してレスポンスにも返します。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		c.Next()
	}
}

// RequestIDFrom は RequestID が設定した ID を返します。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
