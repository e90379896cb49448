package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout はリクエスト全体の期限をコンテキストに設定します。d が 0 以下なら何もしません。
// 個々のデータストア呼び出しの期限はサービス側で別に設定されます。
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
