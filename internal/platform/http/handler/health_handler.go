// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check は依存先（DB, Redisなど）の疎通確認
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health は /healthz を処理します。いずれかのチェックが失敗すれば503を返します。
// キャッシュは常に無効化します。
func Health(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failed := gin.H{}
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				failed[ch.Name] = err.Error()
			}
		}

		status := http.StatusOK
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
		}
		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}
		if len(failed) > 0 {
			c.JSON(status, gin.H{"status": "unavailable", "failed": failed})
			return
		}
		c.JSON(status, gin.H{"status": "ok"})
	}
}
