package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit はクライアントアドレスごとにリクエスト数を制限するGinミドルウェアを返す。
// スライディングウィンドウ方式で、直近window内のリクエストがlimitに達している場合は
// 429で応答する。now に時計を注入することで壁時計に依存しないテストを可能にする。
// nilを渡した場合は time.Now を使用する。
func RateLimit(limit int, window time.Duration, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}

	var mu sync.Mutex
	hits := make(map[string][]time.Time)

	return func(c *gin.Context) {
		key := c.ClientIP()
		t := now()
		cutoff := t.Add(-window)

		mu.Lock()
		// ウィンドウ外に出た記録を刈り取る
		kept := hits[key][:0]
		for _, ts := range hits[key] {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}

		if len(kept) >= limit {
			hits[key] = kept
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "リクエストが多すぎます。しばらく待ってから再試行してください",
			})
			return
		}

		hits[key] = append(kept, t)
		mu.Unlock()

		c.Next()
	}
}
