package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// RequestLogger はリクエストごとにメソッド、パス、ステータス、処理時間を出力するGinミドルウェアを返す。
// 5xxはエラー、4xxは警告、それ以外は情報レベルで出力する。
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		keyvals := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if uid := GetUserID(c); uid != "" {
			keyvals = append(keyvals, "user_id", uid)
		}

		switch {
		case status >= 500:
			logger.Error("リクエスト処理完了", keyvals...)
		case status >= 400:
			logger.Warn("リクエスト処理完了", keyvals...)
		default:
			logger.Info("リクエスト処理完了", keyvals...)
		}
	}
}
