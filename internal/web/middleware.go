package web

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

// RequestID tags every request with a short correlation id, echoed back in
// the X-Request-ID header and carried into the request log line.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := uuid.New().String()[:8]
		ctx.Set(requestIDKey, id)
		ctx.Header("X-Request-ID", id)
		ctx.Next()
	}
}

func Logger(logger *zap.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(params gin.LogFormatterParams) string {
		logger.Info("HTTP Request",
			zap.String("method", params.Method),
			zap.String("path", params.Path),
			zap.Int("status", params.StatusCode),
			zap.Duration("latency", params.Latency),
			zap.String("client_ip", params.ClientIP),
			zap.Any(requestIDKey, params.Keys[requestIDKey]),
		)
		return ""
	})
}

// ErrorHandler handles panics and errors
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("method", ctx.Request.Method),
		)

		ctx.JSON(500, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
	})
}
