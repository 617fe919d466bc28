package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"control-produccion/logger"
)

// AccessLog logs one line per completed request.
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	l = logger.OrNop(l)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c.Request.Context())),
		}
		if op, ok := OperatorFrom(c.Request.Context()); ok {
			fields = append(fields, zap.String("operator_id", op.ID))
		}
		l.Info("request completed", fields...)
	}
}
