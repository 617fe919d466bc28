// Package middleware provides the gin middleware shared by all routes.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"control-produccion/apperrors"
	"control-produccion/logger"
)

// ErrorHandler renders the last error a handler attached via c.Error().
//
// AppErrors keep their code, message and params; anything else becomes a
// generic 500 so store internals never leak to the client.
func ErrorHandler() gin.HandlerFunc {
	log := logger.Named("http.error")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields := []zap.Field{
				zap.String("code", appErr.Code),
				zap.Int("status", appErr.HTTPStatus),
				zap.String("request_id", GetRequestID(c.Request.Context())),
			}
			if appErr.Err != nil {
				fields = append(fields, zap.Error(appErr.Err))
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				log.Error(appErr.Message, fields...)
			} else {
				log.Debug(appErr.Message, fields...)
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			}
			if len(appErr.Params) > 0 {
				body["params"] = appErr.Params
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		log.Error("unhandled request error",
			zap.Error(err),
			zap.String("request_id", GetRequestID(c.Request.Context())),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An internal error occurred",
		})
	}
}
