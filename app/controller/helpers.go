package controller

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"control-produccion/app/middleware"
	"control-produccion/apperrors"
	"control-produccion/models"
)

// operator returns the authenticated operator or records UNAUTHORIZED.
func operator(c *gin.Context) (models.Operator, bool) {
	op, ok := middleware.OperatorFrom(c.Request.Context())
	if !ok {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeUnauthorized, "operator identity is missing"))
		return models.Operator{}, false
	}
	return op, true
}

// bindJSON decodes the request body into dst. An empty body leaves dst at
// its zero value when allowEmpty is set.
func bindJSON(c *gin.Context, dst interface{}, allowEmpty bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequestField, "invalid request body: "+err.Error()))
	return false
}
