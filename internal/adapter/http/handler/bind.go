package handler

import (
	"errors"
	"net/http"

	"eagle-ledger/internal/adapter/http/dto"
	"eagle-ledger/internal/adapter/http/middleware"
	"eagle-ledger/internal/core/domain"
	"eagle-ledger/pkg/apperror"
	"eagle-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes and validates the request body, writing the error
// response itself when it fails.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrPayloadTooLarge())
		} else {
			response.Error(c, apperror.Validation(err.Error()))
		}
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// caller returns the authenticated identity or writes a 401.
func caller(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return id, ok
}
