package handler

import (
	"eagle-ledger/internal/adapter/http/dto"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler serves a caller's own user record.
type UserHandler struct {
	userSvc ports.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc ports.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Get handles GET /v1/users/:userId.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.userSvc.Get(c.Request.Context(), id, c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewUserResponse(user))
}

// Update handles PATCH /v1/users/:userId.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), ports.UpdateUserRequest{
		Caller:      id,
		UserID:      c.Param("userId"),
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewUserResponse(user))
}

// Delete handles DELETE /v1/users/:userId.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	if err := h.userSvc.Delete(c.Request.Context(), id, c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
