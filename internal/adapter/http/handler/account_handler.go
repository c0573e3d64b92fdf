package handler

import (
	"eagle-ledger/internal/adapter/http/dto"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles the account lifecycle endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// Create handles POST /v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req dto.CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accountSvc.Create(c.Request.Context(), ports.CreateAccountRequest{
		Owner:       id,
		Name:        req.Name,
		AccountType: req.AccountType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewAccountResponse(account))
}

// List handles GET /v1/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	accounts, err := h.accountSvc.List(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountListResponse(accounts))
}

// Get handles GET /v1/accounts/:accountNumber.
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	account, err := h.accountSvc.Get(c.Request.Context(), id, c.Param("accountNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}

// Update handles PATCH /v1/accounts/:accountNumber. Only the name is mutable.
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req dto.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accountSvc.Rename(c.Request.Context(), id, c.Param("accountNumber"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}

// Delete handles DELETE /v1/accounts/:accountNumber.
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	if err := h.accountSvc.Delete(c.Request.Context(), id, c.Param("accountNumber")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
