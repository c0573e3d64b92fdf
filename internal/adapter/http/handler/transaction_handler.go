package handler

import (
	"eagle-ledger/internal/adapter/http/dto"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles cash movements, transfers and the transaction log.
type TransactionHandler struct {
	ledgerSvc ports.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerSvc ports.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerSvc: ledgerSvc}
}

// Create handles POST /v1/accounts/:accountNumber/transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req dto.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.ledgerSvc.ApplyCashMovement(c.Request.Context(), ports.CashMovementRequest{
		Caller:        id,
		AccountNumber: c.Param("accountNumber"),
		Type:          req.Type,
		Amount:        *req.Amount,
		Currency:      req.Currency,
		Reference:     req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewTransactionResponse(txn))
}

// Transfer handles POST /v1/accounts/:accountNumber/transfers and returns the debit leg.
func (h *TransactionHandler) Transfer(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	debit, err := h.ledgerSvc.ApplyTransfer(c.Request.Context(), ports.TransferRequest{
		Caller:                   id,
		SourceAccountNumber:      c.Param("accountNumber"),
		DestinationAccountNumber: req.DestinationAccountNumber,
		Amount:                   *req.Amount,
		Description:              req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewTransactionResponse(debit))
}

// List handles GET /v1/accounts/:accountNumber/transactions, newest first.
func (h *TransactionHandler) List(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	txns, err := h.ledgerSvc.ListTransactions(c.Request.Context(), id, c.Param("accountNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txns))
}

// Get handles GET /v1/accounts/:accountNumber/transactions/:transactionId.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	txn, err := h.ledgerSvc.GetTransaction(c.Request.Context(), id, c.Param("accountNumber"), c.Param("transactionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionResponse(txn))
}
