package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	method string
	route  string
}

type auditTarget struct {
	action       domain.AuditAction
	resourceType string
}

var auditedRoutes = map[auditRoute]auditTarget{
	{http.MethodPost, "/v1/users"}:                                {domain.AuditActionRegister, "user"},
	{http.MethodPost, "/v1/auth/token"}:                           {domain.AuditActionLogin, "session"},
	{http.MethodPatch, "/v1/users/:userId"}:                       {domain.AuditActionUserUpdate, "user"},
	{http.MethodDelete, "/v1/users/:userId"}:                      {domain.AuditActionUserDelete, "user"},
	{http.MethodPost, "/v1/accounts"}:                             {domain.AuditActionAccountCreate, "account"},
	{http.MethodPatch, "/v1/accounts/:accountNumber"}:             {domain.AuditActionAccountRename, "account"},
	{http.MethodDelete, "/v1/accounts/:accountNumber"}:            {domain.AuditActionAccountDelete, "account"},
	{http.MethodPost, "/v1/accounts/:accountNumber/transactions"}: {domain.AuditActionCashMovement, "transaction"},
	{http.MethodPost, "/v1/accounts/:accountNumber/transfers"}:    {domain.AuditActionTransfer, "transaction"},
}

// AuditLog records successful write operations after the handler has run.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 || c.Writer.Header().Get(HeaderIdempotentReplayed) != "" {
			return
		}
		target, ok := auditedRoutes[auditRoute{c.Request.Method, c.FullPath()}]
		if !ok {
			return
		}

		var userID *uuid.UUID
		if id, ok := Identity(c); ok {
			userID = &id.UserID
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"user_agent": c.Request.UserAgent(),
			"request_id": c.GetString(response.RequestIDKey),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       target.action,
			ResourceType: target.resourceType,
			ResourceID:   resourceID(c),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func resourceID(c *gin.Context) string {
	if number := c.Param("accountNumber"); number != "" {
		return number
	}
	return c.Param("userId")
}
