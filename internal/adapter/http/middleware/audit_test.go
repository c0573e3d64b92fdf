package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"eagle-ledger/internal/adapter/http/middleware"
	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_RecordsSuccessfulWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	auditSvc := mocks.NewMockAuditService(ctrl)
	userID := uuid.New()

	var captured *domain.AuditLog
	auditSvc.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		captured = entry
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set(middleware.CtxIdentity, domain.Identity{UserID: userID})
		c.Next()
	}, middleware.AuditLog(auditSvc))
	r.DELETE("/v1/accounts/:accountNumber", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodDelete, "/v1/accounts/01234567", nil)
	req.Header.Set("User-Agent", "ledger-test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NotNil(t, captured)
	assert.Equal(t, domain.AuditActionAccountDelete, captured.Action)
	assert.Equal(t, "account", captured.ResourceType)
	assert.Equal(t, "01234567", captured.ResourceID)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, userID, *captured.UserID)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(captured.Details), &details))
	assert.Equal(t, "ledger-test", details["user_agent"])
	assert.Equal(t, w.Header().Get(middleware.HeaderRequestID), details["request_id"])
}

func TestAuditLog_SkipsReadsAndFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	auditSvc := mocks.NewMockAuditService(ctrl)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AuditLog(auditSvc))
	r.GET("/v1/accounts/:accountNumber", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/v1/accounts/:accountNumber/transactions", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/accounts/01234567", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/accounts/01234567/transactions", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAuditLog_UserRoutesUseUserID(t *testing.T) {
	ctrl := gomock.NewController(t)
	auditSvc := mocks.NewMockAuditService(ctrl)
	userID := uuid.New()

	var captured *domain.AuditLog
	auditSvc.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		captured = entry
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AuditLog(auditSvc))
	r.PATCH("/v1/users/:userId", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/v1/users/"+userID.String(), nil))

	require.NotNil(t, captured)
	assert.Equal(t, domain.AuditActionUserUpdate, captured.Action)
	assert.Equal(t, "user", captured.ResourceType)
	assert.Equal(t, userID.String(), captured.ResourceID)
}
