package handler

import (
	"time"

	"eagle-ledger/config"
	"eagle-ledger/internal/adapter/http/middleware"
	"eagle-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc          ports.AuthService
	UserSvc          ports.UserService
	AccountSvc       ports.AccountService
	LedgerSvc        ports.LedgerService
	TokenSvc         ports.TokenService
	RateLimitStore   ports.RateLimitStore   // nil = rate limiting disabled
	IdempotencyCache ports.IdempotencyCache // nil = Idempotency-Key ignored
	IdempotencyTTL   time.Duration
	RateLimit        config.RateLimitConfig
	MaxBodyBytes     int64
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.RateLimitRules(deps.RateLimit)
	noop := func(c *gin.Context) { c.Next() }

	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok || rule.Limit <= 0 {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	idem := noop
	if deps.IdempotencyCache != nil {
		idem = middleware.Idempotency(deps.IdempotencyCache, deps.IdempotencyTTL, deps.Logger)
	}

	v1 := r.Group("/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/users", rl(middleware.GroupAuth), authHandler.Register)
	v1.POST("/auth/token", rl(middleware.GroupAuth), authHandler.Login)

	// --- Bearer-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	userHandler := NewUserHandler(deps.UserSvc)
	accountHandler := NewAccountHandler(deps.AccountSvc)
	txnHandler := NewTransactionHandler(deps.LedgerSvc)

	users := v1.Group("/users", jwtAuth)
	{
		users.GET("/:userId", rl(middleware.GroupDefault), userHandler.Get)
		users.PATCH("/:userId", rl(middleware.GroupDefault), userHandler.Update)
		users.DELETE("/:userId", rl(middleware.GroupDefault), userHandler.Delete)
	}

	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.POST("", rl(middleware.GroupDefault), accountHandler.Create)
		accounts.GET("", rl(middleware.GroupDefault), accountHandler.List)
		accounts.GET("/:accountNumber", rl(middleware.GroupDefault), accountHandler.Get)
		accounts.PATCH("/:accountNumber", rl(middleware.GroupDefault), accountHandler.Update)
		accounts.DELETE("/:accountNumber", rl(middleware.GroupDefault), accountHandler.Delete)

		accounts.POST("/:accountNumber/transactions", rl(middleware.GroupLedger), idem, txnHandler.Create)
		accounts.GET("/:accountNumber/transactions", rl(middleware.GroupDefault), txnHandler.List)
		accounts.GET("/:accountNumber/transactions/:transactionId", rl(middleware.GroupDefault), txnHandler.Get)
		accounts.POST("/:accountNumber/transfers", rl(middleware.GroupLedger), idem, txnHandler.Transfer)
	}

	return r
}
