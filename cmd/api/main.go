package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eagle-ledger/config"
	httpHandler "eagle-ledger/internal/adapter/http/handler"
	memStorage "eagle-ledger/internal/adapter/storage/memory"
	pgStorage "eagle-ledger/internal/adapter/storage/postgres"
	redisStorage "eagle-ledger/internal/adapter/storage/redis"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/internal/service"
	"eagle-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the repositories of the configured driver.
type storage struct {
	accounts     ports.AccountRepository
	transactions ports.TransactionRepository
	users        ports.UserRepository
	audit        ports.AuditRepository
	transactor   ports.DBTransactor
	health       ports.HealthChecker
	close        func()
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Eagle Ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialise storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis backs idempotent replay and rate limiting; both are skipped without it.
	var (
		rateLimitStore   ports.RateLimitStore
		idempotencyCache ports.IdempotencyCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: rate limiting and Idempotency-Key replay are off")
	}

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	guard := service.NewOwnershipGuard()

	// Initialize business services
	authSvc := service.NewAuthService(store.users, hashSvc, tokenSvc)
	userSvc := service.NewUserService(store.users, hashSvc, logger.Component(log, "users"))
	accountSvc := service.NewAccountService(
		store.accounts,
		guard,
		store.transactor,
		service.NewRandomAccountNumbers(cfg.Ledger.AccountNumberPrefix),
		service.AccountDefaults{
			SortCode:       cfg.Ledger.SortCode,
			Currency:       cfg.Ledger.Currency,
			NumberAttempts: cfg.Ledger.NumberAttempts,
		},
		logger.Component(log, "accounts"),
	)
	ledgerSvc := service.NewLedgerService(
		store.accounts,
		store.transactions,
		guard,
		store.transactor,
		cfg.Ledger.TransferPolicy == config.TransferPolicyOwnedAccounts,
		logger.Component(log, "ledger"),
	)
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:          authSvc,
		UserSvc:          userSvc,
		AccountSvc:       accountSvc,
		LedgerSvc:        ledgerSvc,
		TokenSvc:         tokenSvc,
		RateLimitStore:   rateLimitStore,
		IdempotencyCache: idempotencyCache,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		RateLimit:        cfg.RateLimit,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		HealthCheckers:   healthCheckers,
		AuditSvc:         auditSvc,
		Logger:           logger.Component(log, "http"),
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	auditSvc.Wait()

	log.Info().Msg("Server exited")
}

// openStorage connects the configured storage driver.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return openMemory(cfg, log)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database, log); err != nil {
			return nil, err
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected")

	return &storage{
		accounts:     pgStorage.NewAccountRepo(pool),
		transactions: pgStorage.NewTransactionRepo(pool),
		users:        pgStorage.NewUserRepo(pool),
		audit:        pgStorage.NewAuditRepo(pool),
		transactor:   pgStorage.NewTransactor(pool, cfg.Database.LockTimeout, cfg.Database.StatementTimeout),
		health:       pgStorage.NewHealthCheck(pool),
		close:        pool.Close,
	}, nil
}

func openMemory(cfg *config.Config, log zerolog.Logger) (*storage, error) {
	store := memStorage.NewStore(cfg.Database.LockTimeout)
	path := cfg.Storage.SnapshotPath
	if path != "" {
		if err := store.LoadSnapshot(path); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("In-memory store restored from snapshot")
	}

	return &storage{
		accounts:     memStorage.NewAccountRepo(store),
		transactions: memStorage.NewTransactionRepo(store),
		users:        memStorage.NewUserRepo(store),
		audit:        memStorage.NewAuditRepo(store),
		transactor:   store,
		health:       store,
		close: func() {
			if path == "" {
				return
			}
			if err := store.SaveSnapshot(path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Failed to write snapshot")
				return
			}
			log.Info().Str("path", path).Msg("Snapshot written")
		},
	}, nil
}
