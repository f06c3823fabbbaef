package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/finops/yearend-accrual/internal/adapter/handler"
	"github.com/finops/yearend-accrual/internal/adapter/storage"
	"github.com/finops/yearend-accrual/internal/cache"
	"github.com/finops/yearend-accrual/internal/config"
	"github.com/finops/yearend-accrual/internal/core/service"
	"github.com/finops/yearend-accrual/internal/logger"
	"github.com/finops/yearend-accrual/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	var (
		counterStore  port.CounterStore
		referenceRepo port.ReferenceRepository
		ledger        port.LedgerAppender
		closers       []func()
	)

	openMySQL := func() *storage.MySQLAdapter {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Infow("connected to mysql")
		closers = append(closers, func() { db.Close() })
		return storage.NewMySQLAdapter(db)
	}

	switch cfg.Store.Driver {
	case config.DriverSheets:
		credentials, err := os.ReadFile(cfg.Sheets.CredentialsFile)
		if err != nil {
			log.Fatalf("failed to read sheets credentials: %v", err)
		}
		adapter, err := storage.NewSheetsAdapter(ctx, cfg.Sheets.SpreadsheetID, credentials)
		if err != nil {
			log.Fatalf("failed to create sheets adapter: %v", err)
		}
		log.Infow("using google sheets backing store", "spreadsheetID", cfg.Sheets.SpreadsheetID)
		counterStore, referenceRepo, ledger = adapter, adapter, adapter

	case config.DriverMySQL:
		adapter := openMySQL()
		counterStore, referenceRepo, ledger = adapter, adapter, adapter

	case config.DriverRedis:
		// Counter in Redis (atomic Lua reserve), reference data and ledger in
		// MySQL.
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Infow("connected to redis", "addr", cfg.Redis.Addr)
		closers = append(closers, func() { rdb.Close() })

		counterStore = storage.NewRedisAdapter(rdb)
		mysqlAdapter := openMySQL()
		referenceRepo, ledger = mysqlAdapter, mysqlAdapter

	default:
		log.Fatalf("unknown store driver %q", cfg.Store.Driver)
	}

	sharedCache := cache.NewInMemory(cfg.Cache.TTL)

	controlService := service.NewControlNumberService(counterStore, sharedCache, log, service.CounterConfig{
		OpTimeout:       cfg.Store.OpTimeout,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		MaxRetries:      cfg.Retry.MaxRetries,
		PeekTTL:         cfg.Cache.TTL,
	})
	referenceService := service.NewReferenceService(referenceRepo, sharedCache, cfg.Cache.TTL)
	submissionService := service.NewSubmissionService(controlService, ledger, log)

	httpHandler := handler.NewHTTPHandler(controlService, referenceService, submissionService)
	mux := http.NewServeMux()
	httpHandler.Routes(mux)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		log.Infow("HTTP server listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Infow("HTTP server stopped")

	for _, closeFn := range closers {
		closeFn()
	}
	log.Infow("connections closed")
}
