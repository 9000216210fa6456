// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"go-bank-app/config"
	"go-bank-app/db"
	"go-bank-app/handler"
	"go-bank-app/logger"
	"go-bank-app/repository"
	"go-bank-app/router"
	"go-bank-app/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go-bank-app/docs"

	"github.com/redis/go-redis/v9"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations("file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	r := buildRouter(database, redisClient)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// buildRouter wires repositories, services and handlers together.
func buildRouter(database *sql.DB, redisClient *redis.Client) http.Handler {
	accountRepo := repository.NewAccountRepository(database)
	transactionRepo := repository.NewTransactionRepository(database)

	authService := service.NewAuthService(redisClient)
	ledgerService := service.NewLedgerService(database, accountRepo, transactionRepo, authService)

	userHandler := handler.NewUserHandler(ledgerService, authService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)

	return router.NewRouter(userHandler, ledgerHandler, authService)
}

// TestApp exposes the wired router and database handle for integration
// tests.
type TestApp struct {
	DB     *sql.DB
	Router http.Handler
}

func NewTestApp(database *sql.DB, redisClient *redis.Client) *TestApp {
	return &TestApp{
		DB:     database,
		Router: buildRouter(database, redisClient),
	}
}
