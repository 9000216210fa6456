package router

import (
	"go-bank-app/handler"
	"go-bank-app/service"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter wires all routes. Registration, login, health and the swagger
// UI are public; every other route requires an authenticated session.
func NewRouter(userHandler *handler.UserHandler, ledgerHandler *handler.LedgerHandler, authService *service.AuthService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	mux.Handle("POST /register", handler.ErrorHandlingMiddleware(userHandler.Register))
	mux.Handle("POST /login", handler.ErrorHandlingMiddleware(userHandler.Login))

	auth := handler.AuthMiddleware(authService)

	mux.Handle("POST /logout", auth(handler.ErrorHandlingMiddleware(userHandler.Logout)))
	mux.Handle("GET /api/account", auth(handler.ErrorHandlingMiddleware(ledgerHandler.GetAccount)))
	mux.Handle("POST /api/deposit", auth(handler.ErrorHandlingMiddleware(ledgerHandler.Deposit)))
	mux.Handle("POST /api/withdraw", auth(handler.ErrorHandlingMiddleware(ledgerHandler.Withdraw)))
	mux.Handle("POST /api/transfer", auth(handler.ErrorHandlingMiddleware(ledgerHandler.Transfer)))
	mux.Handle("GET /api/transactions", auth(handler.ErrorHandlingMiddleware(ledgerHandler.ListTransactions)))

	return mux
}
