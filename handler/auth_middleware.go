package handler

import (
	"context"
	"go-bank-app/common"
	"go-bank-app/service"
	"net/http"
	"strings"
)

type contextKey string

const (
	AccountIDKey contextKey = "accountID"
	UsernameKey  contextKey = "username"
	RoleKey      contextKey = "role"
	TokenKey     contextKey = "token"
	ClaimsKey    contextKey = "claims"
)

// AuthMiddleware enforces bearer authentication. Every route except the
// public entry points passes through here; revoked tokens are rejected even
// before their natural expiry.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				err := common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
				err.Send(w)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				err := common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
				err.Send(w)
				return
			}

			tokenString := headerParts[1]
			claims, err := authService.ParseToken(tokenString)
			if err != nil {
				appErr := common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err)
				appErr.Send(w)
				return
			}

			revoked, err := authService.IsTokenRevoked(r.Context(), tokenString)
			if err != nil {
				appErr := common.NewAppError(http.StatusServiceUnavailable, "Could not verify session", err)
				appErr.Send(w)
				return
			}
			if revoked {
				appErr := common.NewAppError(http.StatusUnauthorized, "Session has been logged out", nil)
				appErr.Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, claims.AccountID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, TokenKey, tokenString)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
