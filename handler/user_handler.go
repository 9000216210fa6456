package handler

import (
	"encoding/json"
	"errors"
	"go-bank-app/common"
	"go-bank-app/model"
	"go-bank-app/service"
	"net/http"
)

// UserHandler holds dependencies for registration and session handlers.
type UserHandler struct {
	ledgerService *service.LedgerService
	authService   *service.AuthService
}

func NewUserHandler(ledgerService *service.LedgerService, authService *service.AuthService) *UserHandler {
	return &UserHandler{
		ledgerService: ledgerService,
		authService:   authService,
	}
}

// Register godoc
// @Summary      Register a new account
// @Description  Creates a new bank account with a zero balance.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        account body model.RegisterRequest true "Registration details"
// @Success      201  {object}  model.Account
// @Failure      400  {object}  common.AppError "Invalid request payload"
// @Failure      409  {object}  common.AppError "Username already taken"
// @Failure      503  {object}  common.AppError "Storage unavailable"
// @Router       /register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	account, err := h.ledgerService.RegisterAccount(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateAccount):
			return common.NewAppError(http.StatusConflict, err.Error(), err)
		case errors.Is(err, service.ErrStorageUnavailable):
			return common.NewAppError(http.StatusServiceUnavailable, "Storage unavailable", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not register account", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
	return nil
}

// Login godoc
// @Summary      Authenticate and obtain an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Login credentials"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  common.AppError "Invalid request payload"
// @Failure      401  {object}  common.AppError "Invalid username or password"
// @Router       /login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	account, err := h.ledgerService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		// Both cases map to the same response so usernames cannot be
		// probed through the login endpoint.
		case errors.Is(err, service.ErrAccountNotFound), errors.Is(err, service.ErrInvalidCredentials):
			return common.NewAppError(http.StatusUnauthorized, "Invalid username or password", err)
		case errors.Is(err, service.ErrStorageUnavailable):
			return common.NewAppError(http.StatusServiceUnavailable, "Storage unavailable", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not process login", err)
		}
	}

	token, err := h.authService.GenerateToken(account)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not generate token", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": token})
	return nil
}

// Logout godoc
// @Summary      Invalidate the current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      204  "Session revoked"
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /logout [post]
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	tokenString, ok := r.Context().Value(TokenKey).(string)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid session token", nil)
	}
	claims, ok := r.Context().Value(ClaimsKey).(*model.AppClaims)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid session claims", nil)
	}

	if err := h.authService.RevokeToken(r.Context(), tokenString, claims); err != nil {
		return common.NewAppError(http.StatusServiceUnavailable, "Could not revoke session", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
