package handler

import (
	"encoding/json"
	"errors"
	"go-bank-app/common"
	"go-bank-app/model"
	"go-bank-app/service"
	"net/http"
)

// LedgerHandler holds dependencies for balance-affecting handlers.
type LedgerHandler struct {
	service *service.LedgerService
}

func NewLedgerHandler(s *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: s}
}

func mapLedgerError(err error, fallback string) *common.AppError {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrSelfTransfer):
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrRecipientNotFound):
		return common.NewAppError(http.StatusNotFound, err.Error(), err)
	case errors.Is(err, service.ErrAccountNotFound):
		return common.NewAppError(http.StatusNotFound, err.Error(), err)
	case errors.Is(err, service.ErrStorageUnavailable):
		return common.NewAppError(http.StatusServiceUnavailable, "Storage unavailable", err)
	default:
		return common.NewAppError(http.StatusInternalServerError, fallback, err)
	}
}

// GetAccount godoc
// @Summary      Get the authenticated account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.Account
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Failure      404  {object}  common.AppError "Account not found"
// @Router       /api/account [get]
func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, ok := r.Context().Value(AccountIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", nil)
	}

	account, err := h.service.GetAccountByID(r.Context(), accountID)
	if err != nil {
		return mapLedgerError(err, "Could not retrieve account")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(account)
	return nil
}

// Deposit godoc
// @Summary      Deposit funds into the authenticated account
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        deposit body model.AmountRequest true "Deposit amount"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError "Invalid amount"
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/deposit [post]
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.AmountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	accountID, ok := r.Context().Value(AccountIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", nil)
	}

	_, entry, err := h.service.Deposit(r.Context(), accountID, req.Amount)
	if err != nil {
		return mapLedgerError(err, "Could not process deposit")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
	return nil
}

// Withdraw godoc
// @Summary      Withdraw funds from the authenticated account
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        withdrawal body model.AmountRequest true "Withdrawal amount"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError "Invalid amount or insufficient funds"
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/withdraw [post]
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.AmountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	accountID, ok := r.Context().Value(AccountIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", nil)
	}

	_, entry, err := h.service.Withdraw(r.Context(), accountID, req.Amount)
	if err != nil {
		return mapLedgerError(err, "Could not process withdrawal")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
	return nil
}

// Transfer godoc
// @Summary      Transfer money to another account
// @Description  Debits the authenticated account and credits the recipient in one atomic unit.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        transfer body model.TransferRequest true "Transfer details"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError "Invalid amount, self transfer or insufficient funds"
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Failure      404  {object}  common.AppError "Recipient not found"
// @Router       /api/transfer [post]
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.TransferRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	accountID, ok := r.Context().Value(AccountIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", nil)
	}

	entry, err := h.service.Transfer(r.Context(), accountID, req.ToUsername, req.Amount)
	if err != nil {
		return mapLedgerError(err, "Could not process transfer")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
	return nil
}

// ListTransactions godoc
// @Summary      List the authenticated account's transaction history
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.Transaction
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/transactions [get]
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, ok := r.Context().Value(AccountIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", nil)
	}

	transactions, err := h.service.TransactionHistory(r.Context(), accountID)
	if err != nil {
		return mapLedgerError(err, "Could not retrieve transactions")
	}
	if transactions == nil {
		transactions = []*model.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transactions)
	return nil
}
