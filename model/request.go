// file: model/request.go

package model

import "github.com/shopspring/decimal"

// RegisterRequest defines the payload for creating a new account.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest defines the payload for authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AmountRequest defines the payload for deposits and withdrawals.
// Positivity of the amount is enforced by the ledger service.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest defines the payload for a money transfer. The sending
// account is resolved from the authenticated identity.
type TransferRequest struct {
	ToUsername string          `json:"to_username" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}
