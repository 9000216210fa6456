package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the closed set of ledger entry types.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "deposit"
	KindWithdraw    TransactionKind = "withdraw"
	KindTransferOut TransactionKind = "transfer_out"
	KindTransferIn  TransactionKind = "transfer_in"
)

// Transaction is an append-only ledger entry. Counterparty is the other
// account's username for transfers and empty otherwise.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    int             `json:"account_id"`
	Kind         TransactionKind `json:"kind"`
	Counterparty string          `json:"counterparty,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}
