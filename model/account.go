package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const RoleUser Role = "user"

type Account struct {
	ID        int             `json:"id"`
	Username  string          `json:"username"`
	Password  string          `json:"-"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
