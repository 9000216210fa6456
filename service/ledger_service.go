// file: service/ledger_service.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-bank-app/logger"
	"go-bank-app/model"
	"go-bank-app/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrRecipientNotFound  = errors.New("recipient account not found")
	ErrSelfTransfer       = errors.New("cannot transfer money to your own account")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// PasswordHasher is the credential collaborator the ledger delegates to.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, hash string) bool
}

// LedgerService enforces the balance invariants and produces an append-only
// transaction trail for every balance-affecting operation. Each operation
// runs inside a single database transaction with row locks on the affected
// accounts, so a failure partway never leaves a debit without its credit.
type LedgerService struct {
	db              *sql.DB
	accountRepo     repository.IAccountRepository
	transactionRepo repository.ITransactionRepository
	hasher          PasswordHasher
}

func NewLedgerService(db *sql.DB, accountRepo repository.IAccountRepository, transactionRepo repository.ITransactionRepository, hasher PasswordHasher) *LedgerService {
	return &LedgerService{
		db:              db,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		hasher:          hasher,
	}
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

// RegisterAccount creates a new account with a zero balance and a hashed
// credential. No transaction record is written for registration.
func (s *LedgerService) RegisterAccount(ctx context.Context, username, password string) (*model.Account, error) {
	log := logger.Log.WithField("username", username)
	log.Info("Registering new account")

	_, err := s.accountRepo.GetAccountByUsername(username)
	if err == nil {
		return nil, ErrDuplicateAccount
	}
	if err != sql.ErrNoRows {
		return nil, storageFailure("lookup account", err)
	}

	hashedPassword, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	account := &model.Account{
		Username: username,
		Password: hashedPassword,
		Balance:  decimal.Zero,
	}

	// The unique index on username is the backstop for the race between
	// the lookup above and this insert.
	if err := s.accountRepo.CreateAccount(account); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrDuplicateAccount
		}
		return nil, storageFailure("create account", err)
	}

	log.WithField("account_id", account.ID).Info("Account registered successfully")
	return account, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (s *LedgerService) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.accountRepo.GetAccountByUsername(username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, storageFailure("lookup account", err)
	}

	if !s.hasher.CheckPasswordHash(password, account.Password) {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GetAccountByID returns the current account snapshot.
func (s *LedgerService) GetAccountByID(ctx context.Context, accountID int) (*model.Account, error) {
	account, err := s.accountRepo.GetAccountByID(accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, storageFailure("lookup account", err)
	}
	return account, nil
}

// Deposit credits an account and appends the matching deposit entry.
func (s *LedgerService) Deposit(ctx context.Context, accountID int, amount decimal.Decimal) (*model.Account, *model.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     amount.String(),
	})
	log.Info("Starting deposit")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, storageFailure("begin transaction", err)
	}
	defer tx.Rollback()

	account, err := s.accountRepo.GetAccountForUpdate(tx, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrAccountNotFound
		}
		return nil, nil, storageFailure("lock account", err)
	}

	newBalance := account.Balance.Add(amount)
	if err := s.accountRepo.UpdateAccountBalance(tx, account.ID, newBalance); err != nil {
		return nil, nil, storageFailure("update balance", err)
	}

	entry := &model.Transaction{
		AccountID: account.ID,
		Kind:      model.KindDeposit,
		Amount:    amount,
	}
	if err := s.transactionRepo.CreateTransaction(tx, entry); err != nil {
		return nil, nil, storageFailure("record transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, storageFailure("commit transaction", err)
	}

	account.Balance = newBalance
	log.Info("Deposit completed successfully")
	return account, entry, nil
}

// Withdraw debits an account and appends the matching withdraw entry.
// The balance can never go negative.
func (s *LedgerService) Withdraw(ctx context.Context, accountID int, amount decimal.Decimal) (*model.Account, *model.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     amount.String(),
	})
	log.Info("Starting withdrawal")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, storageFailure("begin transaction", err)
	}
	defer tx.Rollback()

	account, err := s.accountRepo.GetAccountForUpdate(tx, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrAccountNotFound
		}
		return nil, nil, storageFailure("lock account", err)
	}

	if account.Balance.Cmp(amount) < 0 {
		return nil, nil, ErrInsufficientFunds
	}

	newBalance := account.Balance.Sub(amount)
	if err := s.accountRepo.UpdateAccountBalance(tx, account.ID, newBalance); err != nil {
		return nil, nil, storageFailure("update balance", err)
	}

	entry := &model.Transaction{
		AccountID: account.ID,
		Kind:      model.KindWithdraw,
		Amount:    amount,
	}
	if err := s.transactionRepo.CreateTransaction(tx, entry); err != nil {
		return nil, nil, storageFailure("record transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, storageFailure("commit transaction", err)
	}

	account.Balance = newBalance
	log.Info("Withdrawal completed successfully")
	return account, entry, nil
}

// Transfer moves an amount from one account to another. The debit, the
// credit and both ledger entries commit together or not at all.
func (s *LedgerService) Transfer(ctx context.Context, fromAccountID int, toUsername string, amount decimal.Decimal) (*model.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	log := logger.Log.WithFields(logrus.Fields{
		"from_account_id": fromAccountID,
		"to_username":     toUsername,
		"amount":          amount.String(),
	})
	log.Info("Starting money transfer process")

	recipient, err := s.accountRepo.GetAccountByUsername(toUsername)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecipientNotFound
		}
		return nil, storageFailure("lookup recipient", err)
	}
	if recipient.ID == fromAccountID {
		return nil, ErrSelfTransfer
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageFailure("begin transaction", err)
	}
	defer tx.Rollback()

	// Lock both rows in ascending id order so concurrent transfers in
	// opposite directions cannot deadlock.
	firstID, secondID := fromAccountID, recipient.ID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.accountRepo.GetAccountForUpdate(tx, firstID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, storageFailure("lock account", err)
	}
	second, err := s.accountRepo.GetAccountForUpdate(tx, secondID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, storageFailure("lock account", err)
	}

	fromAccount, toAccount := first, second
	if fromAccount.ID != fromAccountID {
		fromAccount, toAccount = second, first
	}

	if fromAccount.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}

	if err := s.accountRepo.UpdateAccountBalance(tx, fromAccount.ID, fromAccount.Balance.Sub(amount)); err != nil {
		return nil, storageFailure("update sender balance", err)
	}
	if err := s.accountRepo.UpdateAccountBalance(tx, toAccount.ID, toAccount.Balance.Add(amount)); err != nil {
		return nil, storageFailure("update recipient balance", err)
	}

	debit := &model.Transaction{
		AccountID:    fromAccount.ID,
		Kind:         model.KindTransferOut,
		Counterparty: toAccount.Username,
		Amount:       amount,
	}
	if err := s.transactionRepo.CreateTransaction(tx, debit); err != nil {
		return nil, storageFailure("record debit", err)
	}

	credit := &model.Transaction{
		AccountID:    toAccount.ID,
		Kind:         model.KindTransferIn,
		Counterparty: fromAccount.Username,
		Amount:       amount,
	}
	if err := s.transactionRepo.CreateTransaction(tx, credit); err != nil {
		return nil, storageFailure("record credit", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageFailure("commit transaction", err)
	}

	log.Info("Transfer completed successfully")
	return debit, nil
}

// TransactionHistory returns all ledger entries for an account in
// chronological order.
func (s *LedgerService) TransactionHistory(ctx context.Context, accountID int) ([]*model.Transaction, error) {
	transactions, err := s.transactionRepo.GetTransactionsByAccountID(accountID)
	if err != nil {
		return nil, storageFailure("list transactions", err)
	}
	return transactions, nil
}
