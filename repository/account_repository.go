package repository

import (
	"database/sql"
	"errors"
	"go-bank-app/logger"
	"go-bank-app/model"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateUsername is returned when an insert violates the unique
// constraint on accounts.username.
var ErrDuplicateUsername = errors.New("username already exists")

// IAccountRepository defines the contract for account database operations.
type IAccountRepository interface {
	CreateAccount(account *model.Account) error
	GetAccountByUsername(username string) (*model.Account, error)
	GetAccountByID(id int) (*model.Account, error)
	GetAccountForUpdate(tx *sql.Tx, accountID int) (*model.Account, error)
	UpdateAccountBalance(tx *sql.Tx, accountID int, newBalance decimal.Decimal) error
}

// AccountRepository implements IAccountRepository.
type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// CreateAccount inserts a new account with a zero balance.
func (r *AccountRepository) CreateAccount(account *model.Account) error {
	log := logger.Log.WithField("username", account.Username)
	log.Info("Executing query to create a new account")

	query := `INSERT INTO accounts (username, password) VALUES ($1, $2) RETURNING id, balance, created_at`
	err := r.DB.QueryRow(query, account.Username, account.Password).Scan(&account.ID, &account.Balance, &account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			log.Info("Account creation rejected, username already taken")
			return ErrDuplicateUsername
		}
		log.WithError(err).Error("Failed to execute create account query")
		return err
	}
	return nil
}

func (r *AccountRepository) GetAccountByUsername(username string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, username, password, balance, created_at FROM accounts WHERE username = $1`
	err := r.DB.QueryRow(query, username).Scan(&account.ID, &account.Username, &account.Password, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).WithField("username", username).Error("Failed to execute get account by username query")
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) GetAccountByID(id int) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, username, password, balance, created_at FROM accounts WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(&account.ID, &account.Username, &account.Password, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).WithField("account_id", id).Error("Failed to execute get account by id query")
		}
		return nil, err
	}
	return account, nil
}

// GetAccountForUpdate reads an account inside the given transaction and
// locks its row until the transaction commits or rolls back.
func (r *AccountRepository) GetAccountForUpdate(tx *sql.Tx, accountID int) (*model.Account, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get account for update")

	account := &model.Account{}
	query := `SELECT id, username, balance FROM accounts WHERE id = $1 FOR UPDATE`
	err := tx.QueryRow(query, accountID).Scan(&account.ID, &account.Username, &account.Balance)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("Account not found for update")
		} else {
			log.WithError(err).Error("Failed to execute get account for update query")
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) UpdateAccountBalance(tx *sql.Tx, accountID int, newBalance decimal.Decimal) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":  accountID,
		"new_balance": newBalance.String(),
	})
	log.Info("Executing query to update account balance")

	query := `UPDATE accounts SET balance = $1 WHERE id = $2`
	_, err := tx.Exec(query, newBalance, accountID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update account balance query")
		return err
	}
	return nil
}
